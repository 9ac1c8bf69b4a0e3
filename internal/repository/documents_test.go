package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shamsaravaiah/receiptdrop/constants"
	"github.com/shamsaravaiah/receiptdrop/internal/entity"
)

func openTestStore(t *testing.T) *sql.DB {
	t.Helper()
	// a file-backed store: with :memory: every pooled connection would get
	// its own empty database
	path := filepath.Join(t.TempDir(), "docs.db")
	db, err := Open(context.Background(), Config{Path: path}, testLogger())
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testRecord(userID, sourcePath string, at time.Time) *entity.MetadataRecord {
	id := uuid.New()
	return &entity.MetadataRecord{
		ID:               id,
		JobID:            id,
		UserID:           userID,
		UserDirectory:    "dir-" + userID,
		SourcePath:       sourcePath,
		IngestedURL:      "mem://receiptdrop/" + sourcePath,
		OriginalFilename: "kvitto.jpg",
		IngestedAt:       at,
		Status:           constants.DocStatusTagged,
		Tags:             entity.TagSet{Vendor: "Coop", ProductOrService: "Groceries", Price: 123.45},
	}
}

func TestDocumentRepository_InsertAndList(t *testing.T) {
	db := openTestStore(t)
	repo := NewDocumentRepository(db, testLogger())
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	older := testRecord("u1", "rawdrop/d1/1_a.jpg", base)
	newer := testRecord("u1", "rawdrop/d1/2_b.jpg", base.Add(time.Hour))
	other := testRecord("u2", "rawdrop/d2/3_c.jpg", base)

	for _, rec := range []*entity.MetadataRecord{older, newer, other} {
		if err := repo.Insert(ctx, rec); err != nil {
			t.Fatalf("insert %s: %v", rec.SourcePath, err)
		}
	}

	got, err := repo.ListByUser(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	// newest first
	if got[0].SourcePath != newer.SourcePath || got[1].SourcePath != older.SourcePath {
		t.Errorf("order wrong: %s, %s", got[0].SourcePath, got[1].SourcePath)
	}

	r := got[0]
	if r.ID != newer.ID || r.JobID != newer.JobID {
		t.Errorf("ids not round-tripped: %+v", r)
	}
	if r.Tags != newer.Tags {
		t.Errorf("tags not round-tripped: %+v", r.Tags)
	}
	if !r.IngestedAt.Equal(newer.IngestedAt) {
		t.Errorf("IngestedAt = %v, want %v", r.IngestedAt, newer.IngestedAt)
	}
	if r.Status != constants.DocStatusTagged {
		t.Errorf("Status = %q", r.Status)
	}
}

func TestDocumentRepository_ListUnknownUserEmpty(t *testing.T) {
	db := openTestStore(t)
	repo := NewDocumentRepository(db, testLogger())

	got, err := repo.ListByUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no records, got %d", len(got))
	}
}

func TestDocumentRepository_ExistsBySourcePath(t *testing.T) {
	db := openTestStore(t)
	repo := NewDocumentRepository(db, testLogger())
	ctx := context.Background()

	rec := testRecord("u1", "rawdrop/d1/1_a.jpg", time.Now().UTC())
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	ok, err := repo.ExistsBySourcePath(ctx, rec.SourcePath)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Error("expected existing path to be found")
	}

	ok, err = repo.ExistsBySourcePath(ctx, "rawdrop/d1/never_seen.jpg")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Error("unknown path must not exist")
	}
}

func TestDocumentRepository_DegradedFlagRoundTrip(t *testing.T) {
	db := openTestStore(t)
	repo := NewDocumentRepository(db, testLogger())
	ctx := context.Background()

	rec := testRecord("u1", "rawdrop/d1/1_a.jpg", time.Now().UTC())
	rec.Tags = entity.UnknownTags()
	rec.TagsDegraded = true
	if err := repo.Insert(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.ListByUser(ctx, "u1")
	if err != nil || len(got) != 1 {
		t.Fatalf("list: %v (%d records)", err, len(got))
	}
	if !got[0].TagsDegraded {
		t.Error("TagsDegraded flag lost")
	}
	if got[0].Tags.Vendor != constants.UnknownValue {
		t.Errorf("Vendor = %q", got[0].Tags.Vendor)
	}
}
