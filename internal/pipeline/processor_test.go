package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shamsaravaiah/receiptdrop/constants"
	"github.com/shamsaravaiah/receiptdrop/internal/entity"
)

type fakeBlobStore struct {
	puts []string
	err  error
}

func (b *fakeBlobStore) Put(_ context.Context, path string, _ []byte) (string, error) {
	if b.err != nil {
		return "", b.err
	}
	b.puts = append(b.puts, path)
	return "mem://receiptdrop/" + path, nil
}

type fakeDocs struct {
	existing map[string]bool
	inserted []*entity.MetadataRecord
}

func (d *fakeDocs) Insert(_ context.Context, rec *entity.MetadataRecord) error {
	d.inserted = append(d.inserted, rec)
	return nil
}

func (d *fakeDocs) ExistsBySourcePath(_ context.Context, sourcePath string) (bool, error) {
	return d.existing[sourcePath], nil
}

func (d *fakeDocs) ListByUser(_ context.Context, _ string) ([]*entity.MetadataRecord, error) {
	return nil, nil
}

type fakeTexts struct {
	text string
	err  error
}

func (t fakeTexts) ExtractBytes(_ context.Context, _ []byte, _ string) (string, error) {
	return t.text, t.err
}

type fakeTagger struct {
	tags     entity.TagSet
	degraded bool
	gotText  string
}

func (g *fakeTagger) Extract(_ context.Context, normalizedText string) (entity.TagSet, bool) {
	g.gotText = normalizedText
	return g.tags, g.degraded
}

func newTestProcessor(blobs *fakeBlobStore, docs *fakeDocs, texts fakeTexts, tagger *fakeTagger) *Processor {
	p := NewProcessor(nil, blobs, docs, texts, tagger)
	p.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	p.token = func() string { return "feedfacefeedface" }
	return p
}

func TestProcess_UnsupportedExtensionSkipped(t *testing.T) {
	blobs := &fakeBlobStore{}
	p := newTestProcessor(blobs, &fakeDocs{}, fakeTexts{}, &fakeTagger{})

	rec, err := p.Process(context.Background(), strings.NewReader("hello"), "notes.txt", "u1", "dir1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record for .txt, got %+v", rec)
	}
	if len(blobs.puts) != 0 {
		t.Errorf("unsupported file must not be stored, got puts %v", blobs.puts)
	}
}

func TestProcess_HappyPath(t *testing.T) {
	blobs := &fakeBlobStore{}
	docs := &fakeDocs{}
	tagger := &fakeTagger{tags: entity.TagSet{Vendor: "Coop", ProductOrService: "Groceries", Price: 123.45}}
	p := newTestProcessor(blobs, docs, fakeTexts{text: "Coop\n123,45\nkortbetalning"}, tagger)

	rec, err := p.Process(context.Background(), strings.NewReader("bytes"), "kvitto.jpg", "u1", "dir1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}

	wantPath := "rawdrop/dir1/1709294400_feedfacefeedface.jpg"
	if rec.SourcePath != wantPath {
		t.Errorf("SourcePath = %q, want %q", rec.SourcePath, wantPath)
	}
	if len(blobs.puts) != 1 || blobs.puts[0] != wantPath {
		t.Errorf("blob puts = %v, want [%s]", blobs.puts, wantPath)
	}
	if rec.IngestedURL != "mem://receiptdrop/"+wantPath {
		t.Errorf("IngestedURL = %q", rec.IngestedURL)
	}
	if rec.ID != rec.JobID {
		t.Errorf("ID and JobID must match: %s vs %s", rec.ID, rec.JobID)
	}
	if rec.Status != constants.DocStatusTagged {
		t.Errorf("Status = %q, want %q", rec.Status, constants.DocStatusTagged)
	}
	if rec.Tags != tagger.tags {
		t.Errorf("Tags = %+v, want %+v", rec.Tags, tagger.tags)
	}
	if rec.OriginalFilename != "kvitto.jpg" || rec.UserID != "u1" || rec.UserDirectory != "dir1" {
		t.Errorf("identity fields wrong: %+v", rec)
	}
	// the tagger must see normalized, not raw, text
	if tagger.gotText != "Coop\n123.45" {
		t.Errorf("tagger saw %q, want normalized text", tagger.gotText)
	}
	// the processor never persists; that is the caller's job
	if len(docs.inserted) != 0 {
		t.Errorf("processor must not insert records itself")
	}
}

func TestProcess_DuplicatePathSkipped(t *testing.T) {
	wantPath := "rawdrop/dir1/1709294400_feedfacefeedface.jpg"
	blobs := &fakeBlobStore{}
	docs := &fakeDocs{existing: map[string]bool{wantPath: true}}
	p := newTestProcessor(blobs, docs, fakeTexts{text: "x 1"}, &fakeTagger{})

	rec, err := p.Process(context.Background(), strings.NewReader("bytes"), "kvitto.jpg", "u1", "dir1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("duplicate path must yield nil record, got %+v", rec)
	}
	// the raw artifact is stored before the dedup check fires
	if len(blobs.puts) != 1 {
		t.Errorf("expected raw artifact stored even for duplicate, puts = %v", blobs.puts)
	}
}

func TestProcess_BlobFailureAborts(t *testing.T) {
	blobs := &fakeBlobStore{err: errors.New("disk full")}
	p := newTestProcessor(blobs, &fakeDocs{}, fakeTexts{text: "x"}, &fakeTagger{})

	if _, err := p.Process(context.Background(), strings.NewReader("b"), "a.png", "u", "d"); err == nil {
		t.Fatal("expected storage error to propagate")
	}
}

func TestProcess_OCRFailureAborts(t *testing.T) {
	p := newTestProcessor(&fakeBlobStore{}, &fakeDocs{}, fakeTexts{err: errors.New("tesseract missing")}, &fakeTagger{})

	if _, err := p.Process(context.Background(), strings.NewReader("b"), "a.pdf", "u", "d"); err == nil {
		t.Fatal("expected ocr error to propagate")
	}
}

func TestProcess_DegradedTagsStillProduceRecord(t *testing.T) {
	tagger := &fakeTagger{tags: entity.UnknownTags(), degraded: true}
	p := newTestProcessor(&fakeBlobStore{}, &fakeDocs{}, fakeTexts{text: "garbage"}, tagger)

	rec, err := p.Process(context.Background(), strings.NewReader("b"), "a.jpeg", "u", "d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record despite degraded tags")
	}
	if !rec.TagsDegraded {
		t.Error("TagsDegraded not set")
	}
	if rec.Tags.Vendor != constants.UnknownValue || rec.Tags.Price != 0 {
		t.Errorf("expected fallback tags, got %+v", rec.Tags)
	}
}
