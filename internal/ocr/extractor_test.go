package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
)

type fakeDetector struct {
	texts []string // consumed in call order
	err   error
	calls int
}

func (d *fakeDetector) DetectText(_ context.Context, _ []byte) (string, error) {
	d.calls++
	if d.err != nil {
		return "", d.err
	}
	if len(d.texts) == 0 {
		return "", nil
	}
	txt := d.texts[0]
	d.texts = d.texts[1:]
	return txt, nil
}

// fakeRasterizer pretends to be pdftoppm: it writes n blank page files next to
// the output prefix given in the final argument.
type fakeRasterizer struct {
	pages int
	err   error
}

func (r fakeRasterizer) Run(_ context.Context, _ string, args ...string) ([]byte, []byte, error) {
	if r.err != nil {
		return nil, []byte("boom"), r.err
	}
	prefix := args[len(args)-1]
	for i := 1; i <= r.pages; i++ {
		name := fmt.Sprintf("%s-%d.png", prefix, i)
		if err := os.WriteFile(name, []byte("png"), 0o600); err != nil {
			return nil, nil, err
		}
	}
	return nil, nil, nil
}

func newTestExtractor(runner Runner, det Detector) *Extractor {
	return &Extractor{
		cfg:      Config{Pdftoppm: "pdftoppm", DPI: 300},
		runner:   runner,
		detector: det,
		logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

func TestExtractBytes_UnsupportedExtension(t *testing.T) {
	e := newTestExtractor(fakeRasterizer{}, &fakeDetector{})
	if _, err := e.ExtractBytes(context.Background(), []byte("x"), ".txt"); err == nil {
		t.Fatal("expected error for .txt, got nil")
	}
}

func TestExtractBytes_Image(t *testing.T) {
	tests := []struct {
		name string
		det  *fakeDetector
		want string
	}{
		{name: "text found", det: &fakeDetector{texts: []string{"Coop 12.50"}}, want: "Coop 12.50"},
		{name: "blank page marker", det: &fakeDetector{}, want: NoTextMarker},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestExtractor(fakeRasterizer{}, tc.det)
			got, err := e.ExtractBytes(context.Background(), []byte("img"), "jpg")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractBytes_ImageDetectorError(t *testing.T) {
	e := newTestExtractor(fakeRasterizer{}, &fakeDetector{err: errors.New("tesseract exploded")})
	if _, err := e.ExtractBytes(context.Background(), []byte("img"), "png"); err == nil {
		t.Fatal("expected detector error to propagate")
	}
}

func TestExtractBytes_PDFMultiPage(t *testing.T) {
	det := &fakeDetector{texts: []string{"Page one text", ""}}
	e := newTestExtractor(fakeRasterizer{pages: 2}, det)

	got, err := e.ExtractBytes(context.Background(), []byte("%PDF"), "pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "--- Page 1 ---\nPage one text\n--- Page 2 ---\n" + NoTextMarker
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if det.calls != 2 {
		t.Errorf("detector calls = %d, want 2", det.calls)
	}
}

func TestExtractBytes_PDFMaxPages(t *testing.T) {
	det := &fakeDetector{texts: []string{"one", "two", "three"}}
	e := newTestExtractor(fakeRasterizer{pages: 3}, det)
	e.cfg.MaxPages = 1

	got, err := e.ExtractBytes(context.Background(), []byte("%PDF"), "pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(got, "--- Page 1 ---") || strings.Contains(got, "--- Page 2 ---") {
		t.Errorf("expected exactly one page, got %q", got)
	}
}

func TestExtractBytes_PDFRasterizeFails(t *testing.T) {
	e := newTestExtractor(fakeRasterizer{err: errors.New("exit status 1")}, &fakeDetector{})
	if _, err := e.ExtractBytes(context.Background(), []byte("%PDF"), "pdf"); err == nil {
		t.Fatal("expected pdftoppm error to propagate")
	}
}

func TestExtractBytes_PDFNoPages(t *testing.T) {
	e := newTestExtractor(fakeRasterizer{pages: 0}, &fakeDetector{})
	_, err := e.ExtractBytes(context.Background(), []byte("%PDF"), "pdf")
	if err == nil || !strings.Contains(err.Error(), "no pages") {
		t.Fatalf("expected no-pages error, got %v", err)
	}
}

func TestExtractBytes_PDFPageOrder(t *testing.T) {
	// page files sort lexically; the page counter must follow that order
	det := &fakeDetector{texts: []string{"alfa", "beta"}}
	e := newTestExtractor(fakeRasterizer{pages: 2}, det)

	got, err := e.ExtractBytes(context.Background(), []byte("%PDF"), "pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Index(got, "alfa") > strings.Index(got, "beta") {
		t.Errorf("pages out of order: %q", got)
	}
}
