package soupnight

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

func newTestGallery(t *testing.T) *Gallery {
	t.Helper()
	g, err := NewGallery(t.TempDir(), 320)
	if err != nil {
		t.Fatalf("failed to create gallery: %v", err)
	}
	return g
}

// pngBytes encodes a small solid image so thumbnail generation has
// something real to decode.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode test png: %v", err)
	}
	return buf.Bytes()
}

func TestListMissingYearIsEmpty(t *testing.T) {
	g := newTestGallery(t)

	photos, err := g.List("2026")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(photos) != 0 {
		t.Errorf("expected empty gallery, got %d photos", len(photos))
	}
}

func TestSaveAndList(t *testing.T) {
	g := newTestGallery(t)
	data := pngBytes(t, 4, 4)

	photo, err := g.Save("2025", "Party Pic.PNG", data)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	namePattern := regexp.MustCompile(`^\d+-party-pic\.png$`)
	if !namePattern.MatchString(photo.FileName) {
		t.Errorf("FileName = %q, want <millis>-party-pic.png", photo.FileName)
	}
	if photo.URL != "/uploads/2025/"+photo.FileName {
		t.Errorf("URL = %q, want /uploads/2025/%s", photo.URL, photo.FileName)
	}
	if photo.Year != "2025" {
		t.Errorf("Year = %q, want 2025", photo.Year)
	}
	if photo.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", photo.Size, len(data))
	}
	if photo.UploadedAt.IsZero() {
		t.Error("UploadedAt should be set from the file mtime")
	}

	photos, err := g.List("2025")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(photos) != 1 {
		t.Fatalf("List count = %d, want 1", len(photos))
	}
	if photos[0].FileName != photo.FileName {
		t.Errorf("listed name = %q, want %q", photos[0].FileName, photo.FileName)
	}
}

func TestSaveGeneratesThumbnail(t *testing.T) {
	g := newTestGallery(t)

	photo, err := g.Save("2025", "wide.png", pngBytes(t, 800, 200))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	wantThumb := "/uploads/2025/thumbs/" + thumbFileName(photo.FileName)
	if photo.ThumbnailURL != wantThumb {
		t.Errorf("ThumbnailURL = %q, want %q", photo.ThumbnailURL, wantThumb)
	}

	thumbPath := filepath.Join(g.Root(), "2025", thumbsSubdir, thumbFileName(photo.FileName))
	raw, err := os.ReadFile(thumbPath)
	if err != nil {
		t.Fatalf("thumbnail not written: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("thumbnail does not decode: %v", err)
	}
	if format != "jpeg" {
		t.Errorf("thumbnail format = %q, want jpeg", format)
	}
	if cfg.Width != 320 {
		t.Errorf("thumbnail width = %d, want 320", cfg.Width)
	}
}

func TestSaveUndecodableBytesSkipsThumbnail(t *testing.T) {
	g := newTestGallery(t)

	photo, err := g.Save("2025", "notreally.jpg", []byte("plain text pretending to be an image"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if photo.ThumbnailURL != "" {
		t.Errorf("expected no thumbnail, got %q", photo.ThumbnailURL)
	}
}

func TestListSkipsSubdirectories(t *testing.T) {
	g := newTestGallery(t)

	if _, err := g.Save("2024", "a.png", pngBytes(t, 4, 4)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	// Save created 2024/thumbs; a listing must not report it.
	photos, err := g.List("2024")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for _, p := range photos {
		if strings.Contains(p.FileName, thumbsSubdir) {
			t.Errorf("listing leaked a directory entry: %q", p.FileName)
		}
	}
	if len(photos) != 1 {
		t.Errorf("List count = %d, want 1", len(photos))
	}
}

func TestRemoveDeletesPhotoAndThumbnail(t *testing.T) {
	g := newTestGallery(t)

	photo, err := g.Save("2025", "gone.png", pngBytes(t, 4, 4))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := g.Remove("2025", photo.FileName); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(g.Root(), "2025", photo.FileName)); !os.IsNotExist(err) {
		t.Error("photo still on disk after Remove")
	}
	if _, err := os.Stat(filepath.Join(g.Root(), "2025", thumbsSubdir, thumbFileName(photo.FileName))); !os.IsNotExist(err) {
		t.Error("thumbnail still on disk after Remove")
	}

	// Removing again is not an error.
	if err := g.Remove("2025", photo.FileName); err != nil {
		t.Errorf("second Remove failed: %v", err)
	}
}
