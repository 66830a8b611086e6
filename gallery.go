package soupnight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// thumbsSubdir is where generated thumbnails live inside a year directory.
const thumbsSubdir = "thumbs"

// Gallery maps allowed years onto per-year directories under a single
// upload root. The directory listing is the source of truth; photo
// metadata is reconstructed by stat-ing entries on every read.
type Gallery struct {
	root       string
	thumbWidth int
}

// NewGallery ensures the upload root exists and returns a store rooted there.
func NewGallery(root string, thumbWidth int) (*Gallery, error) {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root %s: %w", root, err)
	}
	return &Gallery{root: root, thumbWidth: thumbWidth}, nil
}

// Root returns the upload root directory.
func (g *Gallery) Root() string {
	return g.root
}

func (g *Gallery) yearDir(year string) string {
	return filepath.Join(g.root, year)
}

// List returns the photos in a year's directory. A year directory that
// does not exist yet is an empty gallery, not an error. Entries that
// are not regular files (including the thumbs subdirectory) are
// skipped. Enumeration order carries no chronological guarantee.
func (g *Gallery) List(year string) ([]Photo, error) {
	entries, err := os.ReadDir(g.yearDir(year))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Photo{}, nil
		}
		return nil, fmt.Errorf("read gallery dir for %s: %w", year, err)
	}
	photos := make([]Photo, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		photos = append(photos, g.photoFor(year, entry.Name(), info))
	}
	return photos, nil
}

// Save writes one upload into the year directory under a timestamped
// sanitized name and generates a thumbnail best-effort. It returns the
// resulting photo record. The caller is responsible for removing the
// file again if the rest of its batch fails.
func (g *Gallery) Save(year, originalName string, data []byte) (Photo, error) {
	dir := g.yearDir(year)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Photo{}, fmt.Errorf("create year dir %s: %w", year, err)
	}
	name := stampFileName(time.Now().UnixMilli(), originalName)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return Photo{}, fmt.Errorf("write photo %s: %w", name, err)
	}
	g.writeThumb(year, name, data)

	info, err := os.Stat(path)
	if err != nil {
		return Photo{}, fmt.Errorf("stat photo %s: %w", name, err)
	}
	return g.photoFor(year, name, info), nil
}

// Remove deletes a stored photo and its thumbnail, if any. Missing
// files are not an error; Remove is used for batch cleanup where some
// files may never have been written.
func (g *Gallery) Remove(year, fileName string) error {
	if err := os.Remove(filepath.Join(g.yearDir(year), fileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove photo %s: %w", fileName, err)
	}
	thumb := filepath.Join(g.yearDir(year), thumbsSubdir, thumbFileName(fileName))
	if err := os.Remove(thumb); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove thumbnail for %s: %w", fileName, err)
	}
	return nil
}

func (g *Gallery) photoFor(year, name string, info fs.FileInfo) Photo {
	p := Photo{
		FileName:   name,
		Year:       year,
		URL:        "/uploads/" + year + "/" + name,
		UploadedAt: info.ModTime().UTC(),
		Size:       info.Size(),
	}
	thumb := filepath.Join(g.yearDir(year), thumbsSubdir, thumbFileName(name))
	if _, err := os.Stat(thumb); err == nil {
		p.ThumbnailURL = "/uploads/" + year + "/" + thumbsSubdir + "/" + thumbFileName(name)
	}
	return p
}
