package soupnight

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

const thumbJPEGQuality = 80

// makeThumbnail decodes an image, scales it down to at most maxWidth
// pixels wide, and encodes it as JPEG. Images already narrower than
// maxWidth are re-encoded at their original size.
func makeThumbnail(data []byte, maxWidth int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxWidth {
		newH := h * maxWidth / w
		dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: thumbJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// thumbFileName maps a stored photo name to its thumbnail name.
// Thumbnails are always JPEG regardless of the source format.
func thumbFileName(fileName string) string {
	ext := filepath.Ext(fileName)
	return strings.TrimSuffix(fileName, ext) + ".jpg"
}

// writeThumb generates and stores a thumbnail for a saved photo. It is
// best-effort: the upload itself is gated on the declared content type,
// so bytes that do not decode simply get no thumbnail.
func (g *Gallery) writeThumb(year, fileName string, data []byte) {
	thumb, err := makeThumbnail(data, g.thumbWidth)
	if err != nil {
		return
	}
	dir := filepath.Join(g.yearDir(year), thumbsSubdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, thumbFileName(fileName)), thumb, 0o644)
}
