package imageprep

import (
	"bytes"
	"fmt"

	"task-agent/internal/application/port/output"

	"github.com/disintegration/imaging"
)

var _ output.ImagePort = (*Preparer)(nil)

const (
	DefaultMaxSide = 1024
	defaultQuality = 80
)

// Preparer shrinks images to fit the vision model's input and re-encodes
// them as JPEG.
type Preparer struct {
	maxSide int
	quality int
}

func NewPreparer(maxSide int) *Preparer {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	return &Preparer{maxSide: maxSide, quality: defaultQuality}
}

func (p *Preparer) Prepare(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("image is empty")
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("image decode failed: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > p.maxSide || b.Dy() > p.maxSide {
		img = imaging.Fit(img, p.maxSide, p.maxSide, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		return nil, "", fmt.Errorf("jpeg encode failed: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
