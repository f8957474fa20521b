package pipeline

import (
	"bytes"
	"image"
	"image/jpeg"

	"github.com/corona10/goimagehash"
	"github.com/nfnt/resize"

	"github.com/ahzs645/screencapture/internal/capture"
)

const defaultHashSize = 64

// deduper elides consecutive visually-identical video frames. Screen
// content sits still for long stretches; a difference hash over a
// downscaled copy catches that without comparing full frames.
type deduper struct {
	hashSize uint
	prev     *goimagehash.ImageHash
}

func newDeduper(hashSize int) *deduper {
	if hashSize <= 0 {
		hashSize = defaultHashSize
	}
	return &deduper{hashSize: uint(hashSize)}
}

// isDuplicate reports whether the frame perceptually matches the last
// written frame. Undecodable frames are never treated as duplicates.
func (d *deduper) isDuplicate(f *capture.SampleFrame) bool {
	img := decodeFrame(f)
	if img == nil {
		return false
	}

	small := resize.Resize(d.hashSize, 0, img, resize.Bilinear)
	hash, err := goimagehash.DifferenceHash(small)
	if err != nil {
		return false
	}

	if d.prev != nil {
		if dist, err := d.prev.Distance(hash); err == nil && dist == 0 {
			return true
		}
	}
	d.prev = hash
	return false
}

// decodeFrame interprets the frame payload as an image. BGRA frames are
// wrapped in place (channel order is irrelevant for perceptual distance);
// JPEG frames are decoded.
func decodeFrame(f *capture.SampleFrame) image.Image {
	switch f.PixelFormat {
	case capture.PixelFormatBGRA:
		if f.Width <= 0 || f.Height <= 0 || len(f.Data) < f.Width*f.Height*4 {
			return nil
		}
		return &image.RGBA{
			Pix:    f.Data,
			Stride: f.Width * 4,
			Rect:   image.Rect(0, 0, f.Width, f.Height),
		}
	case capture.PixelFormatJPEG:
		img, err := jpeg.Decode(bytes.NewReader(f.Data))
		if err != nil {
			return nil
		}
		return img
	default:
		return nil
	}
}
