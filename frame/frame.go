// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package frame defines the value type describing one rendered frame's
// transport parameters.
//
// A Descriptor is produced by the rendering path and consumed by the
// transport. Its pixel payload is exclusively owned by the producer
// until the descriptor is handed to the transport, and by the transport
// until the send completes; there are no implicit copies across that
// boundary.
package frame

import (
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// BytesPerPixel is the payload pixel size. Payloads are RGBA, laid out
// row by row with the descriptor's Pitch.
const BytesPerPixel = 4

// DefaultStripHeight is the default number of rows per transmission
// unit. Strips bound the latency and memory use of one send.
const DefaultStripHeight = 64

// Subsampling identifies the chroma-reduction scheme the codec applies
// before compression. The set is closed; the transport only carries the
// tag.
type Subsampling uint8

const (
	// Subsampling444 keeps full chroma resolution.
	Subsampling444 Subsampling = iota

	// Subsampling422 halves chroma horizontally.
	Subsampling422

	// Subsampling420 halves chroma in both directions.
	Subsampling420

	// Subsampling411 quarters chroma horizontally.
	Subsampling411

	// SubsamplingGray discards chroma entirely.
	SubsamplingGray
)

// String returns the conventional name of the subsampling mode.
func (s Subsampling) String() string {
	switch s {
	case Subsampling444:
		return "4:4:4"
	case Subsampling422:
		return "4:2:2"
	case Subsampling420:
		return "4:2:0"
	case Subsampling411:
		return "4:1:1"
	case SubsamplingGray:
		return "gray"
	default:
		return "unknown"
	}
}

// valid reports whether s is a member of the closed set.
func (s Subsampling) valid() bool { return s <= SubsamplingGray }

// Validation errors.
var (
	ErrQualityRange   = errors.New("frame: quality outside [1,100]")
	ErrBadSubsampling = errors.New("frame: unknown subsampling mode")
	ErrBadStripHeight = errors.New("frame: strip height must be positive")
	ErrBadDimensions  = errors.New("frame: non-positive dimensions")
	ErrShortPayload   = errors.New("frame: payload shorter than height*pitch")
)

// Descriptor describes one rendered frame. It is a pure value type: no
// behavior beyond construction, validation, and field access. Once
// populated it is handed to the transport exactly once and must not be
// mutated concurrently with that handoff.
type Descriptor struct {
	// Quality is the compression quality in [1,100].
	Quality int

	// Subsampling is the chroma-reduction scheme tag.
	Subsampling Subsampling

	// WindowID is the opaque 64-bit handle of the destination window,
	// externally assigned.
	WindowID uint64

	// StripHeight is the number of rows per transmission unit. Must be
	// positive.
	StripHeight int

	// Width and Height are the frame dimensions in pixels.
	Width, Height int

	// Pitch is the payload stride in bytes per row. Zero means the
	// packed default Width*BytesPerPixel.
	Pitch int

	// Pixels is the RGBA payload. Ownership transfers to the transport
	// when the descriptor is enqueued and returns when the send
	// completes.
	Pixels []byte
}

// RowPitch returns the effective stride in bytes per row.
func (d *Descriptor) RowPitch() int {
	if d.Pitch > 0 {
		return d.Pitch
	}
	return d.Width * BytesPerPixel
}

// Validate checks the descriptor's field invariants.
func (d *Descriptor) Validate() error {
	if d.Quality < 1 || d.Quality > 100 {
		return fmt.Errorf("%w: %d", ErrQualityRange, d.Quality)
	}
	if !d.Subsampling.valid() {
		return fmt.Errorf("%w: %d", ErrBadSubsampling, d.Subsampling)
	}
	if d.StripHeight <= 0 {
		return fmt.Errorf("%w: %d", ErrBadStripHeight, d.StripHeight)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrBadDimensions, d.Width, d.Height)
	}
	if len(d.Pixels) < d.Height*d.RowPitch() {
		return fmt.Errorf("%w: have %d, need %d", ErrShortPayload,
			len(d.Pixels), d.Height*d.RowPitch())
	}
	return nil
}

// Strip is one horizontal band of a frame, transmitted as a unit.
type Strip struct {
	// Y is the row offset of the strip within the frame.
	Y int

	// Height is the number of rows in the strip; at most StripHeight,
	// smaller for the final band.
	Height int

	// Pixels aliases the descriptor payload, it is not a copy.
	Pixels []byte
}

// Strips splits the frame into horizontal bands of at most StripHeight
// rows. The returned strips alias the descriptor payload.
func (d *Descriptor) Strips() []Strip {
	pitch := d.RowPitch()
	strips := make([]Strip, 0, (d.Height+d.StripHeight-1)/d.StripHeight)
	for y := 0; y < d.Height; y += d.StripHeight {
		h := d.StripHeight
		if y+h > d.Height {
			h = d.Height - y
		}
		strips = append(strips, Strip{
			Y:      y,
			Height: h,
			Pixels: d.Pixels[y*pitch : (y+h)*pitch],
		})
	}
	return strips
}

// Preview returns a downscaled copy of the frame no larger than maxDim
// on either axis, for diagnostics dumps. The frame itself is never
// scaled on the transport path.
func (d *Descriptor) Preview(maxDim int) *image.RGBA {
	src := &image.RGBA{
		Pix:    d.Pixels,
		Stride: d.RowPitch(),
		Rect:   image.Rect(0, 0, d.Width, d.Height),
	}

	w, h := d.Width, d.Height
	if w > maxDim || h > maxDim {
		if w >= h {
			h = h * maxDim / w
			w = maxDim
		} else {
			w = w * maxDim / h
			h = maxDim
		}
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}
