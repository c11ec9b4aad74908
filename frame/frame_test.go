package frame

import (
	"errors"
	"testing"
)

func validDescriptor() *Descriptor {
	const w, h = 16, 10
	return &Descriptor{
		Quality:     75,
		Subsampling: Subsampling420,
		WindowID:    0xdeadbeef,
		StripHeight: 4,
		Width:       w,
		Height:      h,
		Pixels:      make([]byte, w*h*BytesPerPixel),
	}
}

func TestDescriptorValidate(t *testing.T) {
	if err := validDescriptor().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name    string
		mutate  func(*Descriptor)
		wantErr error
	}{
		{"quality low", func(d *Descriptor) { d.Quality = 0 }, ErrQualityRange},
		{"quality high", func(d *Descriptor) { d.Quality = 101 }, ErrQualityRange},
		{"subsampling", func(d *Descriptor) { d.Subsampling = Subsampling(99) }, ErrBadSubsampling},
		{"strip height", func(d *Descriptor) { d.StripHeight = 0 }, ErrBadStripHeight},
		{"dimensions", func(d *Descriptor) { d.Width = 0 }, ErrBadDimensions},
		{"payload", func(d *Descriptor) { d.Pixels = d.Pixels[:8] }, ErrShortPayload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDescriptor()
			tt.mutate(d)
			if err := d.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubsamplingString(t *testing.T) {
	tests := []struct {
		s    Subsampling
		want string
	}{
		{Subsampling444, "4:4:4"},
		{Subsampling422, "4:2:2"},
		{Subsampling420, "4:2:0"},
		{Subsampling411, "4:1:1"},
		{SubsamplingGray, "gray"},
		{Subsampling(7), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("Subsampling(%d).String() = %q, want %q", int(tt.s), got, tt.want)
		}
	}
}

func TestStripsCoverFrame(t *testing.T) {
	d := validDescriptor() // height 10, strip height 4 → 4+4+2
	strips := d.Strips()

	if len(strips) != 3 {
		t.Fatalf("len(Strips()) = %d, want 3", len(strips))
	}
	wantHeights := []int{4, 4, 2}
	y := 0
	total := 0
	for i, s := range strips {
		if s.Y != y {
			t.Errorf("strip %d Y = %d, want %d", i, s.Y, y)
		}
		if s.Height != wantHeights[i] {
			t.Errorf("strip %d Height = %d, want %d", i, s.Height, wantHeights[i])
		}
		if len(s.Pixels) != s.Height*d.RowPitch() {
			t.Errorf("strip %d payload = %d bytes, want %d", i, len(s.Pixels), s.Height*d.RowPitch())
		}
		y += s.Height
		total += len(s.Pixels)
	}
	if total != len(d.Pixels) {
		t.Errorf("strips cover %d bytes, want %d", total, len(d.Pixels))
	}
}

func TestStripsAliasPayload(t *testing.T) {
	d := validDescriptor()
	strips := d.Strips()

	d.Pixels[0] = 0xAB
	if strips[0].Pixels[0] != 0xAB {
		t.Error("strip payload is a copy, want alias of descriptor payload")
	}
}

func TestStripsSingleBand(t *testing.T) {
	d := validDescriptor()
	d.StripHeight = 100 // taller than the frame

	strips := d.Strips()
	if len(strips) != 1 || strips[0].Height != d.Height {
		t.Errorf("Strips() = %d bands, first height %d; want 1 band of %d",
			len(strips), strips[0].Height, d.Height)
	}
}

func TestPreviewBounds(t *testing.T) {
	d := validDescriptor()

	img := d.Preview(8)
	b := img.Bounds()
	if b.Dx() != 8 || b.Dy() != 5 {
		t.Errorf("Preview(8) bounds = %dx%d, want 8x5", b.Dx(), b.Dy())
	}

	// A frame already within bounds is not upscaled.
	img = d.Preview(64)
	b = img.Bounds()
	if b.Dx() != d.Width || b.Dy() != d.Height {
		t.Errorf("Preview(64) bounds = %dx%d, want %dx%d", b.Dx(), b.Dy(), d.Width, d.Height)
	}
}

func TestRowPitchDefault(t *testing.T) {
	d := validDescriptor()
	if got := d.RowPitch(); got != d.Width*BytesPerPixel {
		t.Errorf("RowPitch() = %d, want %d", got, d.Width*BytesPerPixel)
	}
	d.Pitch = 128
	if got := d.RowPitch(); got != 128 {
		t.Errorf("RowPitch() with explicit pitch = %d, want 128", got)
	}
}
