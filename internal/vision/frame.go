package vision

import (
	"image"
	"image/color"
)

// Frame is a decoded video frame in packed RGB24 layout
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a black frame
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// FromImage converts any image into an RGB24 frame
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			f.Pix[i] = uint8(r >> 8)
			f.Pix[i+1] = uint8(g >> 8)
			f.Pix[i+2] = uint8(bl >> 8)
			i += 3
		}
	}
	return f
}

// Set paints one pixel
func (f *Frame) Set(x, y int, c color.RGBA) {
	i := (y*f.Width + x) * 3
	f.Pix[i] = c.R
	f.Pix[i+1] = c.G
	f.Pix[i+2] = c.B
}

// Fill paints the whole frame with one color
func (f *Frame) Fill(c color.RGBA) {
	for i := 0; i+2 < len(f.Pix); i += 3 {
		f.Pix[i] = c.R
		f.Pix[i+1] = c.G
		f.Pix[i+2] = c.B
	}
}

// Gray converts the frame to 8-bit luminance into dst (allocated when too small).
// Uses the fixed-point BT.601 weights 0.299/0.587/0.114.
func (f *Frame) Gray(dst []uint8) []uint8 {
	n := f.Width * f.Height
	if cap(dst) < n {
		dst = make([]uint8, n)
	}
	dst = dst[:n]
	for i, p := 0, 0; i < n; i, p = i+1, p+3 {
		r := uint32(f.Pix[p])
		g := uint32(f.Pix[p+1])
		b := uint32(f.Pix[p+2])
		dst[i] = uint8((r*4899 + g*9617 + b*1868 + 8192) >> 14)
	}
	return dst
}

// Image exposes the frame as an image.Image for encoding
func (f *Frame) Image() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	for i, p := 0, 0; p+2 < len(f.Pix); i, p = i+4, p+3 {
		img.Pix[i] = f.Pix[p]
		img.Pix[i+1] = f.Pix[p+1]
		img.Pix[i+2] = f.Pix[p+2]
		img.Pix[i+3] = 0xff
	}
	return img
}
