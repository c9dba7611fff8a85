package texture

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Image is a linear-light RGB float image held on the CPU until a device uploads it.
// Environment maps are stored equirectangular.
type Image struct {
	Name   string
	Path   string
	Width  int
	Height int
	Pix    []float32 // RGB triplets, row-major, top row first
	HDR    bool      // decoded from a high dynamic range source
}

// NewImage allocates a black image.
func NewImage(name string, width, height int) *Image {
	return &Image{
		Name:   name,
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*3),
	}
}

// At returns the linear RGB value at x, y. Out-of-range coordinates are clamped.
func (img *Image) At(x, y int) mgl32.Vec3 {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return mgl32.Vec3{}
	}
	x = clampInt(x, 0, img.Width-1)
	y = clampInt(y, 0, img.Height-1)
	i := (y*img.Width + x) * 3
	return mgl32.Vec3{img.Pix[i], img.Pix[i+1], img.Pix[i+2]}
}

// Set writes a linear RGB value at x, y. Out-of-range writes are ignored.
func (img *Image) Set(x, y int, c mgl32.Vec3) {
	if x < 0 || y < 0 || x >= img.Width || y >= img.Height {
		return
	}
	i := (y*img.Width + x) * 3
	img.Pix[i], img.Pix[i+1], img.Pix[i+2] = c[0], c[1], c[2]
}

// SampleDirection looks up an equirectangular map along a world-space direction
// (nearest texel, +Y up, -Z forward at the horizontal centre of the map).
func (img *Image) SampleDirection(dir mgl32.Vec3) mgl32.Vec3 {
	if img == nil || img.Width == 0 {
		return mgl32.Vec3{}
	}
	d := dir.Normalize()
	u := 0.5 + math.Atan2(float64(d.X()), float64(-d.Z()))/(2*math.Pi)
	v := math.Acos(float64(mgl32.Clamp(d.Y(), -1, 1))) / math.Pi
	x := int(u * float64(img.Width))
	y := int(v * float64(img.Height))
	return img.At(x%img.Width, y)
}

// FromImage converts an 8-bit (sRGB encoded) image into linear float RGB.
func FromImage(name string, src image.Image) *Image {
	b := src.Bounds()
	out := NewImage(name, b.Dx(), b.Dy())
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Set(x, y, mgl32.Vec3{
				SRGBToLinear(float32(r) / 0xffff),
				SRGBToLinear(float32(g) / 0xffff),
				SRGBToLinear(float32(bl) / 0xffff),
			})
		}
	}
	return out
}

// SRGBToLinear decodes one sRGB transfer-encoded channel.
func SRGBToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow(float64((c+0.055)/1.055), 2.4))
}

// LinearToSRGB encodes one linear channel with the sRGB transfer function.
func LinearToSRGB(c float32) float32 {
	if c <= 0.0031308 {
		return c * 12.92
	}
	return 1.055*float32(math.Pow(float64(c), 1/2.4)) - 0.055
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
