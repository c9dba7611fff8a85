package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgbeHeader(w, h int) []byte {
	var b bytes.Buffer
	b.WriteString("#?RADIANCE\n")
	b.WriteString("FORMAT=32-bit_rle_rgbe\n\n")
	b.WriteString("-Y ")
	b.WriteString(strconv.Itoa(h))
	b.WriteString(" +X ")
	b.WriteString(strconv.Itoa(w))
	b.WriteString("\n")
	return b.Bytes()
}

func TestDecodeRGBEFlat(t *testing.T) {
	data := rgbeHeader(2, 1)
	// exponent 129 -> scale 2^(129-136) = 1/128; mantissa 127 -> (127.5)/128
	data = append(data, 127, 0, 0, 129, 0, 0, 0, 0)

	img, err := DecodeRGBE("flat", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, img.Width)
	assert.Equal(t, 1, img.Height)
	assert.True(t, img.HDR)
	assert.InDelta(t, 127.5/128.0, img.At(0, 0).X(), 1e-6)
	assert.Equal(t, mgl32.Vec3{}, img.At(1, 0))
}

func TestDecodeRGBERunLength(t *testing.T) {
	const w = 8
	data := rgbeHeader(w, 1)
	data = append(data, 2, 2, 0, w)
	// R: run of 8 x 64, G: literal 8 zeros, B: run of 8 zeros, E: run of 8 x 128
	data = append(data, 128+w, 64)
	data = append(data, w, 0, 0, 0, 0, 0, 0, 0, 0)
	data = append(data, 128+w, 0)
	data = append(data, 128+w, 128)

	img, err := DecodeRGBE("rle", bytes.NewReader(data))
	require.NoError(t, err)
	for x := 0; x < w; x++ {
		assert.InDelta(t, 64.5/256.0, img.At(x, 0).X(), 1e-6)
		assert.InDelta(t, 0.5/256.0, img.At(x, 0).Y(), 1e-6)
	}
}

func TestDecodeRGBERejectsOtherFiles(t *testing.T) {
	_, err := DecodeRGBE("png", bytes.NewReader([]byte("\x89PNG\r\n")))
	assert.ErrorIs(t, err, ErrNotRadiance)
}

func TestDecodeRGBECorruptRun(t *testing.T) {
	const w = 8
	data := rgbeHeader(w, 1)
	data = append(data, 2, 2, 0, w, 128+w+1, 1)

	_, err := DecodeRGBE("bad", bytes.NewReader(data))
	assert.ErrorIs(t, err, ErrCorruptScanline)
}

func TestDecodePNGIsLinearised(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1, 1))
	src.Set(0, 0, color.RGBA{R: 255, G: 128, B: 0, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := Decode("px.png", ".png", &buf)
	require.NoError(t, err)
	c := img.At(0, 0)
	assert.InDelta(t, 1.0, c.X(), 1e-4)
	assert.InDelta(t, SRGBToLinear(128.0/255.0), c.Y(), 1e-3)
	assert.False(t, img.HDR)
}

func TestSRGBRoundTrip(t *testing.T) {
	for _, v := range []float32{0, 0.001, 0.2, 0.5, 1} {
		assert.InDelta(t, v, SRGBToLinear(LinearToSRGB(v)), 1e-5)
	}
}

func TestSampleDirection(t *testing.T) {
	img := NewImage("env", 4, 2)
	img.Set(2, 0, mgl32.Vec3{1, 0, 0}) // upper hemisphere, facing -Z
	img.Set(2, 1, mgl32.Vec3{0, 0, 1}) // lower hemisphere, facing -Z

	assert.Equal(t, mgl32.Vec3{1, 0, 0}, img.SampleDirection(mgl32.Vec3{0, 0.5, -1}))
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, img.SampleDirection(mgl32.Vec3{0, -0.5, -1}))

	var nilImg *Image
	assert.Equal(t, mgl32.Vec3{}, nilImg.SampleDirection(mgl32.Vec3{0, 1, 0}))
}
