package texture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Load reads an environment or material texture from disk. Radiance files (.hdr, .pic)
// decode to HDR linear values; everything else goes through image.Decode and is
// treated as sRGB encoded.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := Decode(filepath.Base(path), filepath.Ext(path), f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	img.Path = path
	return img, nil
}

// Decode decodes r according to the file extension ext (with or without the dot).
func Decode(name, ext string, r io.Reader) (*Image, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "hdr", "pic", "rgbe":
		return DecodeRGBE(name, r)
	}
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	return FromImage(name, src), nil
}
