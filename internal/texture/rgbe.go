package texture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

var (
	ErrNotRadiance      = errors.New("texture: not a Radiance HDR file")
	ErrUnsupportedRGBE  = errors.New("texture: unsupported Radiance pixel format")
	ErrCorruptScanline  = errors.New("texture: corrupt RGBE scanline")
	ErrUnsupportedOrder = errors.New("texture: unsupported Radiance image orientation")
)

// DecodeRGBE reads a Radiance .hdr image (32-bit_rle_rgbe) into linear float RGB.
// Both flat and new-style run-length encoded scanlines are accepted.
func DecodeRGBE(name string, r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	magic, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !strings.HasPrefix(magic, "#?") {
		return nil, ErrNotRadiance
	}

	exposure := float32(1)
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		if line == "" {
			break
		}
		switch {
		case strings.HasPrefix(line, "FORMAT="):
			if f := strings.TrimPrefix(line, "FORMAT="); f != "32-bit_rle_rgbe" {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedRGBE, f)
			}
		case strings.HasPrefix(line, "EXPOSURE="):
			if e, err := strconv.ParseFloat(strings.TrimPrefix(line, "EXPOSURE="), 32); err == nil && e > 0 {
				exposure *= float32(e)
			}
		}
	}

	res, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("read resolution: %w", err)
	}
	var width, height int
	if _, err := fmt.Sscanf(res, "-Y %d +X %d", &height, &width); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOrder, res)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrCorruptScanline, width, height)
	}

	img := NewImage(name, width, height)
	img.HDR = true
	scan := make([]byte, width*4)
	for y := 0; y < height; y++ {
		if err := readScanline(br, scan, width); err != nil {
			return nil, fmt.Errorf("scanline %d: %w", y, err)
		}
		for x := 0; x < width; x++ {
			rr, gg, bb := rgbeToFloat(scan[x*4], scan[x*4+1], scan[x*4+2], scan[x*4+3])
			i := (y*width + x) * 3
			img.Pix[i] = rr / exposure
			img.Pix[i+1] = gg / exposure
			img.Pix[i+2] = bb / exposure
		}
	}
	return img, nil
}

func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readScanline fills dst with width RGBE quads, decoding RLE when present.
func readScanline(br *bufio.Reader, dst []byte, width int) error {
	head := make([]byte, 4)
	if _, err := io.ReadFull(br, head); err != nil {
		return err
	}
	isRLE := width >= 8 && width < 0x8000 && head[0] == 2 && head[1] == 2 && head[2]&0x80 == 0
	if !isRLE {
		copy(dst, head)
		_, err := io.ReadFull(br, dst[4:])
		return err
	}
	if int(head[2])<<8|int(head[3]) != width {
		return ErrCorruptScanline
	}

	// Channels are stored planar, each run-length encoded on its own.
	for ch := 0; ch < 4; ch++ {
		for x := 0; x < width; {
			count, err := br.ReadByte()
			if err != nil {
				return err
			}
			if count > 128 {
				n := int(count - 128)
				if x+n > width {
					return ErrCorruptScanline
				}
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				for ; n > 0; n-- {
					dst[x*4+ch] = v
					x++
				}
				continue
			}
			n := int(count)
			if n == 0 || x+n > width {
				return ErrCorruptScanline
			}
			for ; n > 0; n-- {
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				dst[x*4+ch] = v
				x++
			}
		}
	}
	return nil
}

func rgbeToFloat(r, g, b, e byte) (float32, float32, float32) {
	if e == 0 {
		return 0, 0, 0
	}
	f := float32(math.Ldexp(1, int(e)-(128+8)))
	return (float32(r) + 0.5) * f, (float32(g) + 0.5) * f, (float32(b) + 0.5) * f
}
