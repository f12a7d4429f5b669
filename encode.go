package glb

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"sort"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/bmp"
)

// Format is an output image format
type Format int

// Supported image formats
const (
	PNG Format = iota
	BMP
	GIF
)

const maxGIFColors = 256

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "png":
		return PNG, nil
	case "bmp":
		return BMP, nil
	case "gif":
		return GIF, nil
	default:
		return PNG, fmt.Errorf("unknown image format %q", s)
	}
}

// Ext returns the filename extension for the format.
func (f Format) Ext() string {
	switch f {
	case BMP:
		return "bmp"
	case GIF:
		return "gif"
	default:
		return "png"
	}
}

func (f Format) String() string {
	return f.Ext()
}

func pack(c color.Color) uint32 {
	r, g, b, a := c.RGBA()
	return r>>8<<24 | g>>8<<16 | b>>8<<8 | a>>8
}

// Return the colors used by m in a stable order, or false if there are more
// than limit of them
func uniqueColors(m image.Image, limit int) (color.Palette, bool) {
	b := m.Bounds()
	seen := make(map[uint32]color.Color)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := m.At(x, y)
			seen[pack(c)] = c
			if len(seen) > limit {
				return nil, false
			}
		}
	}

	keys := make([]uint32, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	p := make(color.Palette, 0, len(keys))
	for _, k := range keys {
		p = append(p, seen[k])
	}
	return p, true
}

func toPaletted(m image.Image) *image.Paletted {
	b := m.Bounds()

	p, ok := uniqueColors(m, maxGIFColors)
	if !ok {
		q := quantize.MedianCutQuantizer{}
		p = q.Quantize(make(color.Palette, 0, maxGIFColors), m)
	}

	pm := image.NewPaletted(b, p)
	draw.Draw(pm, b, m, b.Min, draw.Src)
	return pm
}

func encodeImage(w io.Writer, m image.Image, f Format) error {
	switch f {
	case BMP:
		return bmp.Encode(w, m)
	case GIF:
		return gif.Encode(w, toPaletted(m), nil)
	default:
		e := png.Encoder{CompressionLevel: png.BestCompression}
		return e.Encode(w, m)
	}
}
