/*
Package palette implements the 256 color lookup table used by GLB images.

The table is stored as 768 bytes, one (R, G, B) triple per index. Each channel
only uses the low 6 bits of its byte, as per VGA DAC registers, and is expanded
to 8 bits by replicating the top bits into the bottom so that both black and
full intensity are preserved exactly.
*/
package palette

import (
	"errors"
	"image/color"
	"io"
)

const (
	// Name is the archive entry name that carries a palette
	Name = "palette"

	// NumColors is the number of entries in a palette
	NumColors = 256

	// Size is the length in bytes of an encoded palette
	Size = NumColors * 3
)

var errNotEnough = errors.New("palette: not enough data")

// Palette is a table of 256 opaque colors. The zero value is an all black
// table.
type Palette struct {
	colors [NumColors]color.RGBA
	loaded bool
}

// New returns an empty palette.
func New() *Palette {
	return new(Palette)
}

func expand(v byte) byte {
	v &= 0x3f
	return v<<2 | v>>4
}

// Load reads exactly Size bytes from r and replaces the whole table. On error
// the previous table is left untouched.
func (p *Palette) Load(r io.Reader) error {
	var b [Size]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errNotEnough
		}
		return err
	}
	return p.UnmarshalBinary(b[:])
}

// UnmarshalBinary decodes a palette from its 768 byte form.
func (p *Palette) UnmarshalBinary(b []byte) error {
	if len(b) < Size {
		return errNotEnough
	}

	var colors [NumColors]color.RGBA
	for i := range colors {
		colors[i] = color.RGBA{
			expand(b[i*3]),
			expand(b[i*3+1]),
			expand(b[i*3+2]),
			0xff,
		}
	}

	p.colors = colors
	p.loaded = true

	return nil
}

// Lookup returns the color at index i.
func (p *Palette) Lookup(i uint8) color.RGBA {
	c := p.colors[i]
	c.A = 0xff
	return c
}

// Loaded reports whether a table has been loaded since the palette was
// created.
func (p *Palette) Loaded() bool {
	return p.loaded
}

// Clone returns an independent copy of the palette.
func (p *Palette) Clone() *Palette {
	dup := *p
	return &dup
}

// Colors returns the table as a color.Palette.
func (p *Palette) Colors() color.Palette {
	cp := make(color.Palette, NumColors)
	for i := range cp {
		cp[i] = p.Lookup(uint8(i))
	}
	return cp
}
