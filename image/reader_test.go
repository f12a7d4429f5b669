package image

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io/ioutil"
	"io"
	"log"
	"runtime"
	"testing"

	"github.com/bodgit/glb/internal/glbtest"
	"github.com/bodgit/glb/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	red         = color.RGBA{0xff, 0x00, 0x00, 0xff}
	green       = color.RGBA{0x00, 0xff, 0x00, 0xff}
	blue        = color.RGBA{0x00, 0x00, 0xff, 0xff}
	grey        = color.RGBA{0x82, 0x82, 0x82, 0xff}
	black       = color.RGBA{0x00, 0x00, 0x00, 0xff}
	transparent = color.RGBA{}
)

func testPalette(t *testing.T) *palette.Palette {
	p := palette.New()
	require.NoError(t, p.UnmarshalBinary(glbtest.Palette(
		[3]byte{0, 0, 0},
		[3]byte{63, 0, 0},
		[3]byte{0, 63, 0},
		[3]byte{0, 0, 63},
		[3]byte{32, 32, 32},
	)))
	return p
}

func TestDecodeRaw(t *testing.T) {
	b := glbtest.Raw(3, 2, []byte{
		1, 2, 3,
		4, 0, 1,
	})

	m, err := Decode(bytes.NewReader(b), testPalette(t))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 3, 2), m.Bounds())

	want := [][]color.RGBA{
		{red, green, blue},
		{grey, black, red},
	}
	for y, row := range want {
		for x, c := range row {
			assert.Equal(t, c, m.At(x, y), "pixel (%d, %d)", x, y)
		}
	}
	assert.True(t, m.(*image.RGBA).Opaque())
}

func TestDecodeRawTruncated(t *testing.T) {
	b := glbtest.Raw(3, 2, []byte{1, 2, 3, 4})

	_, err := Decode(bytes.NewReader(b), testPalette(t))
	assert.Equal(t, ErrNotEnough, err)
}

func allocated(fn func()) uint64 {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	fn()
	runtime.ReadMemStats(&after)
	return after.TotalAlloc - before.TotalAlloc
}

func TestDecodeTooLittleData(t *testing.T) {
	rleTable := new(bytes.Buffer)
	binary.Write(rleTable, binary.LittleEndian, []int32{65535, 65535, formatRLE})
	rleTable.Write(make([]byte, 100))

	tests := map[string]func() io.Reader{
		"raw bytes reader": func() io.Reader {
			return bytes.NewReader(glbtest.Raw(65535, 65535, nil))
		},
		"raw section reader": func() io.Reader {
			b := glbtest.Raw(65535, 65535, make([]byte, 64))
			// Trailing bytes after the section must not count
			b = append(b, make([]byte, 64)...)
			return io.NewSectionReader(bytes.NewReader(b), 0, int64(len(b)-64))
		},
		"rle offset table": func() io.Reader {
			return io.NewSectionReader(bytes.NewReader(rleTable.Bytes()), 0, int64(rleTable.Len()))
		},
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			r := fn()
			var err error
			n := allocated(func() {
				_, err = Decode(r, testPalette(t))
			})
			assert.Equal(t, ErrNotEnough, err)
			assert.Less(t, n, uint64(1<<20))
		})
	}
}

func TestDecodeUnsizedReader(t *testing.T) {
	b := glbtest.Raw(2, 1, []byte{1, 2})
	r := io.MultiReader(bytes.NewReader(b[:5]), bytes.NewReader(b[5:]))

	m, err := Decode(r, testPalette(t))
	require.NoError(t, err)
	assert.Equal(t, red, m.At(0, 0))
	assert.Equal(t, green, m.At(1, 0))

	_, err = Decode(io.MultiReader(bytes.NewReader(glbtest.Raw(3, 3, []byte{1}))), testPalette(t))
	assert.Equal(t, ErrNotEnough, err)
}

func TestDecodeRLE(t *testing.T) {
	b := glbtest.RLE(4, 3,
		glbtest.Run{X: 0, Y: 0, Indices: []byte{1, 2}},
		glbtest.Run{X: 1, Y: 2, Indices: []byte{3, 4, 3}},
	)

	m, err := Decode(bytes.NewReader(b), testPalette(t))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), m.Bounds())

	want := [][]color.RGBA{
		{red, green, transparent, transparent},
		{transparent, transparent, transparent, transparent},
		{transparent, blue, grey, blue},
	}
	for y, row := range want {
		for x, c := range row {
			assert.Equal(t, c, m.At(x, y), "pixel (%d, %d)", x, y)
		}
	}
}

func TestDecodeRLEOverlap(t *testing.T) {
	b := glbtest.RLE(3, 1,
		glbtest.Run{X: 0, Y: 0, Indices: []byte{1, 1, 1}},
		glbtest.Run{X: 1, Y: 0, Indices: []byte{2}},
		glbtest.Run{X: 0, Y: 0, Indices: nil},
	)

	m, err := Decode(bytes.NewReader(b), testPalette(t))
	require.NoError(t, err)
	assert.Equal(t, red, m.At(0, 0))
	assert.Equal(t, green, m.At(1, 0))
	assert.Equal(t, red, m.At(2, 0))
}

func TestDecodeRLEOutOfBounds(t *testing.T) {
	b := glbtest.RLE(2, 2,
		glbtest.Run{X: 1, Y: 0, Indices: []byte{1, 2, 3}},
		glbtest.Run{X: 0, Y: 2, Indices: []byte{3}},
		glbtest.Run{X: 0, Y: 1, Indices: []byte{4}},
	)

	var out bytes.Buffer
	dec := Decoder{
		Palette: testPalette(t),
		Logger:  log.New(&out, "", 0),
	}

	m, err := dec.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, transparent, m.At(0, 0))
	assert.Equal(t, red, m.At(1, 0))
	assert.Equal(t, grey, m.At(0, 1))
	assert.Contains(t, out.String(), "Run at (1, 0) has 2 pixels outside")
	assert.Contains(t, out.String(), "Run at (0, 2) has 1 pixels outside")
}

func TestDecodeRLETerminator(t *testing.T) {
	b := glbtest.RLE(2, 1, glbtest.Run{X: 0, Y: 0, Indices: []byte{1}})
	trailer := []byte{0xde, 0xad, 0xbe, 0xef}
	r := bytes.NewReader(append(b, trailer...))

	m, err := Decode(r, testPalette(t))
	require.NoError(t, err)
	assert.Equal(t, red, m.At(0, 0))
	assert.Equal(t, transparent, m.At(1, 0))

	// Nothing after the terminating run is consumed
	assert.Equal(t, len(trailer), r.Len())
}

func rleHeader(width, height int32) *bytes.Buffer {
	b := new(bytes.Buffer)
	binary.Write(b, binary.LittleEndian, []int32{width, height, formatRLE})
	b.Write(make([]byte, 4*height))
	return b
}

func TestDecodeRLECoordinateTerminators(t *testing.T) {
	tests := map[string][]int32{
		"negative x": {-1, 0, 1},
		"negative y": {0, -5, 1},
		"x too big":  {3, 0, 1},
		"y too big":  {0, 3, 1},
	}

	for name, triplet := range tests {
		t.Run(name, func(t *testing.T) {
			b := rleHeader(2, 2)
			binary.Write(b, binary.LittleEndian, triplet)
			b.WriteByte(1)
			r := bytes.NewReader(b.Bytes())

			m, err := Decode(r, testPalette(t))
			require.NoError(t, err)
			assert.Equal(t, transparent, m.At(0, 0))
			assert.Equal(t, 1, r.Len())
		})
	}
}

func TestDecodeRLEZeroCount(t *testing.T) {
	b := rleHeader(2, 1)
	binary.Write(b, binary.LittleEndian, []int32{0, 0, 0})
	binary.Write(b, binary.LittleEndian, []int32{1, 0, 1})
	b.WriteByte(2)

	// No terminator; the stream simply ends
	m, err := Decode(bytes.NewReader(b.Bytes()), testPalette(t))
	require.NoError(t, err)
	assert.Equal(t, transparent, m.At(0, 0))
	assert.Equal(t, green, m.At(1, 0))
}

func TestDecodeRLETruncated(t *testing.T) {
	tests := map[string][]byte{
		"offset table": func() []byte {
			b := rleHeader(2, 4)
			return b.Bytes()[:headerSize+6]
		}(),
		"run header": func() []byte {
			b := rleHeader(2, 1)
			b.Write([]byte{0, 0, 0, 0, 0})
			return b.Bytes()
		}(),
		"run data": func() []byte {
			b := rleHeader(2, 1)
			binary.Write(b, binary.LittleEndian, []int32{0, 0, 2})
			b.WriteByte(1)
			return b.Bytes()
		}(),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(data), testPalette(t))
			assert.Equal(t, ErrNotEnough, err)
		})
	}
}

func TestNotImage(t *testing.T) {
	tests := map[string][]byte{
		"width too big":  glbtest.Raw(65536, 1, nil),
		"height zero":    glbtest.Raw(1, 0, nil),
		"negative width": glbtest.Raw(-1, 1, nil),
		"short header":   []byte("RIFF\x10\x00"),
		"empty":          nil,
		"format 2": func() []byte {
			b := glbtest.Raw(1, 1, []byte{0})
			b[8] = 2
			return b
		}(),
		"wave": []byte("RIFF\x24\x00\x00\x00WAVEfmt "),
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := Decode(bytes.NewReader(data), testPalette(t))
			assert.Nil(t, m)
			assert.True(t, errors.Is(err, ErrNotImage), "got %v", err)
		})
	}
}

func TestMaximumDimensions(t *testing.T) {
	// Only the header is read; no canvas is needed to validate
	config, err := DecodeConfig(bytes.NewReader(glbtest.Raw(65535, 65535, nil)))
	require.NoError(t, err)
	assert.Equal(t, 65535, config.Width)
	assert.Equal(t, 65535, config.Height)
}

func TestDecodeConfig(t *testing.T) {
	config, err := DecodeConfig(bytes.NewReader(glbtest.RLE(7, 5)))
	require.NoError(t, err)
	assert.Equal(t, color.RGBAModel, config.ColorModel)
	assert.Equal(t, 7, config.Width)
	assert.Equal(t, 5, config.Height)

	_, err = DecodeConfig(bytes.NewReader(glbtest.Raw(0, 5, nil)))
	assert.True(t, errors.Is(err, ErrNotImage))
}

func TestDecodeWithoutPalette(t *testing.T) {
	dec := Decoder{Logger: log.New(ioutil.Discard, "", 0)}

	m, err := dec.Decode(bytes.NewReader(glbtest.Raw(1, 1, []byte{9})))
	require.NoError(t, err)
	assert.Equal(t, black, m.At(0, 0))
}
