package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"io/ioutil"
	"log"

	"github.com/bodgit/glb/palette"
)

var (
	// ErrNotImage is returned when the data does not describe an image
	ErrNotImage = errors.New("image: not an image")

	// ErrNotEnough is returned when the pixel data is truncated
	ErrNotEnough = errors.New("image: not enough image data")

	errEndOfRuns = errors.New("image: end of runs")
)

func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type header struct {
	Width  int32
	Height int32
	Format int32
}

func (h header) validate() error {
	if h.Width < 1 || h.Width > maxSize || h.Height < 1 || h.Height > maxSize {
		return fmt.Errorf("%w: invalid dimensions %dx%d", ErrNotImage, h.Width, h.Height)
	}
	switch h.Format {
	case formatRLE, formatRaw:
		return nil
	default:
		return fmt.Errorf("%w: unknown format %d", ErrNotImage, h.Format)
	}
}

// Smallest number of bytes that can follow the header
func (h header) minimumData() int64 {
	if h.Format == formatRaw {
		return int64(h.Width) * int64(h.Height)
	}
	return 4 * int64(h.Height)
}

// remaining returns how many unread bytes r holds, if it can tell
func remaining(r io.Reader) (int64, bool) {
	switch r := r.(type) {
	case interface{ Len() int }:
		return int64(r.Len()), true
	case interface{ Size() int64 }:
		if s, ok := r.(io.Seeker); ok {
			if pos, err := s.Seek(0, io.SeekCurrent); err == nil {
				return r.Size() - pos, true
			}
		}
	}
	return 0, false
}

func readHeader(r io.Reader) (header, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return h, fmt.Errorf("%w: short header", ErrNotImage)
		}
		return h, err
	}
	return h, h.validate()
}

type run struct {
	x, y  int32
	count int32
}

// runReader pulls runs from an RLE stream until the terminator
type runReader struct {
	r             io.Reader
	width, height int32
	done          bool
}

func (rr *runReader) next() (run, error) {
	if rr.done {
		return run{}, errEndOfRuns
	}

	var tmp [runSize]byte
	_, err := io.ReadFull(rr.r, tmp[:])
	switch {
	case err == io.EOF:
		// Stream ended cleanly on a run boundary
		rr.done = true
		return run{}, errEndOfRuns
	case err == io.ErrUnexpectedEOF:
		return run{}, ErrNotEnough
	case err != nil:
		return run{}, err
	}

	r := run{
		x:     int32(binary.LittleEndian.Uint32(tmp[0:])),
		y:     int32(binary.LittleEndian.Uint32(tmp[4:])),
		count: int32(binary.LittleEndian.Uint32(tmp[8:])),
	}

	if r.x < 0 || r.x > rr.width || r.y < 0 || r.y > rr.height || r.count == -1 {
		rr.done = true
		return run{}, errEndOfRuns
	}

	return r, nil
}

// A Decoder converts GLB image entries to images using the colors of
// Palette. Out of bounds pixels are reported to Logger if it is set.
type Decoder struct {
	Palette *palette.Palette
	Logger  *log.Logger
}

type decoder struct {
	r       io.Reader
	h       header
	palette *palette.Palette
	logger  *log.Logger

	image *image.RGBA
	tmp   [chunkSize]byte
}

func (d *decoder) decodeRaw() error {
	d.image = image.NewRGBA(image.Rect(0, 0, int(d.h.Width), int(d.h.Height)))

	for y := 0; y < int(d.h.Height); y++ {
		for x := 0; x < int(d.h.Width); {
			n := int(d.h.Width) - x
			if n > len(d.tmp) {
				n = len(d.tmp)
			}
			if err := readFull(d.r, d.tmp[:n]); err != nil {
				return err
			}
			for _, i := range d.tmp[:n] {
				d.image.SetRGBA(x, y, d.palette.Lookup(i))
				x++
			}
		}
	}

	return nil
}

func (d *decoder) paint(r run) error {
	bounds := d.image.Bounds()
	skipped := 0

	for i := 0; i < int(r.count); {
		n := int(r.count) - i
		if n > len(d.tmp) {
			n = len(d.tmp)
		}
		if err := readFull(d.r, d.tmp[:n]); err != nil {
			return err
		}
		for _, c := range d.tmp[:n] {
			p := image.Pt(int(r.x)+i, int(r.y))
			if p.In(bounds) {
				d.image.SetRGBA(p.X, p.Y, d.palette.Lookup(c))
			} else {
				skipped++
			}
			i++
		}
	}

	if skipped > 0 {
		d.logger.Printf("Run at (%d, %d) has %d pixels outside of %dx%d image\n", r.x, r.y, skipped, d.h.Width, d.h.Height)
	}

	return nil
}

func (d *decoder) decodeRLE() error {
	// Skip the per-row offset table
	if _, err := io.CopyN(ioutil.Discard, d.r, 4*int64(d.h.Height)); err != nil {
		if err == io.EOF {
			return io.ErrUnexpectedEOF
		}
		return err
	}

	// Every pixel starts as transparent black
	d.image = image.NewRGBA(image.Rect(0, 0, int(d.h.Width), int(d.h.Height)))

	rr := runReader{
		r:      d.r,
		width:  d.h.Width,
		height: d.h.Height,
	}

	for {
		r, err := rr.next()
		if err != nil {
			if err == errEndOfRuns {
				return nil
			}
			return err
		}
		if err := d.paint(r); err != nil {
			return err
		}
	}
}

func (d *decoder) decode(r io.Reader, configOnly bool) error {
	d.r = r

	h, err := readHeader(r)
	if err != nil {
		return err
	}
	d.h = h

	if configOnly {
		return nil
	}

	if n, ok := remaining(r); ok && n < d.h.minimumData() {
		return ErrNotEnough
	}

	switch d.h.Format {
	case formatRaw:
		err = d.decodeRaw()
	case formatRLE:
		err = d.decodeRLE()
	}

	if err == io.ErrUnexpectedEOF {
		return ErrNotEnough
	}
	return err
}

// Decode reads a GLB image from r and returns it as an image.Image. The
// error wraps ErrNotImage if r does not contain an image.
func (dec *Decoder) Decode(r io.Reader) (image.Image, error) {
	d := decoder{
		palette: dec.Palette,
		logger:  dec.Logger,
	}
	if d.palette == nil {
		d.palette = palette.New()
	}
	if d.logger == nil {
		d.logger = log.New(ioutil.Discard, "", 0)
	}
	if err := d.decode(r, false); err != nil {
		return nil, err
	}
	return d.image, nil
}

// Decode reads a GLB image from r using the colors from p.
func Decode(r io.Reader, p *palette.Palette) (image.Image, error) {
	dec := Decoder{Palette: p}
	return dec.Decode(r)
}

// DecodeConfig returns the color model and dimensions of a GLB image without
// decoding the entire image.
func DecodeConfig(r io.Reader) (image.Config, error) {
	var d decoder
	if err := d.decode(r, true); err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.RGBAModel,
		Width:      int(d.h.Width),
		Height:     int(d.h.Height),
	}, nil
}
