// Package sniff classifies archive entries by their leading bytes.
package sniff

import (
	"bytes"
	"io"
)

// Category is the kind of content an entry holds
type Category int

const (
	// Binary is anything that is not recognized
	Binary Category = iota
	// Wav is a RIFF container, normally WAVE audio
	Wav
	// Midi is a standard MIDI file
	Midi
	// Image is a decoded GLB image
	Image
)

var signatures = []struct {
	magic    []byte
	category Category
}{
	{[]byte("RIFF"), Wav},
	{[]byte("MThd"), Midi},
}

// SignatureSize is the number of leading bytes needed by Classify
const SignatureSize = 4

// Classify returns the category for content starting with b.
func Classify(b []byte) Category {
	if len(b) < SignatureSize {
		return Binary
	}
	for _, s := range signatures {
		if bytes.Equal(b[:SignatureSize], s.magic) {
			return s.category
		}
	}
	return Binary
}

// ClassifyReader reads the leading bytes of r and classifies them.
func ClassifyReader(r io.Reader) (Category, error) {
	var b [SignatureSize]byte
	n, err := io.ReadFull(r, b[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Binary, err
	}
	return Classify(b[:n]), nil
}

func (c Category) String() string {
	switch c {
	case Wav:
		return "wav"
	case Midi:
		return "midi"
	case Image:
		return "image"
	default:
		return "binary"
	}
}

// Dir returns the output subdirectory for the category.
func (c Category) Dir() string {
	switch c {
	case Wav:
		return "audio"
	case Midi:
		return "midi"
	case Image:
		return "images"
	default:
		return "binary"
	}
}

// Ext returns the filename extension for raw content of the category.
// Images are written in whichever format was requested so have none.
func (c Category) Ext() string {
	switch c {
	case Wav:
		return "wav"
	case Midi:
		return "mid"
	case Binary:
		return "bin"
	default:
		return ""
	}
}

// Categories returns every category in a fixed order.
func Categories() []Category {
	return []Category{Image, Wav, Midi, Binary}
}
