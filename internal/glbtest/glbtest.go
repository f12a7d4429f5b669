/*
Package glbtest builds GLB archives and entry payloads in memory for use in
tests.
*/
package glbtest

import (
	"bytes"
	"encoding/binary"
)

// Magic is written as the header of every built archive
var Magic = [8]byte{'G', 'L', 'B', 'F', 'I', 'L', 'E', 0}

// File is one entry to be stored in an archive.
type File struct {
	Name string
	Data []byte
}

func write(b *bytes.Buffer, v interface{}) {
	if err := binary.Write(b, binary.LittleEndian, v); err != nil {
		panic(err)
	}
}

// Archive returns an archive containing files in the given order.
func Archive(files ...File) []byte {
	b := new(bytes.Buffer)
	b.Write(Magic[:])
	write(b, int32(len(files)))
	write(b, int32(0))

	offset := uint32(16 + 28*len(files))
	for _, f := range files {
		var name [20]byte
		copy(name[:], f.Name)
		write(b, offset)
		write(b, uint32(len(f.Data)))
		b.Write(name[:])
		offset += uint32(len(f.Data))
	}

	for _, f := range files {
		b.Write(f.Data)
	}

	return b.Bytes()
}

// Palette returns a palette payload with the given 6-bit colors at the start
// and black for the remaining entries.
func Palette(colors ...[3]byte) []byte {
	b := make([]byte, 768)
	for i, c := range colors {
		copy(b[i*3:], c[:])
	}
	return b
}

// Raw returns a raw paletted image payload.
func Raw(width, height int32, indices []byte) []byte {
	b := new(bytes.Buffer)
	write(b, width)
	write(b, height)
	write(b, int32(1))
	b.Write(indices)
	return b.Bytes()
}

// Run is one horizontal run of an RLE image.
type Run struct {
	X, Y    int32
	Indices []byte
}

// RLE returns a run-length image payload terminated by a count of -1.
func RLE(width, height int32, runs ...Run) []byte {
	b := new(bytes.Buffer)
	write(b, width)
	write(b, height)
	write(b, int32(0))
	b.Write(make([]byte, 4*height))
	for _, r := range runs {
		write(b, r.X)
		write(b, r.Y)
		write(b, int32(len(r.Indices)))
		b.Write(r.Indices)
	}
	write(b, []int32{0, 0, -1})
	return b.Bytes()
}
