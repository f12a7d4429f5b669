/*
Package archive implements reading of GLB multimedia archives.

An archive starts with a 16 byte header; 8 bytes of magic that are not
validated, a signed little-endian count of entries and a reserved 32-bit value.
This is followed by one 28 byte descriptor per entry holding the absolute offset
and length of the entry data and a 20 byte name padded with NUL or other control
bytes. Entry data is not compressed.
*/
package archive

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

const (
	headerSize     = 16
	nameSize       = 20
	descriptorSize = 8 + nameSize
)

var (
	// ErrNotFound is returned when the archive path does not exist
	ErrNotFound = errors.New("archive: file not found")

	// ErrTruncated is returned when the header or descriptor table is short
	ErrTruncated = errors.New("archive: truncated header or descriptor table")
)

// Header is the fixed archive header.
type Header struct {
	Magic    [8]byte
	Count    int32
	Reserved int32
}

type descriptor struct {
	Offset uint32
	Length uint32
	Name   [nameSize]byte
}

// Entry describes one file stored in the archive.
type Entry struct {
	Index  int
	Offset uint32
	Length uint32
	Name   string
}

// End returns the offset one past the last byte of the entry.
func (e Entry) End() int64 {
	return int64(e.Offset) + int64(e.Length)
}

// Option configures a Reader.
type Option func(*Reader)

// WithCharmap sets the code page used for entry names that are not valid
// UTF-8. The default is Windows-1252.
func WithCharmap(cm *charmap.Charmap) Option {
	return func(r *Reader) {
		r.charmap = cm
	}
}

// Reader provides access to the entries of an archive.
type Reader struct {
	Header
	Entries []Entry

	r       io.ReaderAt
	size    int64
	charmap *charmap.Charmap
}

// ReadCloser is a Reader backed by an open file.
type ReadCloser struct {
	f *os.File
	Reader
}

func isInvalid(r rune) bool {
	switch r {
	case '\\', '/', '*', '?', ':', '"', '<', '>', '|', 0x00, 0x01:
		return true
	}
	return false
}

// SanitizeName removes characters that are not allowed in filenames.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if isInvalid(r) {
			return -1
		}
		return r
	}, name)
}

func (r *Reader) decodeName(b []byte) string {
	if utf8.Valid(b) {
		return SanitizeName(string(b))
	}
	s, err := r.charmap.NewDecoder().Bytes(b)
	if err != nil {
		return SanitizeName(strings.ToValidUTF8(string(b), ""))
	}
	return SanitizeName(string(s))
}

func (r *Reader) init() error {
	sr := io.NewSectionReader(r.r, 0, r.size)

	if err := binary.Read(sr, binary.LittleEndian, &r.Header); err != nil {
		return ErrTruncated
	}

	// A negative count describes no entries
	if r.Count <= 0 {
		return nil
	}

	if headerSize+int64(r.Count)*descriptorSize > r.size {
		return ErrTruncated
	}

	r.Entries = make([]Entry, 0, r.Count)
	for i := 0; i < int(r.Count); i++ {
		var d descriptor
		if err := binary.Read(sr, binary.LittleEndian, &d); err != nil {
			return ErrTruncated
		}
		r.Entries = append(r.Entries, Entry{
			Index:  i,
			Offset: d.Offset,
			Length: d.Length,
			Name:   r.decodeName(d.Name[:]),
		})
	}

	return nil
}

// NewReader returns a Reader reading from r, which is assumed to have the
// given size in bytes.
func NewReader(r io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	ar := &Reader{
		r:       r,
		size:    size,
		charmap: charmap.Windows1252,
	}
	for _, opt := range opts {
		opt(ar)
	}
	if err := ar.init(); err != nil {
		return nil, err
	}
	return ar, nil
}

// OpenReader will open the archive specified by name and return a ReadCloser.
func OpenReader(name string, opts ...Option) (*ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	r, err := NewReader(f, info.Size(), opts...)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &ReadCloser{
		f:      f,
		Reader: *r,
	}, nil
}

// Close closes the archive file.
func (rc *ReadCloser) Close() error {
	return rc.f.Close()
}

// Size returns the size of the archive in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// InBounds reports whether the entry data lies entirely within the archive.
func (r *Reader) InBounds(e Entry) bool {
	return e.End() <= r.size
}

// Open returns a reader for exactly the declared length of the entry.
func (r *Reader) Open(e Entry) *io.SectionReader {
	return io.NewSectionReader(r.r, int64(e.Offset), int64(e.Length))
}

// Stream returns a reader positioned at the start of the entry that continues
// to the end of the archive. Formats that carry their own terminator are read
// this way as the declared length is not always honoured.
func (r *Reader) Stream(e Entry) *io.SectionReader {
	n := r.size - int64(e.Offset)
	if n < 0 {
		n = 0
	}
	return io.NewSectionReader(r.r, int64(e.Offset), n)
}
