/*
Package glb is a library for extracting the contents of GLB multimedia
archives.

Images stored in an archive are decoded using the most recently seen palette
entry and written in a standard image format. Everything else is copied out
verbatim, sorted by whether it looks like WAVE audio, MIDI or neither.
*/
package glb

import (
	"io/ioutil"
	"log"
	"os"
	"runtime"

	"github.com/bodgit/glb/archive"
	"github.com/bodgit/glb/palette"
	"golang.org/x/text/encoding/charmap"
)

const (
	// DefaultOutput is the directory extracted archives are written under
	DefaultOutput = "extracts"

	// DefaultExt is the filename extension used when scanning for archives
	DefaultExt = ".glb"
)

// Extractor extracts archives. The palette is shared by every call to
// Extract so it is not safe for concurrent use; Scan handles its own
// concurrency.
type Extractor struct {
	logger  *log.Logger
	palette *palette.Palette
	catalog *Catalog
	format  Format
	output  string
	ext     string
	workers int
	charmap *charmap.Charmap
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithOutput sets the directory under which each archive is extracted.
func WithOutput(dir string) Option {
	return func(x *Extractor) {
		x.output = dir
	}
}

// WithFormat sets the format used for decoded images.
func WithFormat(f Format) Option {
	return func(x *Extractor) {
		x.format = f
	}
}

// WithCatalog records every extracted entry in c.
func WithCatalog(c *Catalog) Option {
	return func(x *Extractor) {
		x.catalog = c
	}
}

// WithCharmap sets the code page for entry names that are not UTF-8.
func WithCharmap(cm *charmap.Charmap) Option {
	return func(x *Extractor) {
		x.charmap = cm
	}
}

// WithWorkers sets how many archives Scan extracts at once.
func WithWorkers(n int) Option {
	return func(x *Extractor) {
		if n > 0 {
			x.workers = n
		}
	}
}

// WithExt sets the filename extension Scan looks for.
func WithExt(ext string) Option {
	return func(x *Extractor) {
		x.ext = ext
	}
}

// New returns an Extractor that reports progress to logger, which may be
// nil.
func New(logger *log.Logger, options ...Option) *Extractor {
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	x := &Extractor{
		logger:  logger,
		palette: palette.New(),
		format:  PNG,
		output:  DefaultOutput,
		ext:     DefaultExt,
		workers: runtime.NumCPU(),
	}
	for _, option := range options {
		option(x)
	}
	return x
}

// LoadPalette replaces the current palette with the one stored in file.
func (x *Extractor) LoadPalette(file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	return x.palette.Load(f)
}

// Palette returns a copy of the current palette.
func (x *Extractor) Palette() *palette.Palette {
	return x.palette.Clone()
}

func (x *Extractor) archiveOptions() []archive.Option {
	if x.charmap == nil {
		return nil
	}
	return []archive.Option{archive.WithCharmap(x.charmap)}
}

// List returns the entries stored in file.
func (x *Extractor) List(file string) ([]archive.Entry, error) {
	r, err := archive.OpenReader(file, x.archiveOptions()...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Entries, nil
}
