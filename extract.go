package glb

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/bodgit/glb/archive"
	glbimage "github.com/bodgit/glb/image"
	"github.com/bodgit/glb/palette"
	"github.com/bodgit/glb/sniff"
	"github.com/cespare/xxhash/v2"
)

// session holds the state for extracting a single archive
type session struct {
	*Extractor
	r         *archive.Reader
	path      string
	dir       string
	palette   *palette.Palette
	decoder   glbimage.Decoder
	archiveID int64
}

// OutputDir returns the directory the archive file is extracted into.
func (x *Extractor) OutputDir(file string) string {
	return filepath.Join(x.output, filepath.Base(file)+"_files")
}

// Extract extracts every entry of the archive file. Palette entries update
// the palette used by this and any later call.
func (x *Extractor) Extract(file string) error {
	return x.extract(file, x.palette)
}

func (x *Extractor) extract(file string, p *palette.Palette) error {
	r, err := archive.OpenReader(file, x.archiveOptions()...)
	if err != nil {
		return err
	}
	defer r.Close()

	s := &session{
		Extractor: x,
		r:         &r.Reader,
		path:      file,
		dir:       x.OutputDir(file),
		palette:   p,
		decoder: glbimage.Decoder{
			Palette: p,
			Logger:  x.logger,
		},
	}

	for _, c := range sniff.Categories() {
		if err := os.MkdirAll(filepath.Join(s.dir, c.Dir()), 0755); err != nil {
			return err
		}
	}

	if x.catalog != nil {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		if s.archiveID, err = x.catalog.AddArchive(abs, r.Magic); err != nil {
			return err
		}
	}

	x.logger.Printf("Extracting %d entries from \"%s\"\n", len(r.Entries), file)

	for _, e := range r.Entries {
		if err := s.extractEntry(e); err != nil {
			return fmt.Errorf("%s: entry %d \"%s\": %w", file, e.Index, e.Name, err)
		}
	}

	return nil
}

func (s *session) extractEntry(e archive.Entry) error {
	switch {
	case e.Length == 0:
		s.logger.Printf("Skipping empty entry %d \"%s\"\n", e.Index, e.Name)
		return nil
	case !s.r.InBounds(e):
		s.logger.Printf("Skipping entry %d \"%s\", %d bytes at offset %d exceeds archive size %d\n", e.Index, e.Name, e.Length, e.Offset, s.r.Size())
		return nil
	case e.Name == palette.Name:
		// Always a full table, whatever length the entry claims
		if err := s.palette.Load(s.r.Stream(e)); err != nil {
			return err
		}
		s.logger.Printf("Loaded palette from entry %d\n", e.Index)
		return nil
	}

	if !s.palette.Loaded() {
		s.logger.Printf("No palette loaded before entry %d \"%s\"\n", e.Index, e.Name)
	}

	m, err := s.decoder.Decode(s.r.Stream(e))
	switch {
	case err == nil:
		return s.writeImage(e, m)
	case errors.Is(err, glbimage.ErrNotImage):
	case err == glbimage.ErrNotEnough:
		s.logger.Printf("Entry %d \"%s\" has truncated image data\n", e.Index, e.Name)
	default:
		return err
	}

	return s.writeRaw(e)
}

// Create file, passing a writer to fn and returning the digest of everything
// written
func writeFile(file string, fn func(io.Writer) error) (uint64, error) {
	f, err := os.Create(file)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	b := bufio.NewWriter(f)
	h := xxhash.New()

	if err := fn(io.MultiWriter(b, h)); err != nil {
		return 0, err
	}

	if err := b.Flush(); err != nil {
		return 0, err
	}

	return h.Sum64(), f.Close()
}

func (s *session) outputFile(e archive.Entry, c sniff.Category, ext string) string {
	return filepath.Join(s.dir, c.Dir(), fmt.Sprintf("%d_%s.%s", e.Index, e.Name, ext))
}

func (s *session) writeImage(e archive.Entry, m image.Image) error {
	file := s.outputFile(e, sniff.Image, s.format.Ext())

	digest, err := writeFile(file, func(w io.Writer) error {
		return encodeImage(w, m, s.format)
	})
	if err != nil {
		return err
	}

	s.logger.Printf("%d \"%s\": %s %dx%d\n", e.Index, e.Name, sniff.Image, m.Bounds().Dx(), m.Bounds().Dy())

	return s.record(e, sniff.Image, file, digest)
}

func (s *session) writeRaw(e archive.Entry) error {
	c, err := sniff.ClassifyReader(s.r.Open(e))
	if err != nil {
		return err
	}

	file := s.outputFile(e, c, c.Ext())

	digest, err := writeFile(file, func(w io.Writer) error {
		_, err := io.CopyN(w, s.r.Open(e), int64(e.Length))
		return err
	})
	if err != nil {
		return err
	}

	s.logger.Printf("%d \"%s\": %s\n", e.Index, e.Name, c)

	return s.record(e, c, file, digest)
}

func (s *session) record(e archive.Entry, c sniff.Category, file string, digest uint64) error {
	if s.catalog == nil {
		return nil
	}

	dup, err := s.catalog.FindByDigest(digest)
	if err != nil {
		return err
	}
	if dup != nil && dup.Output != file {
		s.logger.Printf("%d \"%s\" is identical to \"%s\"\n", e.Index, e.Name, dup.Output)
	}

	return s.catalog.Record(s.archiveID, Record{
		Index:    e.Index,
		Name:     e.Name,
		Category: c,
		Length:   int64(e.Length),
		Digest:   digest,
		Output:   file,
	})
}
