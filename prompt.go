package glb

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bodgit/glb/archive"
)

// Prompt reads archive filenames from in, one per line, and extracts each
// one in turn until in is exhausted. Problems with an archive are reported
// to out and do not stop the loop.
func (x *Extractor) Prompt(in io.Reader, out io.Writer) error {
	s := bufio.NewScanner(in)
	for s.Scan() {
		file := strings.TrimSpace(s.Text())
		if file == "" {
			continue
		}

		switch err := x.Extract(file); {
		case err == nil:
		case errors.Is(err, archive.ErrNotFound):
			fmt.Fprintln(out, "file not found.")
		default:
			fmt.Fprintln(out, err)
		}
	}
	return s.Err()
}
