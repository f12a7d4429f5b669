package glb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bodgit/glb/archive"
	"github.com/bodgit/glb/palette"
)

func (x *Extractor) findArchives(ctx context.Context, base string) (<-chan string, <-chan error, error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)

		// Archives are extracted by basename so only the first of each is used
		seen := make(map[string]string)

		errc <- filepath.Walk(base, func(file string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			// Ignore any hidden files or directories
			if info.Name()[0] == '.' && file != base {
				if info.Mode().IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !info.Mode().IsRegular() || !strings.EqualFold(filepath.Ext(file), x.ext) {
				return nil
			}

			name := filepath.Base(file)
			if first, ok := seen[name]; ok {
				x.logger.Printf("Skipping \"%s\", it has the same name as \"%s\"\n", file, first)
				return nil
			}
			seen[name] = file

			select {
			case out <- file:
			case <-ctx.Done():
				return errors.New("walk cancelled")
			}

			return nil
		})
	}()
	return out, errc, nil
}

func (x *Extractor) archiveWorker(ctx context.Context, in <-chan string, p *palette.Palette) (<-chan error, error) {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for file := range in {
			// Each archive starts from the same palette
			if err := x.extract(file, p.Clone()); err != nil {
				if errors.Is(err, archive.ErrTruncated) {
					x.logger.Printf("Skipping \"%s\": %s\n", file, err)
					continue
				}
				errc <- err
				return
			}
		}
	}()
	return errc, nil
}

func waitForPipeline(errs ...<-chan error) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// Scan finds every archive under path and extracts them concurrently. Each
// archive starts with a copy of the current palette and palette entries do
// not carry over between archives.
func (x *Extractor) Scan(path string) error {
	dir, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	var errcList []<-chan error

	files, errc, err := x.findArchives(ctx, dir)
	if err != nil {
		return err
	}
	errcList = append(errcList, errc)

	p := x.palette.Clone()
	for i := 0; i < x.workers; i++ {
		errc, err := x.archiveWorker(ctx, files, p)
		if err != nil {
			return err
		}
		errcList = append(errcList, errc)
	}

	return waitForPipeline(errcList...)
}
