package main

import (
	"errors"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/bodgit/glb"
	"github.com/bodgit/glb/archive"
	"github.com/urfave/cli/v2"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

// newExtractor builds an Extractor from the global flags. The returned
// function releases anything it opened.
func newExtractor(c *cli.Context) (*glb.Extractor, func(), error) {
	logger := newLogger(c)

	format, err := glb.ParseFormat(c.String("format"))
	if err != nil {
		return nil, nil, err
	}

	options := []glb.Option{
		glb.WithOutput(c.String("output")),
		glb.WithFormat(format),
		glb.WithWorkers(c.Int("workers")),
	}

	if charset := c.String("charset"); charset != "" {
		cm, err := archive.LookupCharmap(charset)
		if err != nil {
			return nil, nil, fmt.Errorf("%w (known: %s)", err, strings.Join(archive.Charsets(), ", "))
		}
		options = append(options, glb.WithCharmap(cm))
	}

	closer := func() {}
	if file := c.String("catalog"); file != "" {
		catalog, err := glb.NewCatalog(file)
		if err != nil {
			return nil, nil, err
		}
		options = append(options, glb.WithCatalog(catalog))
		closer = func() { catalog.Close() }
	}

	x := glb.New(logger, options...)

	// A missing default palette is fine, images will just be black until
	// an archive provides one
	if file := c.String("palette"); file != "" {
		switch err := x.LoadPalette(file); {
		case err == nil:
			logger.Printf("Loaded default palette from \"%s\"\n", file)
		case errors.Is(err, os.ErrNotExist) && !c.IsSet("palette"):
		default:
			closer()
			return nil, nil, err
		}
	}

	return x, closer, nil
}

func main() {
	app := cli.NewApp()

	app.Name = "glbextract"
	app.Usage = "GLB multimedia archive extractor"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			EnvVars: []string{"GLB_OUTPUT"},
			Value:   glb.DefaultOutput,
			Usage:   "directory to extract archives into",
		},
		&cli.StringFlag{
			Name:    "palette",
			EnvVars: []string{"GLB_PALETTE"},
			Value:   "palette",
			Usage:   "default palette loaded before any archive",
		},
		&cli.StringFlag{
			Name:  "format",
			Value: "png",
			Usage: "image format, one of png, bmp or gif",
		},
		&cli.StringFlag{
			Name:    "catalog",
			EnvVars: []string{"GLB_CATALOG"},
			Usage:   "record extracted entries in this database",
		},
		&cli.StringFlag{
			Name:  "charset",
			Usage: "code page for entry names that are not UTF-8",
		},
		&cli.IntFlag{
			Name:  "workers",
			Value: 4,
			Usage: "number of archives to extract at once when scanning",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	// With no command, read filenames from standard input
	app.Action = func(c *cli.Context) error {
		x, closer, err := newExtractor(c)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer closer()

		if err := x.Prompt(os.Stdin, os.Stdout); err != nil {
			return cli.NewExitError(err, 1)
		}

		return nil
	}

	app.Commands = []*cli.Command{
		{
			Name:        "extract",
			Usage:       "Extract one or more archives",
			Description: "Archives are extracted in order and share the palette",
			ArgsUsage:   "FILE...",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				x, closer, err := newExtractor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer closer()

				for _, file := range c.Args().Slice() {
					if err := x.Extract(file); err != nil {
						return cli.NewExitError(err, 1)
					}
				}

				return nil
			},
		},
		{
			Name:        "scan",
			Usage:       "Find and extract every archive in a directory",
			Description: "",
			ArgsUsage:   "DIRECTORY",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				x, closer, err := newExtractor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer closer()

				if err := x.Scan(c.Args().First()); err != nil {
					return cli.NewExitError(err, 1)
				}

				return nil
			},
		},
		{
			Name:        "list",
			Usage:       "List the entries of an archive",
			Description: "",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				x, closer, err := newExtractor(c)
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer closer()

				entries, err := x.List(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
				fmt.Fprintln(w, "INDEX\tOFFSET\tLENGTH\tNAME")
				for _, e := range entries {
					fmt.Fprintf(w, "%d\t%d\t%d\t%s\n", e.Index, e.Offset, e.Length, e.Name)
				}
				return w.Flush()
			},
		},
		{
			Name:        "catalog",
			Usage:       "Show what was extracted from an archive",
			Description: "Requires --catalog",
			ArgsUsage:   "FILE",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 || c.String("catalog") == "" {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				catalog, err := glb.NewCatalog(c.String("catalog"))
				if err != nil {
					return cli.NewExitError(err, 1)
				}
				defer catalog.Close()

				file, err := filepath.Abs(c.Args().First())
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				records, err := catalog.Entries(file)
				if err != nil {
					return cli.NewExitError(err, 1)
				}

				w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
				fmt.Fprintln(w, "INDEX\tCATEGORY\tLENGTH\tDIGEST\tOUTPUT")
				for _, r := range records {
					fmt.Fprintf(w, "%d\t%s\t%d\t%016X\t%s\n", r.Index, r.Category, r.Length, r.Digest, r.Output)
				}
				return w.Flush()
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
