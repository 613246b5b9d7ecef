package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/merklejerk/furnarchy-zero-sub001/archive"
	"github.com/merklejerk/furnarchy-zero-sub001/asset"
	"github.com/merklejerk/furnarchy-zero-sub001/catalog"
	"github.com/merklejerk/furnarchy-zero-sub001/dsb"
	"github.com/merklejerk/furnarchy-zero-sub001/fox5"
	"github.com/merklejerk/furnarchy-zero-sub001/mapfile"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	return table
}

func newPropertyTable() *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding(" ")
	table.SetNoWhiteSpace(true)
	return table
}

func openArchive(c *cli.Context) (*archive.Archive, error) {
	return archive.Open(c.Args().First(), archive.WithCacheSize(c.Int("cache")))
}

func list(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	a, err := openArchive(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	table := newTable()

	header := []string{"Name", "Compression", "Size", "Original"}
	if c.Bool("verbose") {
		header = append(header, "Type")
	}
	table.SetHeader(header)

	for _, e := range a.Entries() {
		row := []string{e.Name, e.Compression.String(), strconv.Itoa(e.Size()), strconv.FormatUint(uint64(e.OriginalSize), 10)}

		if c.Bool("verbose") {
			b, err := e.Decompress()
			if err != nil {
				row = append(row, "-")
			} else {
				row = append(row, asset.Describe(b))
			}
		}

		table.Append(row)
	}

	table.Render()

	return nil
}

// outputName flattens a member name to a file name, archives are built on
// Windows and may use either separator
func outputName(name string) string {
	return filepath.Base(filepath.Clean(strings.ReplaceAll(name, "\\", string(os.PathSeparator))))
}

func extract(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	a, err := openArchive(c)
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	names := c.Args().Tail()
	if len(names) == 0 {
		names = a.Names()
	}

	for _, name := range names {
		b, err := a.Extract(name)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("%s: %w", name, err), 1)
		}

		if err := ioutil.WriteFile(filepath.Join(c.String("directory"), outputName(name)), b, 0644); err != nil {
			return cli.NewExitError(err, 1)
		}

		if c.Bool("verbose") {
			log.Printf("%s: %d bytes", name, len(b))
		}
	}

	return nil
}

// describe decodes the file at path according to its detected kind and
// returns a property table
func describe(path string, modern bool) ([][]string, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	kind := asset.Detect(b)
	rows := [][]string{
		{"File:", path},
		{"Type:", asset.Describe(b)},
	}

	switch kind {
	case asset.Archive:
		a, err := archive.Decode(b, archive.WithCacheSize(0))
		if err != nil {
			return nil, err
		}
		rows = append(rows, []string{"Members:", strconv.Itoa(a.Len())})
	case asset.Map:
		m, err := mapfile.Decode(b)
		if err != nil {
			return nil, err
		}

		var layers []string
		for _, l := range m.Layers() {
			layers = append(layers, l.Kind.String())
		}

		rows = append(rows,
			[]string{"Name:", m.Name},
			[]string{"Size:", fmt.Sprintf("%dx%d", m.Width, m.Height)},
			[]string{"Version:", fmt.Sprintf("%d.%02d", m.Version/100, m.Version%100)},
			[]string{"Revision:", strconv.Itoa(m.Revision)},
			[]string{"Encrypted:", strconv.FormatBool(m.Encrypted())},
			[]string{"Layers:", strings.Join(layers, ", ")},
		)
	case asset.Fox5:
		f, err := fox5.Decode(b, fox5.Options{Modern: modern})
		if err != nil {
			return nil, err
		}
		rows = append(rows,
			[]string{"Version:", strconv.Itoa(int(f.Version))},
			[]string{"Encrypted:", strconv.FormatBool(f.Encrypted)},
			[]string{"Generator:", strconv.Itoa(int(f.Generator))},
			[]string{"Objects:", strconv.Itoa(len(f.Objects))},
			[]string{"Sprites:", strconv.Itoa(len(f.Sprites))},
		)
	case asset.Script:
		s, err := dsb.Decode(b)
		if err != nil {
			return nil, err
		}
		rows = append(rows,
			[]string{"Mode:", strconv.FormatUint(uint64(s.Mode), 10)},
			[]string{"Declared:", strconv.Itoa(s.DeclaredLines)},
			[]string{"Lines:", strconv.Itoa(len(s.Lines))},
		)
	}

	return rows, nil
}

func info(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	paths := c.Args().Slice()
	summaries := make([][][]string, len(paths))

	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			rows, err := describe(path, c.Bool("modern"))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			summaries[i] = rows
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return cli.NewExitError(err, 1)
	}

	for i, rows := range summaries {
		if i > 0 {
			fmt.Println()
		}

		table := newPropertyTable()
		table.AppendBulk(rows)
		table.Render()
	}

	return nil
}

func index(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	db, err := catalog.New(c.String("db"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer db.Close()

	for _, path := range c.Args().Slice() {
		a, err := archive.Open(path, archive.WithCacheSize(0))
		if err != nil {
			return cli.NewExitError(fmt.Errorf("%s: %w", path, err), 1)
		}

		n, err := db.AddArchive(path, a)
		if err != nil {
			return cli.NewExitError(err, 1)
		}

		log.Printf("%s: indexed %d of %d members", path, n, a.Len())
	}

	return nil
}

func find(c *cli.Context) error {
	if c.NArg() < 1 && !c.Bool("duplicates") {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}

	db, err := catalog.New(c.String("db"))
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer db.Close()

	var results []catalog.Result
	if c.Bool("duplicates") {
		results, err = db.Duplicates()
	} else {
		results, err = db.Find(c.Args().First())
	}
	if err != nil {
		return cli.NewExitError(err, 1)
	}

	table := newTable()
	table.SetHeader([]string{"Archive", "Name", "Type", "Size", "Hash"})

	for _, r := range results {
		table.Append([]string{r.Archive, r.Name, r.Description, strconv.Itoa(r.OriginalSize), r.Hash})
	}

	table.Render()

	return nil
}

func main() {
	app := cli.NewApp()

	app.Name = "furc"
	app.Usage = "Inspect and extract client asset files"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	verbose := &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "increase verbosity",
	}

	cache := &cli.IntFlag{
		Name:    "cache",
		Usage:   "keep up to `N` extracted members in memory",
		Value:   archive.DefaultCacheSize,
		EnvVars: []string{"FURC_CACHE"},
	}

	db := &cli.StringFlag{
		Name:    "db",
		Usage:   "catalog database `FILE`",
		Value:   filepath.Join(cwd, "furc.db"),
		EnvVars: []string{"FURC_DB"},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "list",
			Usage:       "List the members of a " + archive.Extension + " archive",
			Description: "",
			ArgsUsage:   "ARCHIVE",
			Action:      list,
			Flags:       []cli.Flag{verbose, cache},
		},
		{
			Name:        "extract",
			Usage:       "Extract members from a " + archive.Extension + " archive",
			Description: "With no member names every member is extracted.",
			ArgsUsage:   "ARCHIVE [MEMBER...]",
			Action:      extract,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "directory",
					Aliases: []string{"d"},
					Usage:   "output directory",
					Value:   cwd,
				},
				verbose,
				cache,
			},
		},
		{
			Name:        "info",
			Usage:       "Info on archive, map, FOX5 and script files",
			Description: "",
			ArgsUsage:   "FILE...",
			Action:      info,
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "modern",
					Usage: "use the current client's object ids for FOX5 files",
				},
			},
		},
		{
			Name:        "index",
			Usage:       "Add archives to the catalog",
			Description: "",
			ArgsUsage:   "ARCHIVE...",
			Action:      index,
			Flags:       []cli.Flag{db},
		},
		{
			Name:        "find",
			Usage:       "Find members in the catalog by name",
			Description: "The name may contain * wildcards.",
			ArgsUsage:   "NAME",
			Action:      find,
			Flags: []cli.Flag{
				db,
				&cli.BoolFlag{
					Name:  "duplicates",
					Usage: "list members with identical contents instead",
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
