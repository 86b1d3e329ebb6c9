package theaters

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

//go:embed lists/theaters_*
var bundled embed.FS

const (
	filePrefix  = "theaters_"
	commentChar = "#"
)

// Catalog resolves a city name to the theaters listed in its theaters_<city> file.
type Catalog struct {
	fs afero.Fs
}

type CatalogOption func(*Catalog)

// WithDir layers a directory of theaters_<city> files over the bundled lists.
// Files in dir win over bundled ones with the same city.
func WithDir(dir string) CatalogOption {
	return func(c *Catalog) {
		if dir == "" {
			return
		}
		c.fs = afero.NewCopyOnWriteFs(c.fs, afero.NewBasePathFs(afero.NewOsFs(), dir))
	}
}

// WithFs replaces the catalog's file system entirely (e.g. afero.NewMemMapFs in tests).
func WithFs(fsys afero.Fs) CatalogOption {
	return func(c *Catalog) {
		c.fs = fsys
	}
}

func NewCatalog(opts ...CatalogOption) *Catalog {
	sub, err := fs.Sub(bundled, "lists")
	if err != nil {
		panic(fmt.Sprintf("bundled theater lists: %v", err))
	}
	c := &Catalog{fs: afero.NewReadOnlyFs(afero.FromIOFS{FS: sub})}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the lower-cased theaters for city. The bool is false when the
// catalog has no list for city; the CLI uses that to tell cities from dates.
func (c *Catalog) Lookup(city string) ([]string, bool, error) {
	key := strings.ToLower(strings.TrimSpace(city))
	if key == "" || strings.ContainsAny(key, `/\`) {
		return nil, false, nil
	}
	f, err := c.fs.Open(filePrefix + key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("open theater list for %s: %w", key, err)
	}
	defer f.Close()
	theaters, err := parseLines(f, strings.ToLower)
	if err != nil {
		return nil, false, fmt.Errorf("read theater list for %s: %w", key, err)
	}
	return theaters, true, nil
}

// Cities lists every city the catalog knows, sorted.
func (c *Catalog) Cities() ([]string, error) {
	entries, err := afero.ReadDir(c.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("list theater files: %w", err)
	}
	var cities []string
	for _, e := range entries {
		if city, ok := strings.CutPrefix(e.Name(), filePrefix); ok && !e.IsDir() {
			cities = append(cities, city)
		}
	}
	sort.Strings(cities)
	return cities, nil
}

// ReadList reads a flat list of movie names, one per line, skipping blanks and
// comments. Names keep their case.
func ReadList(fsys afero.Fs, path string) ([]string, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	names, err := parseLines(f, nil)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return names, nil
}

func parseLines(r io.Reader, transform func(string) string) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentChar) {
			continue
		}
		if transform != nil {
			line = transform(line)
		}
		out = append(out, line)
	}
	return out, scanner.Err()
}
