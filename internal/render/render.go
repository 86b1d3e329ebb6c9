package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/drewfead/marquee/internal"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

var ErrUnknownFormat = errors.New("unknown output format")

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q (valid: text, json, yaml)", ErrUnknownFormat, s)
}

// Renderer writes listings as they are produced. Close flushes anything
// buffered and must be called once after the last listing.
type Renderer interface {
	Listing(l internal.Listing) error
	Close() error
}

func New(format Format, w io.Writer) (Renderer, error) {
	switch format {
	case FormatText, "":
		return &textRenderer{w: w}, nil
	case FormatJSON:
		return &structuredRenderer{w: w, encode: encodeJSON}, nil
	case FormatYAML:
		return &structuredRenderer{w: w, encode: encodeYAML}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

const (
	spacer        = 2
	separator     = "|"
	underlineChar = "_"
)

type textRenderer struct {
	w io.Writer
}

func (r *textRenderer) Listing(l internal.Listing) error {
	_, err := io.WriteString(r.w, "\n"+Text(l))
	return err
}

func (r *textRenderer) Close() error {
	_, err := io.WriteString(r.w, "\n")
	return err
}

// Text renders one theater: an underlined, centered header and a line per
// movie, or a skipping notice when nothing is showing.
func Text(l internal.Listing) string {
	if len(l.Entries) == 0 {
		return fmt.Sprintf("skipping %s...\n", l.Theater)
	}

	nameWidth := 0
	for _, e := range l.Entries {
		nameWidth = max(nameWidth, utf8.RuneCountInString(e.Name))
	}
	lines := make([]string, len(l.Entries))
	widest := 0
	for i, e := range l.Entries {
		lines[i] = entryLine(e, l.Rated, nameWidth)
		widest = max(widest, utf8.RuneCountInString(lines[i]))
	}

	theaterWidth := utf8.RuneCountInString(l.Theater)
	header := center(strings.ToUpper(l.Theater), underlineChar, roundUpEven(widest-theaterWidth)+theaterWidth)

	var b strings.Builder
	b.WriteString(header)
	b.WriteByte('\n')
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func entryLine(e internal.Entry, rated bool, nameWidth int) string {
	var b strings.Builder
	if rated {
		b.WriteString(RatingPrefix(e.Rating))
	}
	b.WriteString(e.Name)
	b.WriteString(strings.Repeat(" ", nameWidth-utf8.RuneCountInString(e.Name)))
	b.WriteString(strings.Repeat(" ", spacer))
	b.WriteString(separator)
	b.WriteString(strings.Repeat(" ", spacer))
	b.WriteString(strings.Join(e.Labels(), ", "))
	return b.String()
}

// RatingPrefix is "(85%)  " for a known rating and "( ? )  " for an unknown
// one. A perfect score loses a space so columns stay aligned.
func RatingPrefix(rating float64) string {
	if rating < 0 {
		return "( ? )" + strings.Repeat(" ", spacer)
	}
	gap := spacer
	if rating == 1 {
		gap = spacer - 1
	}
	return fmt.Sprintf("(%.0f%%)", rating*100) + strings.Repeat(" ", gap)
}

func roundUpEven(n int) int {
	return int(math.Ceil(float64(n)/2)) * 2
}

// center pads s on both sides with fill to width, extra on the right.
func center(s, fill string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(fill, left) + s + strings.Repeat(fill, pad-left)
}

// structuredRenderer collects every listing and writes them as one document.
type structuredRenderer struct {
	w        io.Writer
	encode   func(io.Writer, []internal.Listing) error
	listings []internal.Listing
}

func (r *structuredRenderer) Listing(l internal.Listing) error {
	if l.Entries == nil {
		l.Entries = []internal.Entry{}
	}
	r.listings = append(r.listings, l)
	return nil
}

func (r *structuredRenderer) Close() error {
	listings := r.listings
	if listings == nil {
		listings = []internal.Listing{}
	}
	return r.encode(r.w, listings)
}

func encodeJSON(w io.Writer, listings []internal.Listing) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(listings)
}

func encodeYAML(w io.Writer, listings []internal.Listing) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(listings); err != nil {
		return err
	}
	return enc.Close()
}
