// Package ingest turns uploaded files into embedded document resources.
package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

var (
	// ErrUnsupportedFileType is returned for extensions with no parser.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrNoText is returned when a file yields no usable text.
	ErrNoText = errors.New("file contains no text")
)

// Segment is one block of parsed text with the metadata its nodes carry.
type Segment struct {
	Text     string
	Metadata resource.Metadata
}

// FileType returns the lowercase extension of name without the dot.
func FileType(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// Supported reports whether Parse accepts files named like name.
func Supported(name string) bool {
	switch FileType(name) {
	case "txt", "md", "markdown", "pdf":
		return true
	}
	return false
}

// Parse splits the content of the file name into text segments.
func Parse(name string, data []byte) ([]Segment, error) {
	var (
		segs []Segment
		err  error
	)
	switch ft := FileType(name); ft {
	case "txt":
		segs, err = parseText(data)
	case "md", "markdown":
		segs, err = parseMarkdown(data)
	case "pdf":
		segs, err = parsePDF(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFileType, ft)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	if len(segs) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoText)
	}
	return segs, nil
}

// parseText splits on blank lines.
func parseText(data []byte) ([]Segment, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("text is not valid UTF-8")
	}
	var segs []Segment
	for _, para := range paragraphs(string(data)) {
		segs = append(segs, Segment{Text: para})
	}
	return segs, nil
}

// parseMarkdown splits on blank lines and tags every paragraph with the
// closest heading above it. Headings themselves are not emitted.
func parseMarkdown(data []byte) ([]Segment, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("markdown is not valid UTF-8")
	}
	var (
		segs    []Segment
		heading string
		buf     []string
	)
	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		seg := Segment{Text: text}
		if heading != "" {
			seg.Metadata = resource.Metadata{"heading": heading}
		}
		segs = append(segs, seg)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
		case trimmed == "":
			flush()
		default:
			buf = append(buf, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	flush()
	return segs, nil
}

// parsePDF extracts plain text per page. Each page's paragraphs are tagged
// with the page number.
func parsePDF(data []byte) ([]Segment, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var segs []Segment
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		for _, para := range paragraphs(text) {
			segs = append(segs, Segment{
				Text:     para,
				Metadata: resource.Metadata{"page": strconv.Itoa(i)},
			})
		}
	}
	return segs, nil
}

// paragraphs returns the non-empty blocks of s separated by blank lines,
// with inner whitespace collapsed.
func paragraphs(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, block := range strings.Split(s, "\n\n") {
		if text := strings.Join(strings.Fields(block), " "); text != "" {
			out = append(out, text)
		}
	}
	return out
}
