package ingest

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Frontmatter is the YAML header of a markdown source.
type Frontmatter struct {
	Title      string   `yaml:"title"`
	Type       string   `yaml:"type"`
	Tags       []string `yaml:"tags"`
	Category   string   `yaml:"category"`
	Priority   string   `yaml:"priority"`
	Visibility string   `yaml:"visibility"`
	Date       string   `yaml:"date"`
}

var fence = []byte("---")

// ParseMarkdown splits a "---" delimited YAML header from the body.
// A file without a header returns an empty Frontmatter and the whole input as body.
func ParseMarkdown(raw []byte) (Frontmatter, string, error) {
	raw = bytes.TrimPrefix(raw, []byte("\ufeff"))

	first, rest, ok := cutLine(raw)
	if !ok || !bytes.Equal(bytes.TrimRight(first, " \t\r"), fence) {
		return Frontmatter{}, string(raw), nil
	}

	var header []byte
	for len(rest) > 0 {
		var line []byte
		line, rest, _ = cutLine(rest)
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), fence) {
			var fm Frontmatter
			if err := yaml.Unmarshal(header, &fm); err != nil {
				return Frontmatter{}, "", fmt.Errorf("parse frontmatter: %w", err)
			}
			return fm, string(rest), nil
		}
		header = append(header, line...)
		header = append(header, '\n')
	}

	// Unterminated header: treat the file as plain markdown.
	return Frontmatter{}, string(raw), nil
}

func cutLine(b []byte) (line, rest []byte, found bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	line, rest, found = bytes.Cut(b, []byte("\n"))
	return line, rest, true
}
