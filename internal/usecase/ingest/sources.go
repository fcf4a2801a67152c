package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/williamjung/voiceagent/internal/domain"
)

// Discover lists markdown sources under fsys in indexing order: intro.md, opinions.md,
// posts/*.md, then training/*.md. README.md files are skipped.
func Discover(fsys fs.FS) ([]string, error) {
	var files []string
	for _, name := range []string{"intro.md", "opinions.md"} {
		if _, err := fs.Stat(fsys, name); err == nil {
			files = append(files, name)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
	}

	for _, dir := range []string{"posts", "training"} {
		entries, err := fs.ReadDir(fsys, dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") || e.Name() == "README.md" {
				continue
			}
			files = append(files, path.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// DetectType classifies a source: training/ beats posts/, then the frontmatter, then note.
func DetectType(name string, fm Frontmatter) domain.DocumentType {
	p := "/" + path.Clean(strings.ReplaceAll(name, "\\", "/"))
	switch {
	case strings.Contains(p, "/training/"):
		return domain.DocumentTraining
	case strings.Contains(p, "/posts/"):
		return domain.DocumentArticle
	case fm.Type != "":
		return domain.DocumentType(fm.Type)
	default:
		return domain.DocumentNote
	}
}

// Slug is the file name without directory and .md extension.
func Slug(name string) string {
	return strings.TrimSuffix(path.Base(name), ".md")
}

// chunkTitle numbers parts only when a document has more than one chunk.
func chunkTitle(title string, i, n int) string {
	if n <= 1 {
		return title
	}
	return fmt.Sprintf("%s (part %d/%d)", title, i+1, n)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// cleanTags trims tags and drops empty ones, keeping order.
func cleanTags(tags []string) []string {
	out := slices.DeleteFunc(slices.Clone(tags), func(s string) bool { return strings.TrimSpace(s) == "" })
	for i := range out {
		out[i] = strings.TrimSpace(out[i])
	}
	return out
}
