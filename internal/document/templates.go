package document

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type TemplateFile struct {
	Name string
	Path string
}

// ListTemplates returns the files in dir matching pattern, sorted by name.
// Office lock files ("~$...") are skipped and a missing dir is not an error.
func ListTemplates(dir, pattern string) ([]TemplateFile, error) {
	if pattern == "" {
		pattern = "*.xlsx"
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, err
	}
	out := make([]TemplateFile, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		if strings.HasPrefix(name, "~$") {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		out = append(out, TemplateFile{Name: name, Path: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
