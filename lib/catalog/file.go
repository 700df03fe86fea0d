package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileSource reads the catalog from a local YAML or JSON file instead of the
// network. Handy for air-gapped installs and fixtures.
type FileSource struct {
	fs   afero.Fs
	path string
}

// NewFileSource returns a FileSource reading path from fs.
func NewFileSource(fs afero.Fs, path string) *FileSource {
	return &FileSource{fs: fs, path: path}
}

type fileEntry struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	SourceURL string `yaml:"sourceUrl"`
	URL       string `yaml:"url"`
}

func (s *FileSource) Fetch(ctx context.Context) ([]RawEntry, error) {
	raw, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var decoded []fileEntry
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrUnavailable, s.path, err)
	}
	entries := make([]RawEntry, 0, len(decoded))
	for _, e := range decoded {
		src := e.SourceURL
		if src == "" {
			src = e.URL
		}
		entries = append(entries, RawEntry{ID: e.ID, Title: e.Title, SourceURL: src})
	}
	if err := Validate(entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return entries, nil
}
