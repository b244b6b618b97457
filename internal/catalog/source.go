package catalog

import (
	"context"
	"fmt"

	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/TimurManjosov/licadvisor/internal/store"
	"github.com/spf13/afero"
)

// Source produces a validated catalog. Load is called at startup and on every reload.
type Source interface {
	Load(ctx context.Context) ([]rules.Rule, error)
	// Name identifies the source in logs and API responses.
	Name() string
}

// EmbeddedSource serves the catalog compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Load(ctx context.Context) ([]rules.Rule, error) { return Default() }
func (EmbeddedSource) Name() string                                   { return "embedded" }

// FileSource reads a JSON or YAML catalog from a filesystem.
type FileSource struct {
	Fs   afero.Fs
	Path string
}

// NewFileSource reads path from the OS filesystem.
func NewFileSource(path string) *FileSource {
	return &FileSource{Fs: afero.NewOsFs(), Path: path}
}

func (f *FileSource) Load(ctx context.Context) ([]rules.Rule, error) {
	data, err := afero.ReadFile(f.Fs, f.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", f.Path, err)
	}
	doc, err := Decode(data, FormatFromPath(f.Path))
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", f.Path, err)
	}
	return doc.Rules, nil
}

func (f *FileSource) Name() string { return "file:" + f.Path }

// StoreSource reads the catalog from a rule store. Stored rows are validated
// again because the table may have been edited outside licadvisor.
type StoreSource struct {
	Store store.Store
	Kind  string
}

func (s *StoreSource) Load(ctx context.Context) ([]rules.Rule, error) {
	list, err := s.Store.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rules from %s store: %w", s.Kind, err)
	}
	if err := rules.ValidateCatalog(list); err != nil {
		return nil, fmt.Errorf("%s store: %w", s.Kind, err)
	}
	return list, nil
}

func (s *StoreSource) Name() string { return s.Kind }
