package aliases

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/finquery/internal/common"
	"github.com/ternarybob/finquery/internal/models"
)

// FileSource loads the universe from a TOML or YAML file and, optionally, a
// separate overrides file. Both files may carry [[companies]] and
// [[overrides]] tables; the overrides file is appended after the universe.
type FileSource struct {
	UniversePath  string
	OverridesPath string
}

// NewFileSource creates a file-backed universe source.
func NewFileSource(universePath, overridesPath string) *FileSource {
	return &FileSource{UniversePath: universePath, OverridesPath: overridesPath}
}

// Name identifies the source in logs.
func (s *FileSource) Name() string {
	if s.OverridesPath == "" {
		return "file:" + filepath.Base(s.UniversePath)
	}
	return fmt.Sprintf("file:%s+%s", filepath.Base(s.UniversePath), filepath.Base(s.OverridesPath))
}

// Load reads the files fresh on every call so rebuilds pick up edits.
func (s *FileSource) Load(ctx context.Context) (*models.Universe, error) {
	if s.UniversePath == "" {
		return nil, fmt.Errorf("universe file not configured")
	}

	var u models.Universe
	if err := common.DecodeFile(s.UniversePath, &u); err != nil {
		return nil, err
	}

	if s.OverridesPath != "" {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var extra models.Universe
		if err := common.DecodeFile(s.OverridesPath, &extra); err != nil {
			return nil, err
		}
		u.Records = append(u.Records, extra.Records...)
		u.Overrides = append(u.Overrides, extra.Overrides...)
	}

	for i := range u.Overrides {
		if u.Overrides[i].ID == "" {
			u.Overrides[i].ID = u.Overrides[i].Key()
		}
	}
	return &u, nil
}

// StaticSource serves a fixed universe. Used by tests and embedded callers.
type StaticSource struct {
	Universe *models.Universe
}

// Name identifies the source in logs.
func (s StaticSource) Name() string {
	return "static"
}

// Load returns the fixed universe.
func (s StaticSource) Load(ctx context.Context) (*models.Universe, error) {
	if s.Universe == nil {
		return &models.Universe{}, nil
	}
	return s.Universe, nil
}
