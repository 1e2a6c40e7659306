package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/paths"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/types"
	"github.com/GriffinCanCode/AgentOS/shell/internal/shared/utils"
)

// strictJSON rejects unknown manifest keys
var strictJSON = sonic.Config{DisallowUnknownFields: true}.Froze()

// Seeder loads descriptor manifests from disk into the catalog
type Seeder struct {
	manager  *Manager
	dirs     []string
	patterns []string
	logger   *zap.Logger
}

// NewSeeder creates a new manifest seeder. Directories earlier in dirs take
// precedence for duplicate ids.
func NewSeeder(manager *Manager, dirs []string, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{
		manager:  manager,
		dirs:     dirs,
		patterns: paths.ManifestPatterns,
		logger:   logger,
	}
}

// WithPatterns replaces the doublestar patterns manifests are matched with
func (s *Seeder) WithPatterns(patterns ...string) *Seeder {
	s.patterns = patterns
	return s
}

// Seed loads every manifest. Broken manifests are logged and counted, not
// fatal; only an unreadable directory tree or cancellation is.
func (s *Seeder) Seed(ctx context.Context) (loaded, failed int, err error) {
	for _, dir := range s.dirs {
		if _, statErr := os.Stat(dir); errors.Is(statErr, os.ErrNotExist) {
			s.logger.Debug("Manifest directory not found", zap.String("dir", dir))
			continue
		}

		files, findErr := s.find(ctx, dir)
		if findErr != nil {
			return loaded, failed, fmt.Errorf("scan %s: %w", dir, findErr)
		}

		for _, path := range files {
			if loadErr := s.LoadFile(path); loadErr != nil {
				s.logger.Warn("Failed to load manifest", zap.String("path", path), zap.Error(loadErr))
				s.manager.markFailed()
				failed++
				continue
			}
			loaded++
		}
	}

	s.logger.Info("Descriptor catalog seeded",
		zap.Int("loaded", loaded),
		zap.Int("failed", failed))
	return loaded, failed, nil
}

// find walks dir and returns the manifests matching the patterns, sorted
func (s *Seeder) find(ctx context.Context, dir string) ([]string, error) {
	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}

	err := fastwalk.Walk(&conf, dir, func(p string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil || d.IsDir() {
			return nil
		}

		rel, relErr := filepath.Rel(dir, p)
		if relErr != nil {
			return nil
		}
		if s.matches(filepath.ToSlash(rel)) {
			mu.Lock()
			files = append(files, p)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(files)
	return files, nil
}

func (s *Seeder) matches(rel string) bool {
	for _, pattern := range s.patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// LoadFile parses one manifest and registers it
func (s *Seeder) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := utils.ValidateSize(data); err != nil {
		return err
	}

	d, err := Decode(path, data)
	if err != nil {
		return err
	}

	if d.ID == "" {
		d.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := paths.ValidateAppID(d.ID); err != nil {
		return err
	}
	s.resolveIcons(path, d)

	if err := s.manager.Register(d); err != nil {
		if errors.Is(err, ErrDuplicate) {
			s.logger.Info("Shadowed manifest skipped", zap.String("path", path), zap.String("app_id", d.ID))
			return nil
		}
		return err
	}
	s.logger.Debug("Manifest loaded", zap.String("path", path), zap.String("app_id", d.ID))
	return nil
}

// Decode parses a manifest by file extension
func Decode(path string, data []byte) (*types.Descriptor, error) {
	var d types.Descriptor

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&d); err != nil {
			return nil, fmt.Errorf("parse toml: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.UnmarshalWithOptions(data, &d, yaml.DisallowUnknownField()); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := strictJSON.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", filepath.Ext(path))
	}
	return &d, nil
}

// resolveIcons anchors relative icon paths at the manifest and fills in
// missing MIME types from the file contents
func (s *Seeder) resolveIcons(manifestPath string, d *types.Descriptor) {
	for i := range d.Icons {
		icon := &d.Icons[i]
		icon.Path = paths.ResolveIconPath(manifestPath, icon.Path)
		if icon.MIME != "" || icon.Path == "" {
			continue
		}
		mtype, err := mimetype.DetectFile(icon.Path)
		if err != nil {
			s.logger.Debug("Icon not readable", zap.String("path", icon.Path), zap.Error(err))
			continue
		}
		icon.MIME = mtype.String()
	}
}
