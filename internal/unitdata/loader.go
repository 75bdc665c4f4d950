package unitdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// maxFileSize rejects catalog files over 1MB.
const maxFileSize = 1 << 20

var extensions = []string{".yaml", ".yml", ".json"}

// Loader reads unit definitions. In dev mode problems are returned as
// typed errors; otherwise they are logged and defaults are used.
type Loader struct {
	logger  *zap.Logger
	devMode bool
	ignored []string
}

func NewLoader(logger *zap.Logger, devMode bool) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loader{
		logger:  logger.Named("unitdata"),
		devMode: devMode,
		ignored: []string{".git", "testdata", "build"},
	}
	if devMode {
		l.logger.Warn("unit loader running in dev mode, missing data is an error")
	}
	return l
}

// LoadFile reads one YAML or JSON file holding a unit or a list of units.
func (l *Loader) LoadFile(path string) ([]*Definition, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnitFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat unit file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("unit file %s is larger than %d bytes", path, maxFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read unit file: %w", err)
	}

	isJSON := strings.EqualFold(filepath.Ext(path), ".json")
	var generic any
	if err := decode(data, isJSON, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse unit file %s: %w", path, err)
	}
	var raws []map[string]any
	switch v := generic.(type) {
	case map[string]any:
		raws = []map[string]any{v}
	case []any:
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				raws = append(raws, m)
			}
		}
	}
	if len(raws) == 0 {
		if l.devMode {
			return nil, fmt.Errorf("%w: %s holds no unit", ErrUnitDataMissing, path)
		}
		l.logger.Warn("unit file holds no unit", zap.String("path", path))
		return nil, nil
	}

	var defs []*Definition
	if _, single := generic.(map[string]any); single {
		var d Definition
		if err := decode(data, isJSON, &d); err != nil {
			return nil, fmt.Errorf("failed to decode unit file %s: %w", path, err)
		}
		defs = []*Definition{&d}
	} else if err := decode(data, isJSON, &defs); err != nil {
		return nil, fmt.Errorf("failed to decode unit file %s: %w", path, err)
	}
	defs = slices.DeleteFunc(defs, func(d *Definition) bool { return d == nil })

	for i, d := range defs {
		d.Source = path
		if err := l.check(d, raws[min(i, len(raws)-1)]); err != nil {
			return nil, err
		}
	}
	return defs, nil
}

func decode(data []byte, isJSON bool, out any) error {
	if isJSON {
		return json.Unmarshal(data, out)
	}
	return yaml.Unmarshal(data, out)
}

// check validates a definition and fills defaults. It only returns an
// error in dev mode.
func (l *Loader) check(d *Definition, raw map[string]any) error {
	var problems []string
	race, ok := NormalizeRace(d.Race)
	if !ok && d.Race != "" {
		problems = append(problems, fmt.Sprintf("unknown race %q", d.Race))
	}
	d.Race = race
	if d.Name == "" {
		d.Name = strings.TrimPrefix(d.ID, race)
	}
	label := d.UniqueID()
	if label == "" {
		label = d.Source
	}

	if d.Version == "" {
		d.Version = DefaultVersion
	}
	if !slices.Contains(SupportedVersions, d.Version) {
		problems = append(problems, fmt.Sprintf("unsupported version %q", d.Version))
		d.Version = DefaultVersion
	}
	if d.Name == "" {
		problems = append(problems, "missing name")
	}
	for _, c := range d.Capabilities {
		if !KnownCapability(c) {
			problems = append(problems, fmt.Sprintf("unknown capability %q", c))
		}
	}
	for _, f := range missingFields(raw) {
		problems = append(problems, "missing "+f)
	}

	if len(problems) == 0 {
		return nil
	}
	if l.devMode {
		return &ValidationError{Unit: label, Problems: problems}
	}
	l.logger.Warn("unit definition incomplete, using defaults",
		zap.String("unit", label),
		zap.Strings("problems", problems))
	if d.Description == "" {
		d.Description = "unit description"
	}
	return nil
}

var camelBoundary = regexp.MustCompile(`([a-z])([A-Z])`)

// candidateFiles lists the file names tried for a class name: as is,
// snake_cased, and with spaces and underscores swapped.
func candidateFiles(class string) []string {
	var names []string
	for _, base := range []string{
		class,
		camelBoundary.ReplaceAllString(class, "${1}_${2}"),
		strings.ToLower(camelBoundary.ReplaceAllString(class, "${1}_${2}")),
		strings.ReplaceAll(class, "_", " "),
		strings.ReplaceAll(class, " ", "_"),
	} {
		for _, ext := range extensions {
			if name := base + ext; !slices.Contains(names, name) {
				names = append(names, name)
			}
		}
	}
	return names
}

// Load reads the definition of one class from dir. Outside dev mode a
// missing or invalid file yields a default definition.
func (l *Loader) Load(dir, class string) (*Definition, error) {
	var lastErr error
	for _, name := range candidateFiles(class) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		defs, err := l.LoadFile(path)
		if err != nil {
			var verr *ValidationError
			if errors.As(err, &verr) || errors.Is(err, ErrUnitDataMissing) {
				return nil, err
			}
			l.logger.Warn("failed to load unit file", zap.String("path", path), zap.Error(err))
			lastErr = err
			continue
		}
		if len(defs) > 0 {
			return defs[0], nil
		}
	}

	if l.devMode {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrUnitFileNotFound, class, lastErr)
		}
		return nil, fmt.Errorf("%w: %s in %s", ErrUnitFileNotFound, class, dir)
	}
	l.logger.Warn("no unit file found, using defaults", zap.String("class", class), zap.String("dir", dir))
	return Default(class), nil
}

// Default is the definition used when a class has no data.
func Default(class string) *Definition {
	return &Definition{
		Version:     DefaultVersion,
		Name:        class,
		Race:        "Unknown",
		Description: "unit description",
	}
}

// LoadDir scans dir for catalog files and returns every definition sorted
// by id. A later definition with the same id replaces the earlier one.
func (l *Loader) LoadDir(dir string) ([]*Definition, error) {
	byID := make(map[string]*Definition)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != dir && slices.Contains(l.ignored, d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !slices.Contains(extensions, strings.ToLower(filepath.Ext(d.Name()))) {
			return nil
		}

		defs, err := l.LoadFile(path)
		if err != nil {
			if l.devMode {
				return err
			}
			// Log and continue instead of failing the whole scan
			l.logger.Warn("skipping unit file", zap.String("path", path), zap.Error(err))
			return nil
		}
		for _, def := range defs {
			id := def.UniqueID()
			if prev, ok := byID[id]; ok {
				l.logger.Warn("duplicate unit definition",
					zap.String("id", id),
					zap.String("previous", prev.Source),
					zap.String("current", def.Source))
			}
			byID[id] = def
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan unit catalog: %w", err)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Definition, len(ids))
	for i, id := range ids {
		out[i] = byID[id]
	}
	l.logger.Info("unit catalog loaded", zap.String("dir", dir), zap.Int("units", len(out)))
	return out, nil
}
