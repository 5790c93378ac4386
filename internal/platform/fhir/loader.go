package fhir

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// packageManifest is the subset of package.json read by the loader.
type packageManifest struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	FHIRVersions []string `json:"fhirVersions"`
}

// Loader reads FHIR packages into a DefinitionCollection.
type Loader struct {
	logger zerolog.Logger
}

// NewLoader creates a Loader that reports progress to logger.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{logger: logger}
}

// LoadPackages loads every package into a single collection. All packages
// must share one FHIR core release.
func (l *Loader) LoadPackages(ctx context.Context, paths ...string) (*DefinitionCollection, error) {
	if len(paths) == 0 {
		return nil, errors.New("no packages to load")
	}
	dc := NewDefinitionCollection()
	for _, p := range paths {
		if err := l.LoadPackage(ctx, dc, p); err != nil {
			return nil, err
		}
	}
	return dc, nil
}

// LoadPackage reads a package directory or a .tgz archive into dc. Only
// JSON files under package/ (or the directory root when no package/
// folder exists) are considered.
func (l *Loader) LoadPackage(ctx context.Context, dc *DefinitionCollection, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	var n int
	if info.IsDir() {
		n, err = l.loadDir(ctx, dc, path)
	} else {
		n, err = l.loadArchive(ctx, dc, path)
	}
	if err != nil {
		return err
	}

	l.logger.Info().
		Str("package", path).
		Int("files", n).
		Str("fhir_version", dc.FHIRVersion()).
		Msg("package loaded")
	return nil
}

func (l *Loader) loadDir(ctx context.Context, dc *DefinitionCollection, dir string) (int, error) {
	root := dir
	if st, err := os.Stat(filepath.Join(dir, "package")); err == nil && st.IsDir() {
		root = filepath.Join(dir, "package")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		p := filepath.Join(root, name)
		data, err := os.ReadFile(p)
		if err != nil {
			return count, fmt.Errorf("read %s: %w", p, err)
		}
		if err := l.addFile(dc, name, data); err != nil {
			return count, fmt.Errorf("load %s: %w", p, err)
		}
		count++
	}
	return count, nil
}

func (l *Loader) loadArchive(ctx context.Context, dc *DefinitionCollection, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, fmt.Errorf("read %s: %w", path, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.ToSlash(hdr.Name)
		if !strings.HasPrefix(name, "package/") || strings.Count(name, "/") != 1 || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return count, fmt.Errorf("read %s!%s: %w", path, name, err)
		}
		if err := l.addFile(dc, filepath.Base(name), data); err != nil {
			return count, fmt.Errorf("load %s!%s: %w", path, name, err)
		}
		count++
	}
	return count, nil
}

func (l *Loader) addFile(dc *DefinitionCollection, name string, data []byte) error {
	switch {
	case name == "package.json":
		var m packageManifest
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("decode manifest: %w", err)
		}
		if len(m.FHIRVersions) > 0 {
			return dc.SetFHIRVersion(m.FHIRVersions[0])
		}
		return nil
	case strings.HasPrefix(name, "."):
		// .index.json and other tooling files
		return nil
	}

	if err := dc.Add(data); err != nil {
		if errors.Is(err, ErrMultipleCoreVersions) {
			return err
		}
		l.logger.Warn().Err(err).Str("file", name).Msg("skipping unreadable definition")
	}
	return nil
}

// LoadCapabilityStatement reads a CapabilityStatement JSON file.
func LoadCapabilityStatement(path string) (*CapabilityStatement, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var cs CapabilityStatement
	if err := json.Unmarshal(data, &cs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if cs.ResourceType != "CapabilityStatement" {
		return nil, fmt.Errorf("%s: expected CapabilityStatement, got %q", path, cs.ResourceType)
	}
	return &cs, nil
}

// LoadSmartConfiguration reads a SMART well-known configuration document.
func LoadSmartConfiguration(path string) (*SmartConfiguration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var sc SmartConfiguration
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &sc, nil
}
