package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"streamstats/internal"
)

// Source names one sheet of one workbook and the term it feeds.
// An empty Sheet means every sheet of the workbook, each sheet being its own term.
type Source struct {
	Path   string                `yaml:"path"`
	Sheet  string                `yaml:"sheet"`
	Term   string                `yaml:"term"`
	Format internal.SourceFormat `yaml:"format"`
}

func (s Source) String() string {
	if s.Sheet == "" {
		return s.Path
	}
	return s.Path + "#" + s.Sheet
}

type Manifest struct {
	Output       string   `yaml:"output"`
	DocumentName string   `yaml:"document_name"`
	TermOrder    []string `yaml:"term_order"`
	Sources      []Source `yaml:"sources"`
}

func LoadManifest(path string) (Manifest, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}

	var m Manifest
	if err := yaml.Unmarshal(blob, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if len(m.Sources) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s: no sources", path)
	}

	base := filepath.Dir(path)
	for i := range m.Sources {
		src := &m.Sources[i]
		src.Path = strings.TrimSpace(src.Path)
		if src.Path == "" {
			return Manifest{}, fmt.Errorf("manifest %s: source %d has no path", path, i+1)
		}
		if !filepath.IsAbs(src.Path) {
			src.Path = filepath.Join(base, src.Path)
		}
		format, err := ParseFormat(string(src.Format))
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest %s: source %d: %w", path, i+1, err)
		}
		src.Format = format
		if format == internal.FormatGrouped && strings.TrimSpace(src.Term) == "" {
			return Manifest{}, fmt.Errorf("manifest %s: grouped source %d needs a term", path, i+1)
		}
	}
	if m.Output != "" && !filepath.IsAbs(m.Output) {
		m.Output = filepath.Join(base, m.Output)
	}
	return m, nil
}

// ParseSource reads the command-line form FILE#SHEET[=TERM].
func ParseSource(value string, format internal.SourceFormat) (Source, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Source{}, errors.New("empty source")
	}
	src := Source{Path: value, Format: format}
	if idx := strings.LastIndex(value, "#"); idx >= 0 {
		src.Path = strings.TrimSpace(value[:idx])
		sheet := value[idx+1:]
		if eq := strings.Index(sheet, "="); eq >= 0 {
			src.Term = strings.TrimSpace(sheet[eq+1:])
			sheet = sheet[:eq]
		}
		src.Sheet = strings.TrimSpace(sheet)
	}
	if src.Path == "" {
		return Source{}, fmt.Errorf("source %q has no file", value)
	}
	if format == internal.FormatGrouped && src.Term == "" {
		return Source{}, fmt.Errorf("grouped source %q needs a term (FILE#SHEET=TERM)", value)
	}
	return src, nil
}

func ParseFormat(value string) (internal.SourceFormat, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(internal.FormatDirect):
		return internal.FormatDirect, nil
	case string(internal.FormatGrouped):
		return internal.FormatGrouped, nil
	default:
		return "", fmt.Errorf("unsupported source format: %s", value)
	}
}
