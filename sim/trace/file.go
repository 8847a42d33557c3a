package trace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Format selects a trace codec.
type Format string

const (
	FormatYAML   Format = "yaml"
	FormatBinary Format = "binary"
)

// FormatFor picks the codec from the file extension: .yaml/.yml or .bin/.pb.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".bin", ".pb":
		return FormatBinary, nil
	default:
		return "", fmt.Errorf("trace: cannot infer format of %q (use .yaml, .yml, .bin or .pb)", path)
	}
}

// Encode serializes tr in the given format.
func Encode(tr *Trace, reg *Registry, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return MarshalYAML(tr, reg)
	case FormatBinary:
		return MarshalBinary(tr, reg)
	default:
		return nil, fmt.Errorf("trace: unknown format %q", format)
	}
}

// Decode parses data in the given format.
func Decode(data []byte, reg *Registry, format Format) (*Trace, error) {
	switch format {
	case FormatYAML:
		return UnmarshalYAML(data, reg)
	case FormatBinary:
		return UnmarshalBinary(data, reg)
	default:
		return nil, fmt.Errorf("trace: unknown format %q", format)
	}
}

// Save writes tr to path, choosing the codec by extension.
func (t *Trace) Save(path string, reg *Registry) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	data, err := Encode(t, reg, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("trace: writing %s: %w", path, err)
	}
	logrus.Infof("Trace written to %s (%d snapshots, %d events, %d bytes)", path, len(t.History), len(t.Events), len(data))
	return nil
}

// Load reads a trace written by Save.
func Load(path string, reg *Registry) (*Trace, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trace: reading %s: %w", path, err)
	}
	return Decode(data, reg, format)
}
