package ratio

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrUnknownRatio is returned when a requested ratio name is not in the set.
var ErrUnknownRatio = errors.New("unknown ratio")

// Spec describes one named print aspect ratio and the pixel dimensions of
// its full-resolution output, sized for 300 DPI print quality.
type Spec struct {
	Name   string `yaml:"name" json:"name"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Dimensions returns the output dimensions in the "3600 x 5400 px" form used
// in preview payloads.
func (s Spec) Dimensions() string {
	return fmt.Sprintf("%d x %d px", s.Width, s.Height)
}

// Set is an ordered collection of ratio specs. Order is significant: batch
// operations process ratios in set order.
type Set []Spec

// DefaultSet returns the five standard print ratios.
func DefaultSet() Set {
	return Set{
		{Name: "2x3", Width: 3600, Height: 5400},
		{Name: "3x4", Width: 2700, Height: 3600},
		{Name: "4x5", Width: 3600, Height: 4500},
		{Name: "ISO", Width: 3508, Height: 4967},
		{Name: "11x14", Width: 1650, Height: 2100},
	}
}

// Lookup returns the spec with the given name, or ErrUnknownRatio.
func (s Set) Lookup(name string) (Spec, error) {
	for _, spec := range s {
		if spec.Name == name {
			return spec, nil
		}
	}
	return Spec{}, fmt.Errorf("%w: %q", ErrUnknownRatio, name)
}

// Names returns the ratio names in set order.
func (s Set) Names() []string {
	names := make([]string, len(s))
	for i, spec := range s {
		names[i] = spec.Name
	}
	return names
}

// Validate checks that the set is non-empty and every spec has a unique
// non-empty name and positive dimensions.
func (s Set) Validate() error {
	if len(s) == 0 {
		return errors.New("ratio set is empty")
	}
	seen := make(map[string]bool, len(s))
	for _, spec := range s {
		if spec.Name == "" {
			return errors.New("ratio with empty name")
		}
		if seen[spec.Name] {
			return fmt.Errorf("duplicate ratio name %q", spec.Name)
		}
		seen[spec.Name] = true
		if spec.Width <= 0 || spec.Height <= 0 {
			return fmt.Errorf("ratio %q has non-positive dimensions %dx%d", spec.Name, spec.Width, spec.Height)
		}
	}
	return nil
}

// LoadFile reads a custom ratio set from a YAML file containing a list of
// {name, width, height} entries.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read ratio file: %w", err)
	}

	var specs []Spec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse ratio file %s: %w", path, err)
	}

	set := Set(specs)
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid ratio file %s: %w", path, err)
	}
	return set, nil
}
