package tool

import (
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrDuplicateTool     = errors.New("tool already registered")
	ErrInvalidDescriptor = errors.New("invalid tool descriptor")
	ErrEmptyCatalog      = errors.New("catalog declares no tools")
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

type catalogFile struct {
	Tools []Descriptor `yaml:"tools"`
}

// Catalog is the fixed, ordered set of tool descriptors. It is built once at
// startup and never mutated afterwards, so it is safe for concurrent reads.
type Catalog struct {
	ordered []Descriptor
	byName  map[string]int
}

// LoadCatalog returns the embedded Metricool catalog.
func LoadCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewCatalog(file.Tools...)
}

// NewCatalog validates descriptors and indexes them by name.
func NewCatalog(descriptors ...Descriptor) (*Catalog, error) {
	if len(descriptors) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		ordered: make([]Descriptor, 0, len(descriptors)),
		byName:  make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		if err := c.register(d); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) register(d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	if _, exists := c.byName[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
	}
	c.byName[d.Name] = len(c.ordered)
	c.ordered = append(c.ordered, d)
	return nil
}

// Get returns the descriptor registered under name.
func (c *Catalog) Get(name string) (Descriptor, error) {
	i, ok := c.byName[name]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return c.ordered[i], nil
}

// List returns a copy of all descriptors in declaration order.
func (c *Catalog) List() []Descriptor {
	out := make([]Descriptor, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
