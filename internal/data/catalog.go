package data

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Category names the core relies on.
const (
	CategoryUnits = "units"
	CategoryNpcs  = "npcs"
)

var (
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrUnknownComponent = errors.New("unknown component")
)

// EntityDef holds static data for one entity type loaded from YAML.
// Component values stay as raw nodes; the world decodes them per kind.
type EntityDef struct {
	Name        string               `yaml:"-"`
	Category    string               `yaml:"-"`
	Components  map[string]yaml.Node `yaml:"components"`
	Scripts     map[string]string    `yaml:"scripts"` // trigger kind → Lua body
	Description string               `yaml:"description"`
	Tier        uint32               `yaml:"tier"`      // npcs: minimum player level for waves
	Score       uint32               `yaml:"score"`     // npcs: wave budget cost
	MinLevel    uint32               `yaml:"min_level"` // units: shop availability
	MaxLevel    *uint32              `yaml:"max_level"`
	Chance      float64              `yaml:"chance"` // units: shop weight
}

// HasComponent reports whether the definition lists the named component.
func (d *EntityDef) HasComponent(name string) bool {
	_, ok := d.Components[name]
	return ok
}

// Decode decodes the named component value into out.
func (d *EntityDef) Decode(name string, out any) error {
	node, ok := d.Components[name]
	if !ok {
		return fmt.Errorf("%s: %w %q", d.Name, ErrUnknownComponent, name)
	}
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("%s: decode %s: %w", d.Name, name, err)
	}
	return nil
}

// ComponentNames returns the listed component names in sorted order.
func (d *EntityDef) ComponentNames() []string {
	names := make([]string, 0, len(d.Components))
	for k := range d.Components {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Catalog holds every entity definition, indexed by case-folded name and
// grouped by category.
type Catalog struct {
	entities   map[string]*EntityDef
	categories map[string][]string
}

func NewCatalog() *Catalog {
	return &Catalog{
		entities:   make(map[string]*EntityDef),
		categories: make(map[string][]string),
	}
}

func foldName(name string) string {
	return cases.Fold().String(name)
}

// Add parses one category document (a map of name → definition) into c.
func (c *Catalog) Add(category string, raw []byte) error {
	defs, err := parseCategory(category, raw)
	if err != nil {
		return err
	}
	c.merge(category, defs)
	return nil
}

func parseCategory(category string, raw []byte) ([]*EntityDef, error) {
	var m map[string]*EntityDef
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", category, err)
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]*EntityDef, 0, len(m))
	for _, name := range names {
		def := m[name]
		if def == nil {
			// commented-out entry
			continue
		}
		def.Name = name
		def.Category = category
		if def.Chance == 0 {
			def.Chance = 1
		}
		if def.Tier == 0 {
			def.Tier = 1
		}
		if def.Score == 0 {
			def.Score = 1
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (c *Catalog) merge(category string, defs []*EntityDef) {
	for _, def := range defs {
		c.entities[foldName(def.Name)] = def
		c.categories[category] = append(c.categories[category], def.Name)
	}
	sort.Strings(c.categories[category])
}

// Get returns a definition by name, ignoring case.
func (c *Catalog) Get(name string) (*EntityDef, bool) {
	d, ok := c.entities[foldName(name)]
	return d, ok
}

// Category returns the sorted entity names of a category.
func (c *Catalog) Category(category string) []string {
	return c.categories[category]
}

// Count returns the number of loaded definitions.
func (c *Catalog) Count() int {
	return len(c.entities)
}

// Each calls fn for every definition in name order.
func (c *Catalog) Each(fn func(*EntityDef)) {
	keys := make([]string, 0, len(c.entities))
	for k := range c.entities {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(c.entities[k])
	}
}

// LoadCatalog reads <dir>/<category>.yaml for each category. Files are
// parsed concurrently and merged in argument order.
func LoadCatalog(dir string, categories ...string) (*Catalog, error) {
	parsed := make([][]*EntityDef, len(categories))
	var g errgroup.Group
	for i, category := range categories {
		g.Go(func() error {
			path := filepath.Join(dir, category+".yaml")
			raw, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			defs, err := parseCategory(category, raw)
			if err != nil {
				return err
			}
			parsed[i] = defs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	c := NewCatalog()
	for i, category := range categories {
		c.merge(category, parsed[i])
	}
	return c, nil
}
