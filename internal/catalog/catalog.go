// Package catalog reads city and tariff seed data from YAML. A built-in dataset is embedded
// for offline use; the same Catalog also answers city and tariff lookups without a database.
package catalog

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"water-savings-platform/internal/calculator"
	"water-savings-platform/internal/models"
	"water-savings-platform/internal/repository"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Catalog is a parsed seed file. Cities get ids 1..n in file order unless the file sets them.
type Catalog struct {
	Tariffs map[string]float64 `yaml:"tariffs"`
	Cities  []models.City      `yaml:"-"`
}

type document struct {
	Tariffs map[string]float64 `yaml:"tariffs"`
	Cities  []cityEntry        `yaml:"cities"`
}

// cityEntry decodes a city with active defaulting to true
type cityEntry struct {
	City models.City
}

func (e *cityEntry) UnmarshalYAML(node *yaml.Node) error {
	city := models.City{Active: true}
	if err := node.Decode(&city); err != nil {
		return err
	}
	e.City = city
	return nil
}

// Load reads and validates a catalog file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Default returns the embedded fallback dataset
func Default() *Catalog {
	cat, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return cat
}

// LoadOrDefault loads path, or returns the embedded dataset when path is empty
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Parse decodes YAML, normalizes every city and rejects invalid rows
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	for key, value := range doc.Tariffs {
		if err := models.ValidateTariff(key, value); err != nil {
			return nil, fmt.Errorf("tariffs: %w", err)
		}
	}

	cat := &Catalog{
		Tariffs: doc.Tariffs,
		Cities:  make([]models.City, 0, len(doc.Cities)),
	}
	seen := make(map[string]int, len(doc.Cities))
	ids := make(map[int64]bool, len(doc.Cities))

	for i, entry := range doc.Cities {
		city := entry.City
		city.Normalize()
		if err := city.Validate(); err != nil {
			return nil, fmt.Errorf("cities[%d]: %w", i, err)
		}

		key := strings.ToLower(city.Name) + "/" + city.State
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("cities[%d]: duplicate of cities[%d] (%s/%s)", i, prev, city.Name, city.State)
		}
		seen[key] = i

		if city.ID == 0 {
			city.ID = int64(i + 1)
		}
		if ids[city.ID] {
			return nil, fmt.Errorf("cities[%d]: duplicate id %d", i, city.ID)
		}
		ids[city.ID] = true

		cat.Cities = append(cat.Cities, city)
	}

	return cat, nil
}

// TariffConstants returns the defaults overridden by the file's tariffs
func (c *Catalog) TariffConstants() calculator.TariffConstants {
	t, _ := models.ResolveTariffs(c.TariffEntries())
	return t
}

// TariffEntries returns only the tariffs the file sets, sorted by key
func (c *Catalog) TariffEntries() []models.TariffEntry {
	keys := make([]string, 0, len(c.Tariffs))
	for k := range c.Tariffs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]models.TariffEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, models.TariffEntry{Key: k, Value: c.Tariffs[k]})
	}
	return entries
}

// Get returns the city with id
func (c *Catalog) Get(_ context.Context, id int64) (*models.City, error) {
	for i := range c.Cities {
		if c.Cities[i].ID == id {
			city := c.Cities[i]
			return &city, nil
		}
	}
	return nil, &repository.NotFoundError{Resource: "city", ID: strconv.FormatInt(id, 10)}
}

// GetCurrent returns the catalog's tariff constants
func (c *Catalog) GetCurrent(context.Context) (calculator.TariffConstants, error) {
	return c.TariffConstants(), nil
}

// Find resolves a city by numeric id or by case-insensitive name, optionally "Name/UF"
func (c *Catalog) Find(ref string) (*models.City, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.Get(context.Background(), id)
	}

	name, state, hasState := strings.Cut(ref, "/")
	var match *models.City
	for i := range c.Cities {
		city := &c.Cities[i]
		if !strings.EqualFold(city.Name, strings.TrimSpace(name)) {
			continue
		}
		if hasState && !strings.EqualFold(city.State, strings.TrimSpace(state)) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("city %q is ambiguous, use Name/State or the id", ref)
		}
		match = city
	}
	if match == nil {
		return nil, &repository.NotFoundError{Resource: "city", ID: ref}
	}
	found := *match
	return &found, nil
}
