// Package catalog exposes the fixed listing categories and the credit packages
// offered for sale.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

//go:embed catalog.toml
var embedded []byte

// Category is one of the fixed listing categories.
type Category struct {
	Slug string `toml:"slug" json:"slug"`
	Name string `toml:"name" json:"name"`
}

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	ID          string `toml:"id" json:"id"`
	Name        string `toml:"name" json:"name"`
	Credits     int    `toml:"credits" json:"credits"`
	AmountMinor int64  `toml:"amount_minor" json:"amountMinor"`
}

// Catalog holds the parsed catalog file.
type Catalog struct {
	Categories []Category      `toml:"categories"`
	Packages   []CreditPackage `toml:"packages"`

	byName    map[string]Category
	byPackage map[string]CreditPackage
}

// Parse decodes a TOML catalog and validates it.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c.byName = make(map[string]Category, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" || cat.Slug == "" {
			return nil, fmt.Errorf("category with empty name or slug")
		}
		if _, dup := c.byName[cat.Name]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.Name)
		}
		c.byName[cat.Name] = cat
	}
	c.byPackage = make(map[string]CreditPackage, len(c.Packages))
	for _, pkg := range c.Packages {
		if pkg.ID == "" || pkg.Credits <= 0 || pkg.AmountMinor <= 0 {
			return nil, fmt.Errorf("invalid credit package %q", pkg.ID)
		}
		c.byPackage[pkg.ID] = pkg
	}
	return &c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. It panics if the embedded file is
// invalid, which is caught by tests.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(embedded)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// IsCategory reports whether name is exactly one of the catalog categories.
func (c *Catalog) IsCategory(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// CategoryNames lists category names in catalog order.
func (c *Catalog) CategoryNames() []string {
	names := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		names = append(names, cat.Name)
	}
	return names
}

// Package looks up a credit package by id.
func (c *Catalog) Package(id string) (CreditPackage, bool) {
	pkg, ok := c.byPackage[id]
	return pkg, ok
}

// IsCategory checks membership in the default catalog.
func IsCategory(name string) bool {
	return Default().IsCategory(name)
}
