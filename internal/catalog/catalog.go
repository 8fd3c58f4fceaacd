// Package catalog holds the static Money Coach product catalog and the
// presentation policy applied to it once partner features are resolved.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/matt-riley/moneycoach/internal/core"
)

var (
	ErrDuplicateID       = errors.New("duplicate product id")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrProductNotVisible = errors.New("product is not visible")
)

var defaultProducts = []core.Product{
	{ID: "fp1", Name: "AVC", ScreenName: "AVC"},
	{ID: "fp2", Name: "Mortgages", ScreenName: "Mortgages"},
	{ID: "fp3", Name: "Wills", ScreenName: "Wills"},
	{ID: "fp4", Name: "Pensions", ScreenName: "Pensions"},
	{ID: "fp5", Name: "Savings", ScreenName: "Savings"},
	{ID: "fp6", Name: "Income Protection", ScreenName: "IncomeProtection"},
}

// Catalog is an immutable, ordered set of products with unique IDs.
type Catalog struct {
	products []core.Product
	byID     map[string]int
}

// New validates products and returns a catalog holding a copy of them.
func New(products []core.Product) (*Catalog, error) {
	c := &Catalog{
		products: make([]core.Product, 0, len(products)),
		byID:     make(map[string]int, len(products)),
	}

	for i, p := range products {
		if strings.TrimSpace(p.ID) == "" || strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.ScreenName) == "" {
			return nil, fmt.Errorf("%w: products[%d] needs id, name and screenName", ErrInvalidProduct, i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}

	return c, nil
}

// Default returns the built-in Money Coach catalog.
func Default() *Catalog {
	c, err := New(defaultProducts)
	if err != nil {
		panic(err)
	}
	return c
}

type catalogFile struct {
	Products []core.Product `yaml:"products"`
}

// Load reads a YAML catalog file of the form:
//
//	products:
//	  - id: fp1
//	    name: AVC
//	    screenName: AVC
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if len(file.Products) == 0 {
		return nil, fmt.Errorf("%w: catalog %s has no products", ErrInvalidProduct, path)
	}

	return New(file.Products)
}

// Products returns a copy of the catalog in order.
func (c *Catalog) Products() []core.Product {
	out := make([]core.Product, len(c.products))
	copy(out, c.products)
	return out
}

// ByID returns the product with the given ID.
func (c *Catalog) ByID(id string) (core.Product, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return core.Product{}, false
	}
	return c.products[idx], true
}

// Len returns the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}
