package connectors

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed demo_assets.yaml
var defaultCatalogYAML []byte

// CatalogAsset describes a coin: its provider id, exchange symbol and the
// parameters of its synthetic demo series.
type CatalogAsset struct {
	ID          string  `yaml:"id"`
	Symbol      string  `yaml:"symbol"`
	Name        string  `yaml:"name"`
	BasePrice   float64 `yaml:"base_price"`
	Volatility  float64 `yaml:"volatility"`
	MarketCap   float64 `yaml:"market_cap"`
	TotalVolume float64 `yaml:"total_volume"`
}

type Catalog struct {
	Assets []CatalogAsset `yaml:"assets"`

	byID     map[string]CatalogAsset
	bySymbol map[string]CatalogAsset
}

func LoadCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse asset catalog: %w", err)
	}
	c.byID = make(map[string]CatalogAsset, len(c.Assets))
	c.bySymbol = make(map[string]CatalogAsset, len(c.Assets))
	for _, a := range c.Assets {
		if a.ID == "" || a.Symbol == "" {
			return nil, fmt.Errorf("asset catalog entry %q: id and symbol are required", a.Name)
		}
		if a.BasePrice <= 0 {
			return nil, fmt.Errorf("asset catalog entry %s: base_price must be positive", a.ID)
		}
		a.Symbol = strings.ToUpper(a.Symbol)
		c.byID[a.ID] = a
		c.bySymbol[a.Symbol] = a
	}
	return &c, nil
}

// DefaultCatalog is the embedded demo_assets.yaml.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(defaultCatalogYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) ByID(id string) (CatalogAsset, bool) {
	a, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return a, ok
}

func (c *Catalog) BySymbol(symbol string) (CatalogAsset, bool) {
	a, ok := c.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	return a, ok
}

// IDs lists the coin ids in catalog order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.Assets))
	for _, a := range c.Assets {
		ids = append(ids, a.ID)
	}
	return ids
}

// Resolve accepts either a coin id ("bitcoin") or a symbol ("BTC").
func (c *Catalog) Resolve(idOrSymbol string) (CatalogAsset, bool) {
	if a, ok := c.ByID(idOrSymbol); ok {
		return a, true
	}
	return c.BySymbol(idOrSymbol)
}
