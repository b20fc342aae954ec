// Package catalog holds the credit-pack catalog. Two packs ship built in;
// operators can override the catalog with a JSON file that is hot-reloaded
// when it changes.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Pack is one purchasable credit bundle. The ledger never interprets packs;
// they only parameterize the payment flow and the credit application.
type Pack struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Label        string `json:"label"`
	Credits      int    `json:"credits"`
	AmountCents  int    `json:"amount_cents"`
	UnlocksNatal bool   `json:"unlocks_natal,omitempty"`
}

// DefaultPacks returns the built-in catalog.
func DefaultPacks() []Pack {
	return []Pack{
		{
			ID:    "pack_5",
			Title: "🪄 Buy 5 readings",
			Description: "✨ Five readings, and I will show you more signs than ordinary eyes can see.\n" +
				"Check feelings, plans and outcomes without waiting.",
			Label:       "5 readings",
			Credits:     5,
			AmountCents: 299,
		},
		{
			ID:    "pack_10_natal",
			Title: "🔮 Buy 10 readings + Natal chart",
			Description: "🌙 Ten readings plus access to the Natal chart.\n" +
				"I will look beyond the arcana, into your celestial code.",
			Label:        "10 readings + Natal chart",
			Credits:      10,
			AmountCents:  499,
			UnlocksNatal: true,
		},
	}
}

// Catalog is a reloadable, read-mostly view of the available packs.
type Catalog struct {
	mu    sync.RWMutex
	path  string
	packs []Pack
	byID  map[string]Pack
}

// Load builds a catalog. With an empty path the built-in packs are used;
// otherwise the file at path replaces them.
func Load(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the catalog file, or restores the defaults when the
// catalog has no file. An invalid file leaves the current packs in place.
func (c *Catalog) Reload() error {
	packs := DefaultPacks()
	if c.path != "" {
		data, err := os.ReadFile(c.path)
		if err != nil {
			return fmt.Errorf("read pack catalog %s: %w", c.path, err)
		}
		packs = nil
		if err := json.Unmarshal(data, &packs); err != nil {
			return fmt.Errorf("decode pack catalog %s: %w", c.path, err)
		}
	}
	byID, err := index(packs)
	if err != nil {
		return fmt.Errorf("pack catalog %s: %w", c.path, err)
	}

	c.mu.Lock()
	c.packs = packs
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// Packs returns the packs in catalog order.
func (c *Catalog) Packs() []Pack {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Pack(nil), c.packs...)
}

// Get looks up a pack by its identifier.
func (c *Catalog) Get(id string) (Pack, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pack, ok := c.byID[id]
	return pack, ok
}

// Path returns the catalog file path, empty for the built-in catalog.
func (c *Catalog) Path() string {
	return c.path
}

func index(packs []Pack) (map[string]Pack, error) {
	if len(packs) == 0 {
		return nil, fmt.Errorf("no packs defined")
	}
	byID := make(map[string]Pack, len(packs))
	for _, pack := range packs {
		switch {
		case pack.ID == "":
			return nil, fmt.Errorf("pack with empty ID")
		case pack.Credits <= 0:
			return nil, fmt.Errorf("pack %s: credits must be positive, got %d", pack.ID, pack.Credits)
		case pack.AmountCents <= 0:
			return nil, fmt.Errorf("pack %s: amount must be positive, got %d", pack.ID, pack.AmountCents)
		}
		if _, dup := byID[pack.ID]; dup {
			return nil, fmt.Errorf("duplicate pack ID %s", pack.ID)
		}
		byID[pack.ID] = pack
	}
	return byID, nil
}
