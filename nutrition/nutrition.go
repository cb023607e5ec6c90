// Package nutrition resolves ingredient names to per-gram macros and
// computes recipe macros. Lookups hit an embedded table first and fall back
// to the Open Food Facts API, caching anything learned for the rest of the
// process lifetime.
package nutrition

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/thomasfsr/fitpipe/plan"
)

//go:embed data/nutrition.json
var embeddedDB []byte

// FoodMacros holds macros per gram of an ingredient.
type FoodMacros struct {
	CaloriesPerGram float64 `json:"calories_per_gram"`
	ProteinGPerGram float64 `json:"protein_g_per_gram"`
	FatGPerGram     float64 `json:"fat_g_per_gram"`
	CarbsGPerGram   float64 `json:"carbs_g_per_gram"`
}

// DB answers macro lookups. Safe for concurrent use.
type DB struct {
	mu     sync.RWMutex
	foods  map[string]FoodMacros
	client *http.Client
	logger *slog.Logger
}

// Option configures a DB.
type Option func(*DB)

// WithLookupClient enables the Open Food Facts fallback for ingredients
// missing from the embedded table.
func WithLookupClient(c *http.Client) Option {
	return func(db *DB) { db.client = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(db *DB) { db.logger = l }
}

// Open loads the embedded table.
func Open(opts ...Option) (*DB, error) {
	foods := make(map[string]FoodMacros)
	if err := json.Unmarshal(embeddedDB, &foods); err != nil {
		return nil, fmt.Errorf("failed to load embedded nutrition table: %w", err)
	}
	db := &DB{foods: foods, logger: slog.Default()}
	for _, opt := range opts {
		opt(db)
	}
	return db, nil
}

// Normalize canonicalizes an ingredient name for lookup.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// Lookup resolves one ingredient. Unknown ingredients are fetched from Open
// Food Facts when a lookup client is configured; otherwise the lookup fails.
func (db *DB) Lookup(ctx context.Context, name string) (FoodMacros, error) {
	key := Normalize(name)
	db.mu.RLock()
	m, ok := db.foods[key]
	db.mu.RUnlock()
	if ok {
		return m, nil
	}
	if db.client == nil {
		return FoodMacros{}, fmt.Errorf("no nutrition data for %q", key)
	}
	m, err := db.fetchOpenFoodFacts(ctx, name)
	if err != nil {
		return FoodMacros{}, fmt.Errorf("no nutrition data for %q: %w", key, err)
	}
	db.mu.Lock()
	db.foods[key] = m
	db.mu.Unlock()
	db.logger.Info("learned ingredient from open food facts", "ingredient", key)
	return m, nil
}

// RecipeMacros sums macros across a recipe's ingredient quantities.
func (db *DB) RecipeMacros(ctx context.Context, r plan.Recipe) (plan.Macros, error) {
	var total plan.Macros
	for _, ing := range r.Ingredients {
		m, err := db.Lookup(ctx, ing.Item)
		if err != nil {
			return plan.Macros{}, err
		}
		total.Calories += ing.QuantityG * m.CaloriesPerGram
		total.Protein += ing.QuantityG * m.ProteinGPerGram
		total.Fats += ing.QuantityG * m.FatGPerGram
		total.Carbs += ing.QuantityG * m.CarbsGPerGram
	}
	return total, nil
}

// Known reports whether every ingredient resolves without a network lookup.
func (db *DB) Known(items []string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, it := range items {
		if _, ok := db.foods[Normalize(it)]; !ok {
			return false
		}
	}
	return true
}

const offSearchURL = "https://world.openfoodfacts.org/cgi/search.pl"

type offResponse struct {
	Products []struct {
		ProductName string             `json:"product_name"`
		Nutriments  map[string]float64 `json:"nutriments"`
	} `json:"products"`
}

func (db *DB) fetchOpenFoodFacts(ctx context.Context, name string) (FoodMacros, error) {
	q := url.Values{}
	q.Set("search_terms", name)
	q.Set("search_simple", "1")
	q.Set("action", "process")
	q.Set("json", "1")
	q.Set("page_size", "1")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, offSearchURL+"?"+q.Encode(), nil)
	if err != nil {
		return FoodMacros{}, err
	}
	resp, err := db.client.Do(req)
	if err != nil {
		return FoodMacros{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return FoodMacros{}, fmt.Errorf("open food facts returned %d", resp.StatusCode)
	}
	var out offResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return FoodMacros{}, err
	}
	if len(out.Products) == 0 {
		return FoodMacros{}, fmt.Errorf("no product match for %q", name)
	}
	n := out.Products[0].Nutriments
	per100 := func(key string) float64 { return n[key] / 100 }
	m := FoodMacros{
		CaloriesPerGram: per100("energy-kcal_100g"),
		ProteinGPerGram: per100("proteins_100g"),
		FatGPerGram:     per100("fat_100g"),
		CarbsGPerGram:   per100("carbohydrates_100g"),
	}
	if m.CaloriesPerGram == 0 {
		return FoodMacros{}, fmt.Errorf("product %q has no usable nutriments", out.Products[0].ProductName)
	}
	return m, nil
}
