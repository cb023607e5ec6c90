package nutrition

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasfsr/fitpipe/plan"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "chicken_breast", Normalize("Chicken Breast"))
	assert.Equal(t, "oats", Normalize("  OATS "))
	assert.Equal(t, "greek_yogurt", Normalize("greek yogurt"))
}

func TestLookupEmbedded(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)

	m, err := db.Lookup(context.Background(), "Chicken Breast")
	require.NoError(t, err)
	assert.InDelta(t, 1.65, m.CaloriesPerGram, 0.001)
	assert.InDelta(t, 0.31, m.ProteinGPerGram, 0.001)
}

func TestLookupUnknownWithoutClient(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)

	_, err = db.Lookup(context.Background(), "dragonfruit")
	assert.Error(t, err)
}

func TestRecipeMacros(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)

	r := plan.Recipe{
		RecipeName: "Oats Bowl",
		Ingredients: []plan.IngredientQuantity{
			{Item: "oats", QuantityG: 100},
			{Item: "milk", QuantityG: 200},
		},
	}
	m, err := db.RecipeMacros(context.Background(), r)
	require.NoError(t, err)
	// 100g oats = 389 kcal, 200g milk = 122 kcal
	assert.InDelta(t, 511, m.Calories, 0.1)
	assert.InDelta(t, 23.3, m.Protein, 0.1)
}

func TestRecipeMacrosFailsOnUnknownIngredient(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)

	r := plan.Recipe{
		Ingredients: []plan.IngredientQuantity{{Item: "dragonfruit", QuantityG: 100}},
	}
	_, err = db.RecipeMacros(context.Background(), r)
	assert.Error(t, err)
}

func TestKnown(t *testing.T) {
	db, err := Open()
	require.NoError(t, err)

	assert.True(t, db.Known([]string{"oats", "Chicken Breast"}))
	assert.False(t, db.Known([]string{"oats", "dragonfruit"}))
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestLookupFallsBackToOpenFoodFacts(t *testing.T) {
	var hits int
	body := `{"products":[{"product_name":"Dragonfruit","nutriments":{
		"energy-kcal_100g": 60, "proteins_100g": 1.2, "fat_100g": 0.4, "carbohydrates_100g": 13}}]}`
	client := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		hits++
		assert.Contains(t, r.URL.RawQuery, "dragonfruit")
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       newStringBody(body),
			Request:    r,
		}, nil
	})}

	db, err := Open(WithLookupClient(client))
	require.NoError(t, err)

	m, err := db.Lookup(context.Background(), "dragonfruit")
	require.NoError(t, err)
	assert.InDelta(t, 0.6, m.CaloriesPerGram, 0.001)
	assert.InDelta(t, 0.012, m.ProteinGPerGram, 0.001)

	// learned result is cached, no second fetch
	_, err = db.Lookup(context.Background(), "dragonfruit")
	require.NoError(t, err)
	assert.Equal(t, 1, hits)
}

func TestLookupRejectsEmptyNutriments(t *testing.T) {
	body := `{"products":[{"product_name":"Mystery","nutriments":{}}]}`
	client := &http.Client{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: newStringBody(body), Request: r}, nil
	})}

	db, err := Open(WithLookupClient(client))
	require.NoError(t, err)

	_, err = db.Lookup(context.Background(), "mystery")
	assert.Error(t, err)
}

func newStringBody(s string) *readCloser {
	return &readCloser{Reader: strings.NewReader(s)}
}

type readCloser struct {
	*strings.Reader
}

func (r *readCloser) Close() error { return nil }
