package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchResultMarshalJSON(t *testing.T) {
	t.Run("priced result keeps the raw snippet", func(t *testing.T) {
		out, err := json.Marshal(SearchResult{
			Title:    "Acme Widget X 128GB",
			URL:      "https://www.flipkart.com/widget-x",
			Price:    "₹1,299",
			Platform: PlatformFlipkart,
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"title": "Acme Widget X 128GB",
			"url": "https://www.flipkart.com/widget-x",
			"price": "₹1,299",
			"platform": "flipkart"
		}`, string(out))
	})

	t.Run("missing price renders as null", func(t *testing.T) {
		out, err := json.Marshal(SearchResult{
			Title:    "Acme Widget Y",
			URL:      "https://www.meesho.com/widget-y",
			Platform: PlatformMeesho,
		})
		require.NoError(t, err)

		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(out, &decoded))
		value, present := decoded["price"]
		assert.True(t, present)
		assert.Nil(t, value)
	})
}

func TestHasPrice(t *testing.T) {
	priced := SearchResult{Price: "₹500"}
	unpriced := SearchResult{}

	assert.True(t, priced.HasPrice())
	assert.False(t, unpriced.HasPrice())
}

func TestProductRecordMarshalJSON(t *testing.T) {
	t.Run("failed extractions stay explicit nulls", func(t *testing.T) {
		out, err := json.Marshal(ProductRecord{Title: "Acme Widget X"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"title": "Acme Widget X", "price": null, "image": null}`, string(out))
	})

	t.Run("optional sections omitted when empty", func(t *testing.T) {
		out, err := json.Marshal(ProductRecord{Title: "Acme Widget X"})
		require.NoError(t, err)
		assert.NotContains(t, string(out), "metadata")
		assert.NotContains(t, string(out), "alternate_prices")
	})
}
