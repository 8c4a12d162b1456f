package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromFeedRow_FallbackChains(t *testing.T) {
	t.Parallel()

	t.Run("preferred keys win", func(t *testing.T) {
		raw := FromFeedRow(map[string]any{
			"stock_id": "S-100",
			"vin":      "MA3EYD32S00100000",
			"make":     "Maruti",
			"brand":    "ignored",
			"model":    "Swift",
		})
		assert.Equal(t, "S-100", raw.StockID)
		assert.Equal(t, "Maruti", raw.Make)
	})

	t.Run("falls through empties", func(t *testing.T) {
		raw := FromFeedRow(map[string]any{
			"stock_id": "  ",
			"id":       "",
			"vin":      "MA3EYD32S00100000",
			"brand":    "Hyundai",
			"model":    "i20",
		})
		assert.Equal(t, "MA3EYD32S00100000", raw.StockID)
		assert.Equal(t, "Hyundai", raw.Make)
	})

	t.Run("headers are case-insensitive", func(t *testing.T) {
		raw := FromFeedRow(map[string]any{
			"Stock_ID": "X1",
			"MAKE":     "Tata",
			"Model ":   "Nexon",
		})
		assert.Equal(t, "X1", raw.StockID)
		assert.Equal(t, "Tata", raw.Make)
		assert.Equal(t, "Nexon", raw.Model)
	})

	t.Run("mileage aliases", func(t *testing.T) {
		raw := FromFeedRow(map[string]any{"odometer": "52,000"})
		assert.Equal(t, "52,000", raw.KM)
	})
}

func TestFromFeedRow_JSONValues(t *testing.T) {
	t.Parallel()

	raw := FromFeedRow(map[string]any{
		"id":     float64(1042),
		"make":   "Kia",
		"model":  "Seltos",
		"price":  float64(1250000),
		"year":   float64(2022),
		"images": []any{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"},
	})

	assert.Equal(t, "1042", raw.StockID)
	assert.Equal(t, "1250000", raw.Price)
	assert.Equal(t, "2022", raw.Year)
	assert.Equal(t, []any{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"}, raw.Photos)

	l := Canonical(raw)
	assert.NotNil(t, l)
	assert.Equal(t, []string{"https://cdn.example/1.jpg", "https://cdn.example/2.jpg"}, l.PhotoURLs)
}
