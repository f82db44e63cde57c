package ingest

import (
	"testing"

	"pricewatch-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestBufferCollapsesRetries(t *testing.T) {
	b := NewBuffer()

	first := models.RawListing{
		Site:  "cafemarkt",
		Name:  "Fagor 4 Gözlü Ocak",
		URL:   "https://cafemarkt.example/p/123",
		Price: decimal.NewFromInt(1000),
	}
	retry := first
	retry.Price = decimal.NewFromInt(990)

	assert.False(t, b.Add(first))
	assert.True(t, b.Add(retry), "same (site, url) should replace")
	assert.Equal(t, 1, b.Len())

	drained := b.Drain()
	assert.Len(t, drained, 1)
	assert.True(t, drained[0].Price.Equal(decimal.NewFromInt(990)), "last record wins")
	assert.Equal(t, 0, b.Len(), "drain empties the buffer")
}

func TestBufferDrainOrderDeterministic(t *testing.T) {
	listings := []models.RawListing{
		{Site: "mutbex", Name: "b"},
		{Site: "arigastro", Name: "z"},
		{Site: "mutbex", Name: "a"},
	}

	b := NewBuffer()
	b.AddBatch(listings)
	first := b.Drain()

	b.AddBatch([]models.RawListing{listings[2], listings[0], listings[1]})
	second := b.Drain()

	assert.Equal(t, first, second)
	assert.Equal(t, "arigastro", first[0].Site)
}

func TestBufferKeyFallsBackToName(t *testing.T) {
	b := NewBuffer()
	b.Add(models.RawListing{Site: "mutbex", Name: "Fritöz 8 lt"})
	b.Add(models.RawListing{Site: "mutbex", Name: "Fritöz 8 lt"})
	assert.Equal(t, 1, b.Len())
}
