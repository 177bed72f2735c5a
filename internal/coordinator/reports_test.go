package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dreamware/storegrid/internal/catalog"
)

func TestSalesReport(t *testing.T) {
	totals := map[string]float64{}
	mergeTotals(totals, map[string]float64{"Pita": 10, "Olive": 2.5})
	mergeTotals(totals, map[string]float64{"Olive": 5})

	got := SalesReport("Sales by Food Category: Greek", totals)
	want := "\nSales by Food Category: Greek\n" +
		rule +
		"Olive: $7.50\n" +
		"Pita: $10.00\n" +
		rule +
		"Total: $17.50\n"
	assert.Equal(t, want, got)
}

func TestProductSalesReport(t *testing.T) {
	products := []catalog.Product{
		{Name: "gyros", Price: 4, UnitsSold: 3},
		{Name: "salad", Price: 2.5, UnitsSold: 0},
	}
	got := ProductSalesReport("Olive", products)
	assert.Contains(t, got, "Sales Report for Olive:")
	assert.Contains(t, got, "gyros: $12.00\n")
	assert.Contains(t, got, "salad: $0.00\n")
	assert.Contains(t, got, "Total Store Sales: $12.00\n")
}

func TestSearchReport(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, "\nSearch Results:\n==============\n\nNo stores found matching your criteria.\n", SearchReport(nil))
	})

	t.Run("lists active products", func(t *testing.T) {
		stores := []catalog.Store{{
			Name:          "Olive",
			FoodCategory:  "Greek",
			PriceCategory: "$$",
			Stars:         4,
			Latitude:      37.98,
			Longitude:     23.72,
			Products: []catalog.Product{
				{Name: "gyros", Type: "main", Price: 6.5, AvailableAmount: 3, Active: true},
				{Name: "old", Type: "main", Price: 1, Active: false},
			},
		}}
		got := SearchReport(stores)
		assert.Contains(t, got, "Store: Olive\nCategory: Greek\nPrice Range: $$\nRating: 4\nLocation: (37.98, 23.72)\n")
		assert.Contains(t, got, "  - gyros (main): $6.50 - 3 units\n")
		assert.NotContains(t, got, "old")
	})
}
