package coordinator

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/dreamware/storegrid/internal/catalog"
)

const rule = "----------------------------------------\n"

// ProductSalesReport renders per-product revenue for one store.
func ProductSalesReport(storeName string, products []catalog.Product) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nSales Report for %s:\n", storeName)
	b.WriteString(rule)

	total := 0.0
	for _, p := range products {
		revenue := p.Revenue()
		total += revenue
		fmt.Fprintf(&b, "%s: $%.2f\n", p.Name, revenue)
	}

	b.WriteString(rule)
	fmt.Fprintf(&b, "Total Store Sales: $%.2f\n", total)
	return b.String()
}

// SalesReport renders per-store totals under title, sorted by store name.
func SalesReport(title string, byStore map[string]float64) string {
	names := make([]string, 0, len(byStore))
	for name := range byStore {
		names = append(names, name)
	}
	slices.Sort(names)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", title)
	b.WriteString(rule)

	total := 0.0
	for _, name := range names {
		total += byStore[name]
		fmt.Fprintf(&b, "%s: $%.2f\n", name, byStore[name])
	}

	b.WriteString(rule)
	fmt.Fprintf(&b, "Total: $%.2f\n", total)
	return b.String()
}

// SearchReport renders search matches for the client.
func SearchReport(stores []catalog.Store) string {
	var b strings.Builder
	b.WriteString("\nSearch Results:\n")
	b.WriteString("==============\n\n")

	if len(stores) == 0 {
		b.WriteString("No stores found matching your criteria.\n")
		return b.String()
	}

	for i := range stores {
		v := stores[i].View()
		fmt.Fprintf(&b, "Store: %s\n", v.Name)
		fmt.Fprintf(&b, "Category: %s\n", v.FoodCategory)
		fmt.Fprintf(&b, "Price Range: %s\n", v.PriceCategory)
		fmt.Fprintf(&b, "Rating: %d\n", v.Stars)
		fmt.Fprintf(&b, "Location: (%.2f, %.2f)\n", v.Latitude, v.Longitude)

		if len(v.Products) > 0 {
			b.WriteString("\nAvailable Products:\n")
			for _, p := range v.Products {
				fmt.Fprintf(&b, "  - %s (%s): $%.2f - %d units\n", p.Name, p.Type, p.Price, p.AvailableAmount)
			}
		}
		b.WriteString("\n" + rule + "\n")
	}
	return b.String()
}

// mergeTotals adds part into dst.
func mergeTotals(dst, part map[string]float64) {
	for k, v := range part {
		dst[k] += v
	}
}
