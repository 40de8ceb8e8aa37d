package logic

import (
	"slices"

	"github.com/shopspring/decimal"
)

// ItemGroup is every basket entry sharing one product ID.
type ItemGroup struct {
	ID    string
	Items []BasketItem
}

func (g ItemGroup) Quantity() int {
	return len(g.Items)
}

func (g ItemGroup) Subtotal() decimal.Decimal {
	return SumPrices(g.Items)
}

// First returns the entry used to describe the group on screen.
func (g ItemGroup) First() BasketItem {
	if len(g.Items) == 0 {
		return BasketItem{ID: g.ID}
	}
	return g.Items[0]
}

// GroupedItems maps product ID to its entries, keeping groups in order of
// first appearance.
type GroupedItems struct {
	order  []string
	groups map[string][]BasketItem
}

// Regroup groups items by ID. Entries within a group keep their original
// relative order and no entry is dropped or duplicated.
func Regroup(items []BasketItem) GroupedItems {
	g := GroupedItems{groups: make(map[string][]BasketItem)}
	for _, item := range items {
		if _, seen := g.groups[item.ID]; !seen {
			g.order = append(g.order, item.ID)
		}
		g.groups[item.ID] = append(g.groups[item.ID], item)
	}
	return g
}

// Len is the number of distinct product IDs.
func (g GroupedItems) Len() int {
	return len(g.order)
}

// Count is the number of entries across all groups.
func (g GroupedItems) Count() int {
	n := 0
	for _, items := range g.groups {
		n += len(items)
	}
	return n
}

func (g GroupedItems) IDs() []string {
	return slices.Clone(g.order)
}

func (g GroupedItems) Get(id string) ([]BasketItem, bool) {
	items, ok := g.groups[id]
	return slices.Clone(items), ok
}

func (g GroupedItems) Groups() []ItemGroup {
	out := make([]ItemGroup, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, ItemGroup{ID: id, Items: slices.Clone(g.groups[id])})
	}
	return out
}
