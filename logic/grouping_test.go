package logic

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func item(id, name, price string) BasketItem {
	return BasketItem{ID: id, Name: name, Price: decimal.RequireFromString(price)}
}

func TestRegroup_Empty(t *testing.T) {
	g := Regroup(nil)

	if g.Len() != 0 {
		t.Errorf("expected no groups, got %d", g.Len())
	}
	if g.Count() != 0 {
		t.Errorf("expected no entries, got %d", g.Count())
	}
	if len(g.Groups()) != 0 {
		t.Error("expected Groups to be empty")
	}
}

func TestRegroup_OrderOfFirstAppearance(t *testing.T) {
	items := []BasketItem{
		item("iphone", "iPhone", "999"),
		item("ipad", "iPad", "599"),
		item("iphone", "iPhone", "999"),
		item("watch", "Watch", "399"),
		item("ipad", "iPad", "599"),
	}

	g := Regroup(items)

	want := []string{"iphone", "ipad", "watch"}
	got := g.IDs()
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("expected ids %v, got %v", want, got)
	}
	if g.Len() != 3 {
		t.Errorf("expected 3 groups, got %d", g.Len())
	}
}

func TestRegroup_KeepsRelativeOrderWithinGroup(t *testing.T) {
	first := BasketItem{ID: "mac", Name: "MacBook 14", Price: decimal.NewFromInt(1999)}
	second := BasketItem{ID: "mac", Name: "MacBook 16", Price: decimal.NewFromInt(2499)}
	items := []BasketItem{first, item("ipad", "iPad", "599"), second}

	group, ok := Regroup(items).Get("mac")
	if !ok {
		t.Fatal("expected group for mac")
	}
	if len(group) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(group))
	}
	if group[0].Name != "MacBook 14" || group[1].Name != "MacBook 16" {
		t.Errorf("expected original order, got %q then %q", group[0].Name, group[1].Name)
	}
}

func TestRegroup_CountMatchesInput(t *testing.T) {
	ids := []string{"a", "b", "a", "c", "c", "c", "d", "a"}
	for n := 0; n <= len(ids); n++ {
		items := make([]BasketItem, 0, n)
		for _, id := range ids[:n] {
			items = append(items, item(id, "Product "+id, "1"))
		}

		g := Regroup(items)

		if g.Count() != n {
			t.Errorf("input of %d: expected count %d, got %d", n, n, g.Count())
		}
		total := 0
		for _, group := range g.Groups() {
			total += group.Quantity()
		}
		if total != n {
			t.Errorf("input of %d: group quantities add up to %d", n, total)
		}
	}
}

func TestRegroup_GetMissing(t *testing.T) {
	if _, ok := Regroup([]BasketItem{item("a", "A", "1")}).Get("b"); ok {
		t.Error("expected no group for unknown id")
	}
}

func TestItemGroup_Subtotal(t *testing.T) {
	g := Regroup([]BasketItem{item("a", "A", "10.25"), item("a", "A", "10.25")}).Groups()[0]

	if !g.Subtotal().Equal(decimal.RequireFromString("20.50")) {
		t.Errorf("expected subtotal 20.50, got %s", g.Subtotal())
	}
	if g.Quantity() != 2 {
		t.Errorf("expected quantity 2, got %d", g.Quantity())
	}
}

func TestGroupedItems_GroupsAreCopies(t *testing.T) {
	g := Regroup([]BasketItem{item("a", "A", "1")})

	groups := g.Groups()
	groups[0].Items[0].Name = "changed"

	again, _ := g.Get("a")
	if again[0].Name != "A" {
		t.Error("mutating a returned group changed the grouping")
	}
}
