package logic

import (
	"encoding/json"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BasketItem is one product entry in a basket. A product added twice appears
// as two entries sharing the same ID.
type BasketItem struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
}

type basketItemJSON struct {
	ID    string      `json:"_id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
	Image string      `json:"image,omitempty"`
}

// MarshalJSON writes the price as a JSON number rather than decimal's quoted form.
func (i BasketItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(basketItemJSON{
		ID:    i.ID,
		Name:  i.Name,
		Price: json.Number(i.Price.String()),
		Image: i.Image,
	})
}

func (i *BasketItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID    string          `json:"_id"`
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
		Image string          `json:"image"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*i = BasketItem{ID: raw.ID, Name: raw.Name, Price: raw.Price, Image: raw.Image}
	return nil
}

func (i BasketItem) Validate() error {
	if strings.TrimSpace(i.ID) == "" {
		return NewInvalidItem(ErrMsgItemIDRequired)
	}
	if strings.TrimSpace(i.Name) == "" {
		return NewInvalidItemf("%s (id: %s)", ErrMsgItemNameRequired, i.ID)
	}
	if i.Price.IsNegative() {
		return NewInvalidItemf("%s (id: %s)", ErrMsgPriceNegative, i.ID)
	}
	if _, err := Cents(i.Price); err != nil {
		return NewInvalidItemf("%s (id: %s)", ErrMsgPriceTooLarge, i.ID)
	}
	return nil
}

// BasketReader is the read-only view of a basket handed to its consumers.
type BasketReader interface {
	Items() []BasketItem
	Total() decimal.Decimal
	// Subscribe registers fn for change notifications. fn is called once
	// immediately with the current items, then after every change.
	Subscribe(fn func(items []BasketItem)) (unsubscribe func())
}

type subscriber struct {
	id int
	fn func([]BasketItem)
}

// Basket owns a visitor's items. Subscribers are notified synchronously and
// in registration order; they must not mutate the basket from the callback.
type Basket struct {
	logger *zap.Logger

	// notifyMu serializes a mutation with its notification so that
	// subscribers observe changes in order.
	notifyMu sync.Mutex

	mu     sync.Mutex
	items  []BasketItem
	subs   []subscriber
	nextID int
}

func NewBasket(logger *zap.Logger) *Basket {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Basket{logger: logger}
}

func (b *Basket) Items() []BasketItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

func (b *Basket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Basket) Total() decimal.Decimal {
	b.mu.Lock()
	defer b.mu.Unlock()
	return SumPrices(b.items)
}

func (b *Basket) Add(item BasketItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	b.mutate(func(items []BasketItem) []BasketItem {
		return append(items, item)
	})
	return nil
}

// Remove drops the first entry with the given ID. It reports whether an
// entry was removed.
func (b *Basket) Remove(id string) bool {
	removed := false
	b.mutate(func(items []BasketItem) []BasketItem {
		idx := slices.IndexFunc(items, func(it BasketItem) bool { return it.ID == id })
		if idx < 0 {
			return items
		}
		removed = true
		return slices.Delete(items, idx, idx+1)
	})
	if !removed {
		b.logger.Warn("cannot remove product", zap.String("product_id", id), zap.String("reason", ErrMsgItemNotInBasket))
	}
	return removed
}

func (b *Basket) Clear() {
	b.mutate(func([]BasketItem) []BasketItem { return nil })
}

func (b *Basket) Subscribe(fn func(items []BasketItem)) func() {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs = append(b.subs, subscriber{id: id, fn: fn})
	snapshot := slices.Clone(b.items)
	b.mu.Unlock()

	fn(snapshot)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s subscriber) bool { return s.id == id })
	}
}

func (b *Basket) mutate(change func([]BasketItem) []BasketItem) {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	// Work on a copy; snapshots handed out earlier share the old backing array.
	b.items = change(slices.Clone(b.items))
	snapshot := slices.Clone(b.items)
	subs := slices.Clone(b.subs)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(slices.Clone(snapshot))
	}
}

// SumPrices adds up the price of every entry.
func SumPrices(items []BasketItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Price)
	}
	return total
}
