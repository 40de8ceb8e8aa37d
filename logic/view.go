package logic

import (
	"context"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	HeadingReview = "Review your shopping bag."
	HeadingEmpty  = "Your shopping bag is empty."
)

// CheckoutView presents a basket and starts hosted checkout for it.
// It regroups whenever the basket reports a change.
type CheckoutView struct {
	basket   BasketReader
	sessions SessionCreator
	logger   *zap.Logger
	currency string

	mu          sync.Mutex
	items       []BasketItem
	grouped     GroupedItems
	busy        bool
	unsubscribe func()
}

func NewCheckoutView(basket BasketReader, sessions SessionCreator, logger *zap.Logger) *CheckoutView {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &CheckoutView{
		basket:   basket,
		sessions: sessions,
		logger:   logger,
		currency: DefaultCurrency,
		grouped:  Regroup(nil),
	}
	v.unsubscribe = basket.Subscribe(v.basketChanged)
	return v
}

func (v *CheckoutView) basketChanged(items []BasketItem) {
	grouped := Regroup(items)
	v.mu.Lock()
	v.items = items
	v.grouped = grouped
	v.mu.Unlock()
}

// Close stops listening to the basket.
func (v *CheckoutView) Close() {
	v.mu.Lock()
	unsubscribe := v.unsubscribe
	v.unsubscribe = nil
	v.grouped = Regroup(nil)
	v.items = nil
	v.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (v *CheckoutView) Grouped() GroupedItems {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.grouped
}

func (v *CheckoutView) Empty() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.items) == 0
}

func (v *CheckoutView) Busy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.busy
}

// Total is the basket's own total, not a sum over the grouped entries.
func (v *CheckoutView) Total() decimal.Decimal {
	return v.basket.Total()
}

// StartCheckout creates a session for the current items and hands its ID to
// redirector.
//
// A failed session leaves the view busy. A failed redirect clears busy so the
// customer can try again.
func (v *CheckoutView) StartCheckout(ctx context.Context, redirector Redirector) error {
	v.mu.Lock()
	v.busy = true
	items := slices.Clone(v.items)
	v.mu.Unlock()

	session, err := v.sessions.CreateSession(ctx, items)
	if err != nil {
		v.logger.Error("checkout session request failed", zap.Int("items", len(items)), zap.Error(err))
		return &CheckoutError{Kind: KindSessionFailed, Message: ErrMsgSessionFailed, Cause: err}
	}
	if session.Failed() {
		msg := session.Message
		if msg == "" {
			msg = ErrMsgSessionFailed
		}
		v.logger.Error("checkout session creation failed",
			zap.Int("status_code", session.StatusCode),
			zap.String("message", msg))
		return &CheckoutError{Kind: KindSessionFailed, Message: msg}
	}

	v.logger.Info("redirecting to hosted checkout", zap.String("session_id", session.ID))
	if err := redirector.RedirectToCheckout(ctx, session.ID); err != nil {
		v.logger.Warn("redirect to checkout failed", zap.String("session_id", session.ID), zap.Error(err))
		v.mu.Lock()
		v.busy = false
		v.mu.Unlock()
		return &CheckoutError{Kind: KindRedirectFailed, Message: ErrMsgRedirectFailed, Cause: err}
	}
	return nil
}

// GroupLine is one grouped product row on the checkout page.
type GroupLine struct {
	ID        string
	Name      string
	Image     string
	Quantity  int
	UnitPrice string
	Subtotal  string
}

// CheckoutPage is everything the checkout template needs.
type CheckoutPage struct {
	Heading  string
	Empty    bool
	Busy     bool
	Groups   []GroupLine
	Subtotal string
	Total    string
}

func (v *CheckoutView) Page() CheckoutPage {
	v.mu.Lock()
	empty := len(v.items) == 0
	groups := v.grouped.Groups()
	busy := v.busy
	v.mu.Unlock()

	if empty {
		return CheckoutPage{Heading: HeadingEmpty, Empty: true, Busy: busy}
	}

	lines := make([]GroupLine, 0, len(groups))
	for _, g := range groups {
		first := g.First()
		lines = append(lines, GroupLine{
			ID:        g.ID,
			Name:      first.Name,
			Image:     first.Image,
			Quantity:  g.Quantity(),
			UnitPrice: FormatCurrency(first.Price, v.currency),
			Subtotal:  FormatCurrency(g.Subtotal(), v.currency),
		})
	}

	total := FormatCurrency(v.Total(), v.currency)
	return CheckoutPage{
		Heading:  HeadingReview,
		Busy:     busy,
		Groups:   lines,
		Subtotal: total,
		Total:    total,
	}
}
