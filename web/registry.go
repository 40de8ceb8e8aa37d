package web

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"checkout/logic"
)

type visitor struct {
	basket *logic.Basket
	view   *logic.CheckoutView
}

// Registry keeps the basket and checkout view of recent visitors. The least
// recently used visitor is dropped once capacity is reached.
type Registry struct {
	sessions logic.SessionCreator
	logger   *zap.Logger

	mu       sync.Mutex
	visitors *lru.Cache
}

func NewRegistry(capacity int, sessions logic.SessionCreator, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{sessions: sessions, logger: logger}
	cache, err := lru.NewWithEvict(capacity, r.evicted)
	if err != nil {
		return nil, fmt.Errorf("create visitor registry: %w", err)
	}
	r.visitors = cache
	return r, nil
}

func (r *Registry) evicted(key, value interface{}) {
	v := value.(*visitor)
	if v.view != nil {
		v.view.Close()
	}
	r.logger.Debug("visitor evicted", zap.Any("basket_id", key))
}

// must be called with r.mu held
func (r *Registry) visitor(id string) *visitor {
	if v, ok := r.visitors.Get(id); ok {
		return v.(*visitor)
	}
	v := &visitor{basket: logic.NewBasket(r.logger.With(zap.String("basket_id", id)))}
	r.visitors.Add(id, v)
	return v
}

func (r *Registry) Basket(id string) *logic.Basket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visitor(id).basket
}

// View returns the visitor's mounted checkout view, mounting one if needed.
func (r *Registry) View(id string) *logic.CheckoutView {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.visitor(id)
	if v.view == nil {
		v.view = logic.NewCheckoutView(v.basket, r.sessions, r.logger.With(zap.String("basket_id", id)))
	}
	return v.view
}

// Mount returns the view a fresh page load should render. A view left busy
// by an earlier attempt is unmounted and replaced.
func (r *Registry) Mount(id string) *logic.CheckoutView {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.visitor(id)
	if v.view != nil && v.view.Busy() {
		v.view.Close()
		v.view = nil
	}
	if v.view == nil {
		v.view = logic.NewCheckoutView(v.basket, r.sessions, r.logger.With(zap.String("basket_id", id)))
	}
	return v.view
}

// Discard unmounts the visitor's checkout view. The basket is kept.
func (r *Registry) Discard(id string) {
	r.release(id, nil)
}

// Release unmounts view if it is still the visitor's mounted view.
func (r *Registry) Release(id string, view *logic.CheckoutView) {
	r.release(id, view)
}

func (r *Registry) release(id string, view *logic.CheckoutView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.visitors.Peek(id)
	if !ok {
		return
	}
	vis := v.(*visitor)
	if vis.view == nil || (view != nil && vis.view != view) {
		return
	}
	vis.view.Close()
	vis.view = nil
}

func (r *Registry) Len() int {
	return r.visitors.Len()
}
