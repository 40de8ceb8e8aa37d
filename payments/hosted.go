package payments

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"checkout/logic"
)

var (
	ErrUnknownSession = errors.New(logic.ErrMsgUnknownSession)
	ErrNoHostedPage   = errors.New(logic.ErrMsgSessionHasNoURL)
)

// SessionLookup fetches a session from the provider by ID.
type SessionLookup interface {
	Lookup(ctx context.Context, sessionID string) (logic.CheckoutSession, error)
}

// HostedPages resolves a session ID to the provider's hosted payment page.
// Sessions seen at creation are cached; anything else is looked up.
type HostedPages struct {
	cache  *lru.Cache
	lookup SessionLookup
}

// NewHostedPages creates a resolver caching up to size sessions. lookup may
// be nil, in which case only cached sessions resolve.
func NewHostedPages(size int, lookup SessionLookup) (*HostedPages, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create hosted page cache: %w", err)
	}
	return &HostedPages{cache: cache, lookup: lookup}, nil
}

func (p *HostedPages) Remember(session logic.CheckoutSession) {
	if session.ID == "" || session.URL == "" {
		return
	}
	p.cache.Add(session.ID, session.URL)
}

func (p *HostedPages) URL(ctx context.Context, sessionID string) (string, error) {
	if v, ok := p.cache.Get(sessionID); ok {
		return v.(string), nil
	}
	if p.lookup == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	session, err := p.lookup.Lookup(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if session.URL == "" {
		return "", fmt.Errorf("%w: %s", ErrNoHostedPage, sessionID)
	}
	p.cache.Add(sessionID, session.URL)
	return session.URL, nil
}

// Track wraps next so successful sessions are remembered.
func (p *HostedPages) Track(next logic.SessionCreator) logic.SessionCreator {
	return logic.SessionCreatorFunc(func(ctx context.Context, items []logic.BasketItem) (logic.CheckoutSession, error) {
		session, err := next.CreateSession(ctx, items)
		if err == nil && !session.Failed() {
			p.Remember(session)
		}
		return session, err
	})
}
