package logic

import "context"

// StatusInternalError marks a session descriptor the endpoint failed to create.
const StatusInternalError = 500

// CheckoutSession is the descriptor returned by the session endpoint.
// On success ID (and usually URL) is set; on failure StatusCode and Message.
type CheckoutSession struct {
	ID         string `json:"id,omitempty"`
	URL        string `json:"url,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (s CheckoutSession) Failed() bool {
	return s.StatusCode == StatusInternalError
}

// SessionCreator asks the payment endpoint for a new checkout session.
type SessionCreator interface {
	CreateSession(ctx context.Context, items []BasketItem) (CheckoutSession, error)
}

// Redirector sends the customer to the hosted payment page of a session.
type Redirector interface {
	RedirectToCheckout(ctx context.Context, sessionID string) error
}

type SessionCreatorFunc func(ctx context.Context, items []BasketItem) (CheckoutSession, error)

func (f SessionCreatorFunc) CreateSession(ctx context.Context, items []BasketItem) (CheckoutSession, error) {
	return f(ctx, items)
}

type RedirectorFunc func(ctx context.Context, sessionID string) error

func (f RedirectorFunc) RedirectToCheckout(ctx context.Context, sessionID string) error {
	return f(ctx, sessionID)
}
