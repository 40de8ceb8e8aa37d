package logic

import "fmt"

type ErrorKind int

const (
	KindInvalidItem ErrorKind = iota
	KindSessionFailed
	KindRedirectFailed
)

// Error message constants for the checkout domain.
const (
	ErrMsgItemIDRequired   = "Item ID is required"
	ErrMsgItemNameRequired = "Item name is required"
	ErrMsgPriceNegative    = "Price cannot be negative"
	ErrMsgPriceTooLarge    = "Price is too large"
	ErrMsgBasketEmpty      = "Basket is empty"
	ErrMsgItemNotInBasket  = "Item not in basket"
	ErrMsgSessionFailed    = "Checkout session could not be created"
	ErrMsgRedirectFailed   = "Redirect to hosted checkout failed"
	ErrMsgMalformedRequest = "Malformed request body"
	ErrMsgUnknownSession   = "Unknown checkout session"
	ErrMsgSessionHasNoURL  = "Checkout session has no hosted page"
	ErrMsgCheckoutInFlight = "Checkout already in progress"
)

var (
	// ErrSessionFailed matches any session-creation failure.
	ErrSessionFailed = &CheckoutError{Kind: KindSessionFailed, Message: ErrMsgSessionFailed}
	// ErrRedirectFailed matches any redirect failure.
	ErrRedirectFailed = &CheckoutError{Kind: KindRedirectFailed, Message: ErrMsgRedirectFailed}
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidItem:
		return "INVALID_ITEM"
	case KindSessionFailed:
		return "SESSION_FAILED"
	case KindRedirectFailed:
		return "REDIRECT_FAILED"
	default:
		return "UNKNOWN"
	}
}

type CheckoutError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *CheckoutError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CheckoutError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CheckoutError of the same kind.
func (e *CheckoutError) Is(target error) bool {
	t, ok := target.(*CheckoutError)
	return ok && t.Kind == e.Kind
}

func NewInvalidItem(message string) *CheckoutError {
	return &CheckoutError{Kind: KindInvalidItem, Message: message}
}

func NewInvalidItemf(format string, args ...interface{}) *CheckoutError {
	return &CheckoutError{Kind: KindInvalidItem, Message: fmt.Sprintf(format, args...)}
}
