// Package payments connects the checkout view to the hosted payment provider.
package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/zap"

	"checkout/logic"
)

// SessionService creates and looks up sessions at the payment provider.
type SessionService interface {
	Create(ctx context.Context, items []logic.BasketItem) (logic.CheckoutSession, error)
	Lookup(ctx context.Context, sessionID string) (logic.CheckoutSession, error)
}

// StripeConfig holds the settings for hosted Stripe Checkout.
type StripeConfig struct {
	SecretKey string
	// APIURL overrides the Stripe API base URL (stripe-mock, tests).
	APIURL string
	// Origin is the public base URL the provider sends customers back to.
	Origin            string
	Currency          string
	ShippingCountries []string
	ShippingRate      string
	MaxRetries        int64
}

type StripeSessions struct {
	api    *client.API
	cfg    StripeConfig
	logger *zap.Logger
}

func NewStripeSessions(cfg StripeConfig, logger *zap.Logger) *StripeSessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Currency == "" {
		cfg.Currency = logic.DefaultCurrency
	}
	cfg.Origin = strings.TrimRight(cfg.Origin, "/")

	backendConfig := &stripe.BackendConfig{
		LeveledLogger:     logger.Sugar(),
		MaxNetworkRetries: stripe.Int64(cfg.MaxRetries),
	}
	if cfg.APIURL != "" {
		backendConfig.URL = stripe.String(cfg.APIURL)
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig)

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})

	return &StripeSessions{api: api, cfg: cfg, logger: logger}
}

func (s *StripeSessions) Create(ctx context.Context, items []logic.BasketItem) (logic.CheckoutSession, error) {
	if len(items) == 0 {
		return logic.CheckoutSession{}, logic.NewInvalidItem(logic.ErrMsgBasketEmpty)
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return logic.CheckoutSession{}, err
		}
	}

	params, err := s.sessionParams(items)
	if err != nil {
		return logic.CheckoutSession{}, err
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return logic.CheckoutSession{}, fmt.Errorf("create stripe checkout session: %w", err)
	}

	s.logger.Info("checkout session created",
		zap.String("session_id", sess.ID),
		zap.Int("line_items", len(params.LineItems)),
		zap.Int("items", len(items)))

	return logic.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (s *StripeSessions) Lookup(ctx context.Context, sessionID string) (logic.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := s.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return logic.CheckoutSession{}, fmt.Errorf("get stripe checkout session %s: %w", sessionID, err)
	}
	return logic.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// sessionParams turns the basket into one line item per product.
func (s *StripeSessions) sessionParams(items []logic.BasketItem) (*stripe.CheckoutSessionParams, error) {
	currency := strings.ToLower(s.cfg.Currency)

	groups := logic.Regroup(items).Groups()
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(groups))
	for _, g := range groups {
		first := g.First()
		unitAmount, err := logic.Cents(first.Price)
		if err != nil {
			return nil, err
		}
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(first.Name),
		}
		if first.Image != "" {
			product.Images = stripe.StringSlice([]string{first.Image})
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(unitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(int64(g.Quantity())),
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SubmitType:         stripe.String(string(stripe.CheckoutSessionSubmitTypePay)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(s.cfg.Origin + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(s.cfg.Origin + "/checkout"),
	}
	if len(s.cfg.ShippingCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(s.cfg.ShippingCountries),
		}
	}
	if s.cfg.ShippingRate != "" {
		params.ShippingOptions = []*stripe.CheckoutSessionShippingOptionParams{
			{ShippingRate: stripe.String(s.cfg.ShippingRate)},
		}
	}
	return params, nil
}
