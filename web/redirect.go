package web

import (
	"context"
	"net/http"

	"checkout/payments"
)

// pageRedirector answers the in-flight request with a redirect to the
// session's hosted payment page. Nothing is written if the page cannot be
// resolved.
type pageRedirector struct {
	w     http.ResponseWriter
	r     *http.Request
	pages *payments.HostedPages
}

func (p *pageRedirector) RedirectToCheckout(ctx context.Context, sessionID string) error {
	url, err := p.pages.URL(ctx, sessionID)
	if err != nil {
		return err
	}
	http.Redirect(p.w, p.r, url, http.StatusSeeOther)
	return nil
}
