package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"checkout/logic"
)

// SessionRequest is the body accepted by the session endpoint.
type SessionRequest struct {
	Items []logic.BasketItem `json:"items"`
}

// LocalSessions creates sessions in-process. Provider errors are reported the
// way the JSON endpoint reports them: as a descriptor with status 500.
type LocalSessions struct {
	service SessionService
	logger  *zap.Logger
}

func NewLocalSessions(service SessionService, logger *zap.Logger) *LocalSessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalSessions{service: service, logger: logger}
}

func (l *LocalSessions) CreateSession(ctx context.Context, items []logic.BasketItem) (logic.CheckoutSession, error) {
	session, err := l.service.Create(ctx, items)
	if err != nil {
		l.logger.Debug("session service failed", zap.Error(err))
		return logic.CheckoutSession{StatusCode: logic.StatusInternalError, Message: err.Error()}, nil
	}
	return session, nil
}

// SessionClient posts the basket to a remote session endpoint.
type SessionClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewSessionClient(endpoint string, httpClient *http.Client) *SessionClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &SessionClient{endpoint: endpoint, httpClient: httpClient}
}

func (c *SessionClient) CreateSession(ctx context.Context, items []logic.BasketItem) (logic.CheckoutSession, error) {
	body, err := json.Marshal(SessionRequest{Items: items})
	if err != nil {
		return logic.CheckoutSession{}, fmt.Errorf("encode session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return logic.CheckoutSession{}, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return logic.CheckoutSession{}, fmt.Errorf("post %s: %w", c.endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return logic.CheckoutSession{}, fmt.Errorf("read session response: %w", err)
	}

	var session logic.CheckoutSession
	if err := json.Unmarshal(data, &session); err != nil {
		if resp.StatusCode >= http.StatusInternalServerError {
			return logic.CheckoutSession{StatusCode: logic.StatusInternalError, Message: http.StatusText(resp.StatusCode)}, nil
		}
		return logic.CheckoutSession{}, fmt.Errorf("decode session response (status %d): %w", resp.StatusCode, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		session.StatusCode = logic.StatusInternalError
		if session.Message == "" {
			session.Message = http.StatusText(resp.StatusCode)
		}
	case resp.StatusCode >= http.StatusBadRequest:
		return logic.CheckoutSession{}, fmt.Errorf("session endpoint rejected request (status %d): %s", resp.StatusCode, session.Message)
	case session.ID == "" && !session.Failed():
		return logic.CheckoutSession{}, fmt.Errorf("session endpoint returned no session id (status %d)", resp.StatusCode)
	}
	return session, nil
}
