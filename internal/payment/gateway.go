// Package payment talks to the external payment provider.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RefundRequest asks the provider to return money for a cancelled appointment.
type RefundRequest struct {
	AppointmentID uuid.UUID       `json:"appointmentId"`
	OrderID       uuid.UUID       `json:"orderId"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
}

// RefundResult is the provider's answer to a refund.
type RefundResult struct {
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
}

// Gateway issues refunds through the payment provider.
type Gateway interface {
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// Config configures the HTTP gateway client.
type Config struct {
	BaseURL   string
	SecretKey string
	Timeout   time.Duration
}

// httpGateway implements Gateway over the provider's JSON API.
type httpGateway struct {
	client  *http.Client
	baseURL string
	secret  string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHTTPGateway creates a gateway client. A nil client uses http.DefaultClient.
func NewHTTPGateway(cfg Config, client *http.Client, logger zerolog.Logger) Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpGateway{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		secret:  cfg.SecretKey,
		timeout: cfg.Timeout,
		logger:  logger.With().Str("component", "payment-gateway").Logger(),
	}
}

// Refund posts the refund and waits at most the configured timeout.
func (g *httpGateway) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode refund request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/refunds", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build refund request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.AppointmentID.String())
	httpReq.SetBasicAuth(g.secret, "")

	start := time.Now()
	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.logger.Error().
			Err(err).
			Str("appointment_id", req.AppointmentID.String()).
			Dur("duration", time.Since(start)).
			Msg("refund request failed")
		return nil, fmt.Errorf("refund request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		g.logger.Error().
			Int("status", resp.StatusCode).
			Str("appointment_id", req.AppointmentID.String()).
			Str("body", string(msg)).
			Msg("refund rejected by provider")
		return nil, fmt.Errorf("refund rejected by provider: status %d", resp.StatusCode)
	}

	var result RefundResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode refund response: %w", err)
	}

	g.logger.Info().
		Str("appointment_id", req.AppointmentID.String()).
		Str("refund_id", result.RefundID).
		Str("amount", req.Amount.StringFixed(2)).
		Dur("duration", time.Since(start)).
		Msg("refund issued")

	return &result, nil
}
