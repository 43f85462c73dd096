package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hariombakery/khakhra-backend/pkg/config"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
)

const (
	ProviderCashfree = "cashfree"
	ProviderSquare   = "square"
)

// SessionRequest carries the order data needed to open a payment session.
type SessionRequest struct {
	OrderID       uuid.UUID
	AmountPaise   int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// Session is the provider handle returned to the client. Exactly one of
// PaymentSessionID (cashfree) or PaymentLink (square) is set.
type Session struct {
	Provider         string  `json:"provider"`
	PaymentSessionID *string `json:"payment_session_id,omitempty"`
	PaymentLink      *string `json:"payment_link,omitempty"`
}

// Gateway opens payment sessions with the configured provider.
type Gateway interface {
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// NewGateway selects the provider implementation from configuration.
func NewGateway(ctx context.Context, cfg config.PaymentConfig, logg *logger.Logger) (Gateway, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderCashfree:
		return NewCashfreeClient(ctx, cfg, logg)
	case ProviderSquare:
		return NewSquareClient(ctx, cfg, logg)
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.Provider)
	}
}
