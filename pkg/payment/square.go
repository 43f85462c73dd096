package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqcheckout "github.com/square/square-go-sdk/checkout"
	sqclient "github.com/square/square-go-sdk/client"
	sqcore "github.com/square/square-go-sdk/core"
	sqoption "github.com/square/square-go-sdk/option"

	"github.com/hariombakery/khakhra-backend/pkg/config"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
)

const (
	squareSandboxEnv    = "sandbox"
	squareProductionEnv = "production"
)

var (
	errSquareTokenRequired    = errors.New("square access token is required")
	errSquareLocationRequired = errors.New("square location id is required")
	errInvalidSquareEnv       = fmt.Errorf("square environment must be %q or %q", squareSandboxEnv, squareProductionEnv)
)

var squareBaseURLs = map[string]string{
	squareSandboxEnv:    "https://connect.squareupsandbox.com",
	squareProductionEnv: "https://connect.squareup.com",
}

// SquareClient opens hosted payment links through the Square Checkout API.
type SquareClient struct {
	sdk        *sqclient.Client
	locationID string
	logger     *logger.Logger
}

// NewSquareClient initializes the Square wrapper and validates credentials.
func NewSquareClient(ctx context.Context, cfg config.PaymentConfig, logg *logger.Logger) (*SquareClient, error) {
	env := strings.TrimSpace(strings.ToLower(cfg.SquareEnv))
	baseURL, ok := squareBaseURLs[env]
	if !ok {
		return nil, errInvalidSquareEnv
	}

	accessToken := strings.TrimSpace(cfg.SquareAccessToken)
	if accessToken == "" {
		return nil, errSquareTokenRequired
	}
	locationID := strings.TrimSpace(cfg.SquareLocationID)
	if locationID == "" {
		return nil, errSquareLocationRequired
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURL),
		sqoption.WithToken(accessToken),
	)

	c := &SquareClient{
		sdk:        sdk,
		locationID: locationID,
		logger:     logg,
	}

	if logg != nil {
		logg.Info(ctx, "square client initialized")
	}
	return c, nil
}

// CreateSession creates a quick-pay payment link for the order amount.
func (c *SquareClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	amount := req.AmountPaise
	currency := sq.CurrencyInr
	idempotencyKey := fmt.Sprintf("order-%s-%s", req.OrderID.String(), uuid.NewString())

	request := &sqcheckout.CreatePaymentLinkRequest{
		IdempotencyKey: &idempotencyKey,
		QuickPay: &sq.QuickPay{
			Name:       fmt.Sprintf("Order %s", req.OrderID.String()),
			LocationID: c.locationID,
			PriceMoney: &sq.Money{
				Amount:   &amount,
				Currency: &currency,
			},
		},
	}

	c.log(ctx, "request", map[string]any{"order_id": req.OrderID.String(), "amount_paise": req.AmountPaise})

	resp, err := c.sdk.Checkout.PaymentLinks.Create(ctx, request)
	if err != nil {
		c.log(ctx, "error", map[string]any{"error": err.Error()})
		return nil, c.mapSquareError(err)
	}

	link := resp.GetPaymentLink()
	if link == nil || link.GetURL() == nil || *link.GetURL() == "" {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "square response missing payment link")
	}

	c.log(ctx, "response", map[string]any{"payment_link_id": stringValue(link.GetID())})

	url := *link.GetURL()
	return &Session{
		Provider:    ProviderSquare,
		PaymentLink: &url,
	}, nil
}

func (c *SquareClient) mapSquareError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *sqcore.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "square rejected payment link")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodePayment, err, "square create payment link failed")
}

func (c *SquareClient) log(ctx context.Context, phase string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{"operation": "create_payment_link", "phase": phase}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	if phase == "error" {
		c.logger.Warn(ctx, "square create_payment_link failed")
		return
	}
	c.logger.Info(ctx, fmt.Sprintf("square %s", phase))
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
