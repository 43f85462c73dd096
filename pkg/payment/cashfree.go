package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hariombakery/khakhra-backend/pkg/config"
	pkgerrors "github.com/hariombakery/khakhra-backend/pkg/errors"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
)

const (
	cashfreeSandboxEnv    = "sandbox"
	cashfreeProductionEnv = "production"
	cashfreeAPIVersion    = "2023-08-01"
)

var (
	errCashfreeCredentialsRequired = errors.New("cashfree app id and secret are required")
	errInvalidCashfreeEnv          = fmt.Errorf("cashfree environment must be %q or %q", cashfreeSandboxEnv, cashfreeProductionEnv)
)

var cashfreeBaseURLs = map[string]string{
	cashfreeSandboxEnv:    "https://sandbox.cashfree.com",
	cashfreeProductionEnv: "https://api.cashfree.com",
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CashfreeClient opens hosted payment sessions through the Cashfree PG API.
type CashfreeClient struct {
	http      httpDoer
	appID     string
	secret    string
	baseURL   string
	returnURL string
	logger    *logger.Logger
}

// NewCashfreeClient validates credentials and builds the HTTP wrapper.
func NewCashfreeClient(ctx context.Context, cfg config.PaymentConfig, logg *logger.Logger) (*CashfreeClient, error) {
	env := strings.TrimSpace(strings.ToLower(cfg.Environment()))
	baseURL, ok := cashfreeBaseURLs[env]
	if !ok {
		return nil, errInvalidCashfreeEnv
	}

	appID := strings.TrimSpace(cfg.CashfreeAppID)
	secret := strings.TrimSpace(cfg.CashfreeSecret)
	if appID == "" || secret == "" {
		return nil, errCashfreeCredentialsRequired
	}

	timeout := cfg.CashfreeTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &CashfreeClient{
		http:      &http.Client{Timeout: timeout},
		appID:     appID,
		secret:    secret,
		baseURL:   baseURL,
		returnURL: strings.TrimSpace(cfg.CashfreeReturnURL),
		logger:    logg,
	}

	if logg != nil {
		logg.Info(ctx, "cashfree client initialized")
	}
	return c, nil
}

type cashfreeCustomer struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type cashfreeOrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
}

type cashfreeOrderRequest struct {
	OrderID         string             `json:"order_id"`
	OrderAmount     json.Number        `json:"order_amount"`
	OrderCurrency   string             `json:"order_currency"`
	CustomerDetails cashfreeCustomer   `json:"customer_details"`
	OrderMeta       *cashfreeOrderMeta `json:"order_meta,omitempty"`
}

type cashfreeOrderResponse struct {
	PaymentSessionID string `json:"payment_session_id"`
	OrderStatus      string `json:"order_status"`
}

type cashfreeErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// CreateSession registers the order with Cashfree and returns the session id.
func (c *CashfreeClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if req.AmountPaise <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}

	payload := cashfreeOrderRequest{
		OrderID:       req.OrderID.String(),
		OrderAmount:   json.Number(rupees(req.AmountPaise)),
		OrderCurrency: "INR",
		CustomerDetails: cashfreeCustomer{
			CustomerID:    req.OrderID.String(),
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			CustomerPhone: req.CustomerPhone,
		},
	}
	if c.returnURL != "" {
		payload.OrderMeta = &cashfreeOrderMeta{ReturnURL: c.returnURL}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal cashfree order")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/pg/orders", bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build cashfree request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-version", cashfreeAPIVersion)
	httpReq.Header.Set("x-client-id", c.appID)
	httpReq.Header.Set("x-client-secret", c.secret)

	c.log(ctx, "request", map[string]any{"order_id": req.OrderID.String(), "amount_paise": req.AmountPaise})

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "cashfree create order")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "read cashfree response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr cashfreeErrorResponse
		_ = json.Unmarshal(raw, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = fmt.Sprintf("cashfree returned status %d", resp.StatusCode)
		}
		c.log(ctx, "error", map[string]any{"status": resp.StatusCode, "code": apiErr.Code})
		return nil, pkgerrors.New(pkgerrors.CodePayment, msg).WithDetails(map[string]any{"provider_code": apiErr.Code})
	}

	var parsed cashfreeOrderResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePayment, err, "decode cashfree response")
	}
	if strings.TrimSpace(parsed.PaymentSessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodePayment, "cashfree response missing payment session id")
	}

	c.log(ctx, "response", map[string]any{"order_status": parsed.OrderStatus})

	sessionID := parsed.PaymentSessionID
	return &Session{
		Provider:         ProviderCashfree,
		PaymentSessionID: &sessionID,
	}, nil
}

func (c *CashfreeClient) log(ctx context.Context, phase string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{"operation": "create_order", "phase": phase}
	for k, v := range fields {
		logFields[k] = v
	}
	ctx = c.logger.WithFields(ctx, logFields)
	if phase == "error" {
		c.logger.Warn(ctx, "cashfree create_order failed")
		return
	}
	c.logger.Info(ctx, fmt.Sprintf("cashfree %s", phase))
}

// rupees renders a paise amount as a two-decimal rupee string.
func rupees(paise int64) string {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100)).StringFixed(2)
}
