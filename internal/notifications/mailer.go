package notifications

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"

	"github.com/hariombakery/khakhra-backend/internal/orders"
	"github.com/hariombakery/khakhra-backend/pkg/config"
)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer sends transactional storefront email over SMTP.
type Mailer struct {
	dialer mailDialer
	from   string
}

// NewMailer builds a gomail-backed mailer from the SMTP configuration.
func NewMailer(cfg config.SMTPConfig) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("smtp from address is required")
	}
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

// SendOrderConfirmation emails the order summary to the customer.
func (m *Mailer) SendOrderConfirmation(order *orders.OrderDetail) error {
	if order == nil {
		return fmt.Errorf("order is required")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", order.CustomerEmail)
	msg.SetHeader("Subject", fmt.Sprintf("Order confirmation %s - Hariom Bakery", shortOrderRef(order)))
	msg.SetBody("text/html", orderConfirmationBody(order))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send order confirmation: %w", err)
	}
	return nil
}

func orderConfirmationBody(order *orders.OrderDetail) string {
	var lines strings.Builder
	for _, item := range order.Items {
		lines.WriteString(fmt.Sprintf(
			"<tr><td>%s</td><td>%d</td><td>%s</td></tr>",
			item.Name, item.Quantity, formatRupees(item.TotalPaise),
		))
	}

	paymentNote := "Payment is due in cash on delivery."
	if order.PaymentRef != nil {
		paymentNote = "Your online payment has been received."
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
  <h2>Hariom Bakery</h2>
  <p>Namaste %s,</p>
  <p>Thank you for your order! Here is your summary:</p>
  <table border="0" cellpadding="6">
    <tr><th align="left">Item</th><th align="left">Qty</th><th align="left">Amount</th></tr>
    %s
  </table>
  <p>
    Subtotal: %s<br>
    Delivery: %s<br>
    <strong>Total: %s</strong>
  </p>
  <p>Shipping to: %s, %s</p>
  <p>%s</p>
  <p>We'll let you know when your khakhra is on its way.</p>
  <p style="color: #666; font-size: 12px;">This is an automated email. Please do not reply.</p>
</body>
</html>`,
		order.CustomerName,
		lines.String(),
		formatRupees(order.SubtotalPaise),
		formatRupees(order.DeliveryPaise),
		formatRupees(order.TotalPaise),
		order.ShippingAddress, order.DeliveryState,
		paymentNote,
	)
}

func shortOrderRef(order *orders.OrderDetail) string {
	id := order.ID.String()
	if len(id) >= 8 {
		return "#" + strings.ToUpper(id[:8])
	}
	return "#" + strings.ToUpper(id)
}

// formatRupees renders paise as rupees with Indian digit grouping, e.g.
// 12345678900 paise -> "Rs 12,34,56,789.00".
func formatRupees(paise int64) string {
	amount := decimal.NewFromInt(paise).Div(decimal.NewFromInt(100)).StringFixed(2)

	sign := ""
	if strings.HasPrefix(amount, "-") {
		sign = "-"
		amount = amount[1:]
	}
	whole, frac, _ := strings.Cut(amount, ".")

	if len(whole) > 3 {
		head := whole[:len(whole)-3]
		tail := whole[len(whole)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		whole = strings.Join(append(groups, tail), ",")
	}

	return fmt.Sprintf("Rs %s%s.%s", sign, whole, frac)
}
