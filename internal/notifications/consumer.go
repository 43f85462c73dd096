package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/hariombakery/khakhra-backend/internal/orders"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
	"github.com/hariombakery/khakhra-backend/pkg/metrics"
	"github.com/hariombakery/khakhra-backend/pkg/outbox"
	"github.com/hariombakery/khakhra-backend/pkg/outbox/idempotency"
	"github.com/hariombakery/khakhra-backend/pkg/outbox/payloads"
)

const orderEmailConsumer = "order-email"

type orderReader interface {
	AdminGet(ctx context.Context, orderID uuid.UUID) (*orders.OrderDetail, error)
	MarkEmailSent(ctx context.Context, orderID uuid.UUID) error
}

type mailSender interface {
	SendOrderConfirmation(order *orders.OrderDetail) error
}

// Consumer watches domain events and turns placed orders into confirmation email.
type Consumer struct {
	orders       orderReader
	mailer       mailSender
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	storefront   *metrics.StorefrontMetrics
	logg         *logger.Logger
}

// NewConsumer builds the order confirmation email consumer.
func NewConsumer(
	orderSvc orderReader,
	mailer mailSender,
	subscription *pubsub.Subscriber,
	manager *idempotency.Manager,
	storefront *metrics.StorefrontMetrics,
	logg *logger.Logger,
) (*Consumer, error) {
	if orderSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("orders subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		orders:       orderSvc,
		mailer:       mailer,
		subscription: subscription,
		idempotency:  manager,
		storefront:   storefront,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventOrderCreated) {
		c.logg.Info(logCtx, "skipping non-order-created event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, orderEmailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.OrderCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Delete(ctx, orderEmailConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())

	if err := c.sendConfirmation(ctx, payload.OrderID, logCtx); err != nil {
		c.logg.Error(logCtx, "confirmation email failed", err)
		_ = c.idempotency.Delete(ctx, orderEmailConsumer, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func (c *Consumer) sendConfirmation(ctx context.Context, orderID uuid.UUID, logCtx context.Context) error {
	order, err := c.orders.AdminGet(ctx, orderID)
	if err != nil {
		return err
	}
	if order.EmailSent {
		c.logg.Info(logCtx, "email already sent")
		return nil
	}

	if err := c.mailer.SendOrderConfirmation(order); err != nil {
		return err
	}
	if err := c.orders.MarkEmailSent(ctx, orderID); err != nil {
		return err
	}

	c.storefront.IncEmailSent()
	c.logg.Info(logCtx, "order confirmation email sent")
	return nil
}
