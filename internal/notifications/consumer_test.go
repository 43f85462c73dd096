package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hariombakery/khakhra-backend/internal/orders"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
	"github.com/hariombakery/khakhra-backend/pkg/outbox"
	"github.com/hariombakery/khakhra-backend/pkg/outbox/idempotency"
)

type stubOrderReader struct {
	order       *orders.OrderDetail
	getErr      error
	emailSentID uuid.UUID
}

func (s *stubOrderReader) AdminGet(ctx context.Context, orderID uuid.UUID) (*orders.OrderDetail, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.order, nil
}

func (s *stubOrderReader) MarkEmailSent(ctx context.Context, orderID uuid.UUID) error {
	s.emailSentID = orderID
	return nil
}

type stubMailSender struct {
	sent    []*orders.OrderDetail
	sendErr error
}

func (s *stubMailSender) SendOrderConfirmation(order *orders.OrderDetail) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, order)
	return nil
}

type memoryStore struct {
	keys map[string]bool
}

func (m *memoryStore) Get(context.Context, string) (string, error) { return "", nil }

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "khakhra:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

type consumerFixture struct {
	consumer *Consumer
	orders   *stubOrderReader
	mailer   *stubMailSender
}

func newConsumerFixture(t *testing.T) *consumerFixture {
	t.Helper()
	manager, err := idempotency.NewManager(&memoryStore{}, time.Hour)
	require.NoError(t, err)

	orderID := uuid.New()
	reader := &stubOrderReader{order: &orders.OrderDetail{
		ID:            orderID,
		CustomerName:  "Asha Patel",
		CustomerEmail: "asha@example.com",
		Status:        enums.OrderStatusPending,
		TotalPaise:    26000,
	}}
	mailer := &stubMailSender{}

	return &consumerFixture{
		consumer: &Consumer{
			orders:      reader,
			mailer:      mailer,
			idempotency: manager,
			logg:        logger.New(logger.Options{ServiceName: "test"}),
		},
		orders: reader,
		mailer: mailer,
	}
}

func orderCreatedMessage(t *testing.T, orderID uuid.UUID, eventID string) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(map[string]any{"order_id": orderID})
	require.NoError(t, err)
	envelope, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       data,
	})
	require.NoError(t, err)

	return &pubsub.Message{
		Data: envelope,
		Attributes: map[string]string{
			"event_type": string(enums.EventOrderCreated),
		},
	}
}

func TestProcessSendsEmailAndMarksOrder(t *testing.T) {
	f := newConsumerFixture(t)
	orderID := f.orders.order.ID

	result := f.consumer.process(context.Background(), orderCreatedMessage(t, orderID, uuid.NewString()))
	assert.True(t, result.ack)
	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, orderID, f.orders.emailSentID)
}

func TestProcessSkipsOtherEventTypes(t *testing.T) {
	f := newConsumerFixture(t)

	msg := orderCreatedMessage(t, f.orders.order.ID, uuid.NewString())
	msg.Attributes["event_type"] = string(enums.EventOrderConfirmed)

	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Empty(t, f.mailer.sent)
}

func TestProcessDuplicateEventSendsOnce(t *testing.T) {
	f := newConsumerFixture(t)
	eventID := uuid.NewString()

	first := f.consumer.process(context.Background(), orderCreatedMessage(t, f.orders.order.ID, eventID))
	second := f.consumer.process(context.Background(), orderCreatedMessage(t, f.orders.order.ID, eventID))

	assert.True(t, first.ack)
	assert.True(t, second.ack)
	assert.Len(t, f.mailer.sent, 1)
}

func TestProcessSkipsWhenEmailAlreadySent(t *testing.T) {
	f := newConsumerFixture(t)
	f.orders.order.EmailSent = true

	result := f.consumer.process(context.Background(), orderCreatedMessage(t, f.orders.order.ID, uuid.NewString()))
	assert.True(t, result.ack)
	assert.Empty(t, f.mailer.sent)
	assert.Equal(t, uuid.Nil, f.orders.emailSentID)
}

func TestProcessNacksOnSendFailure(t *testing.T) {
	f := newConsumerFixture(t)
	f.mailer.sendErr = errors.New("smtp down")
	eventID := uuid.NewString()

	result := f.consumer.process(context.Background(), orderCreatedMessage(t, f.orders.order.ID, eventID))
	assert.True(t, result.nack)
	assert.Equal(t, uuid.Nil, f.orders.emailSentID)

	// the processed mark is rolled back so redelivery retries the email
	f.mailer.sendErr = nil
	retry := f.consumer.process(context.Background(), orderCreatedMessage(t, f.orders.order.ID, eventID))
	assert.True(t, retry.ack)
	assert.Len(t, f.mailer.sent, 1)
}

func TestProcessAcksMalformedEnvelope(t *testing.T) {
	f := newConsumerFixture(t)

	msg := &pubsub.Message{
		Data:       []byte("{not json"),
		Attributes: map[string]string{"event_type": string(enums.EventOrderCreated)},
	}
	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.Empty(t, f.mailer.sent)
}
