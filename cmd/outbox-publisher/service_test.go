package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hariombakery/khakhra-backend/pkg/config"
	"github.com/hariombakery/khakhra-backend/pkg/db/models"
	"github.com/hariombakery/khakhra-backend/pkg/enums"
	"github.com/hariombakery/khakhra-backend/pkg/logger"
)

type stubRepo struct {
	events    []models.OutboxEvent
	fetchErr  error
	published []uuid.UUID
	failed    []uuid.UUID
}

func (s *stubRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if limit < len(s.events) {
		return s.events[:limit], nil
	}
	return s.events, nil
}

func (s *stubRepo) MarkPublished(id uuid.UUID) error {
	s.published = append(s.published, id)
	return nil
}

func (s *stubRepo) MarkFailed(id uuid.UUID, err error) error {
	s.failed = append(s.failed, id)
	return nil
}

type stubResult struct {
	id  string
	err error
}

func (s stubResult) Get(ctx context.Context) (string, error) {
	return s.id, s.err
}

type stubPublisher struct {
	err      error
	messages []*gcppubsub.Message
}

func (s *stubPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	s.messages = append(s.messages, msg)
	return stubResult{id: "msg-1", err: s.err}
}

func newTestService(t *testing.T, repo *stubRepo, pub *stubPublisher) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Config:     &config.Config{},
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
		Publisher:  pub,
	})
	require.NoError(t, err)
	return svc
}

func orderCreatedRow(t *testing.T) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(map[string]any{"order_id": uuid.NewString()})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	event := orderCreatedRow(t)
	repo := &stubRepo{events: []models.OutboxEvent{event}}
	pub := &stubPublisher{}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())

	require.NoError(t, err)
	assert.True(t, processed)
	require.Len(t, pub.messages, 1)
	assert.Equal(t, string(enums.EventOrderCreated), pub.messages[0].Attributes["event_type"])
	assert.Equal(t, event.AggregateID.String(), pub.messages[0].Attributes["aggregate_id"])
	assert.Equal(t, []uuid.UUID{event.ID}, repo.published)
	assert.Empty(t, repo.failed)
}

func TestProcessBatchMarksFailureAndContinues(t *testing.T) {
	first := orderCreatedRow(t)
	second := orderCreatedRow(t)
	repo := &stubRepo{events: []models.OutboxEvent{first, second}}
	pub := &stubPublisher{err: errors.New("broker down")}
	svc := newTestService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())

	require.NoError(t, err)
	assert.True(t, processed)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, repo.failed)
	assert.Empty(t, repo.published)
}

func TestProcessBatchEmptyTable(t *testing.T) {
	repo := &stubRepo{}
	svc := newTestService(t, repo, &stubPublisher{})

	processed, err := svc.processBatch(context.Background())

	require.NoError(t, err)
	assert.False(t, processed)
}

func TestProcessBatchFetchError(t *testing.T) {
	repo := &stubRepo{fetchErr: errors.New("db gone")}
	svc := newTestService(t, repo, &stubPublisher{})

	processed, err := svc.processBatch(context.Background())

	require.Error(t, err)
	assert.False(t, processed)
}

func TestNewServiceDefaults(t *testing.T) {
	svc := newTestService(t, &stubRepo{}, &stubPublisher{})

	assert.Equal(t, defaultBatchSize, svc.batchSize)
	assert.Equal(t, defaultMaxAttempts, svc.maxAttempts)
	assert.Equal(t, int64(defaultPollMs), svc.pollInterval.Milliseconds())
}
