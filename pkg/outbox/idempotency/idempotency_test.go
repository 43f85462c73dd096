package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	setNXResult bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	return f.setNXResult, f.setNXError
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "khakhra:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	if len(keys) > 0 {
		f.lastDeleted = keys[0]
	}
	return nil
}

func TestCheckAndMarkProcessedFirstTime(t *testing.T) {
	store := &fakeStore{setNXResult: true}
	manager, err := NewManager(store, 24*time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "email-worker", eventID)
	require.NoError(t, err)
	assert.False(t, already)

	assert.Equal(t, "khakhra:idempotency:evt:processed:email-worker:"+eventID.String(), store.lastKey)
	assert.Equal(t, 24*time.Hour, store.lastTTL)
}

func TestCheckAndMarkProcessedAlreadyProcessed(t *testing.T) {
	store := &fakeStore{setNXResult: false}
	manager, err := NewManager(store, 12*time.Hour)
	require.NoError(t, err)

	already, err := manager.CheckAndMarkProcessed(context.Background(), "email-worker", uuid.New())
	require.NoError(t, err)
	assert.True(t, already)
}

func TestCheckAndMarkProcessedError(t *testing.T) {
	store := &fakeStore{setNXError: errors.New("boom")}
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	_, err = manager.CheckAndMarkProcessed(context.Background(), "email-worker", uuid.New())
	require.Error(t, err)
}

func TestDeleteProcessed(t *testing.T) {
	store := &fakeStore{}
	manager, err := NewManager(store, time.Hour)
	require.NoError(t, err)

	eventID := uuid.New()
	require.NoError(t, manager.Delete(context.Background(), "email-worker", eventID))
	assert.Equal(t, "khakhra:idempotency:evt:processed:email-worker:"+eventID.String(), store.lastDeleted)
}
