package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smarta/server/internal/auth"
)

var (
	_ auth.PendingStore = (*MemoryStore)(nil)
	_ auth.PendingStore = (*RedisStore)(nil)
)

// exerciseStore runs the slot contract against any PendingStore
func exerciseStore(t *testing.T, store auth.PendingStore) {
	t.Helper()
	ctx := context.Background()
	clientID := uuid.NewString()

	v, err := store.Get(ctx, clientID, auth.SlotPendingPhone)
	require.NoError(t, err)
	assert.Empty(t, v, "unset slot must read empty")

	require.NoError(t, store.Put(ctx, clientID, auth.SlotPendingPhone, "+254712345678"))
	require.NoError(t, store.Put(ctx, clientID, auth.SlotDevMode, "true"))

	v, err = store.Get(ctx, clientID, auth.SlotPendingPhone)
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", v)

	require.NoError(t, store.Remove(ctx, clientID, auth.SlotDevMode))
	v, err = store.Get(ctx, clientID, auth.SlotDevMode)
	require.NoError(t, err)
	assert.Empty(t, v)
	v, err = store.Get(ctx, clientID, auth.SlotPendingPhone)
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", v, "other slots must survive")

	other := uuid.NewString()
	v, err = store.Get(ctx, other, auth.SlotPendingPhone)
	require.NoError(t, err)
	assert.Empty(t, v, "slots are per client")

	require.NoError(t, store.Remove(ctx, clientID, auth.SlotPendingPhone, auth.SlotDevMode))
	require.NoError(t, store.Remove(ctx, clientID))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
	exerciseStore(t, NewMemoryStore(WithTTL(time.Minute)))
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithTTL(15 * time.Minute))
	store.now = func() time.Time { return now }

	// Abandoned sign-ins from many clients
	for i := 0; i < 100; i++ {
		require.NoError(t, store.Put(ctx, uuid.NewString(), auth.SlotPendingPhone, "+254712345678"))
	}
	require.NoError(t, store.Put(ctx, "client-a", auth.SlotPendingPhone, "+254712345678"))
	assert.Equal(t, 101, store.Len())

	now = now.Add(10 * time.Minute)
	require.NoError(t, store.Put(ctx, "client-b", auth.SlotDevMode, "true"))

	now = now.Add(5 * time.Minute)
	v, err := store.Get(ctx, "client-a", auth.SlotPendingPhone)
	require.NoError(t, err)
	assert.Empty(t, v, "slot expires ttl after Put")
	v, err = store.Get(ctx, "client-b", auth.SlotDevMode)
	require.NoError(t, err)
	assert.Equal(t, "true", v)
	assert.Equal(t, 1, store.Len(), "expired clients are swept")
}

func TestMemoryStore_NoTTLKeepsSlots(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Put(ctx, "client-a", auth.SlotPendingPhone, "+254712345678"))
	now = now.Add(24 * time.Hour)
	v, err := store.Get(ctx, "client-a", auth.SlotPendingPhone)
	require.NoError(t, err)
	assert.Equal(t, "+254712345678", v)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis test")
	}
	client, err := NewRedisClient(context.Background(), addr)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	exerciseStore(t, NewRedisStore(client, time.Minute))
}

func TestSlotKey(t *testing.T) {
	assert.Equal(t, "smarta:pending:abc:pendingPhone", slotKey("abc", auth.SlotPendingPhone))
}
