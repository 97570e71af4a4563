package kvstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Path: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestTenantKey(t *testing.T) {
	key, err := TenantKey("alice", "docs/report")
	require.NoError(t, err)
	assert.Equal(t, "alice:docs/report", key)

	_, err = TenantKey("", "docs")
	assert.ErrorIs(t, err, ErrInvalidTenant)

	_, err = TenantKey("alice:admin", "docs")
	assert.ErrorIs(t, err, ErrInvalidTenant)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate(), "path required")

	cfg = Config{InMemory: true}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, int64(100<<20), cfg.ValueLogFileSize)

	cfg = Config{Path: "/tmp/x", ValueLogFileSize: 10}
	assert.Error(t, cfg.Validate())
}

func TestStore_PutGetDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, TopicResources, "alice", "r1", []byte("v1")))

	got, err := s.Get(ctx, TopicResources, "alice", "r1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	ok, err := s.Has(ctx, TopicResources, "alice", "r1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, TopicResources, "alice", "r1"))
	_, err = s.Get(ctx, TopicResources, "alice", "r1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrStorage)

	ok, err = s.Has(ctx, TopicResources, "alice", "r1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Delete(ctx, TopicResources, "alice", "never-written"))
}

func TestStore_TopicsAreSeparate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, TopicResources, "alice", "k", []byte("resource")))
	require.NoError(t, s.Put(ctx, TopicFilesystem, "alice", "k", []byte("fs")))

	got, err := s.Get(ctx, TopicFilesystem, "alice", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("fs"), got)
}

func TestStore_UnknownTopic(t *testing.T) {
	s := newTestStore(t)

	err := s.Put(context.Background(), Topic("bogus"), "alice", "k", []byte("v"))
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, ErrUnknownTopic)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Error(), "missing column handle")
}

func TestStore_TenantIsolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, tenant := range []string{"alice", "alice2", "bob"} {
		require.NoError(t, s.Put(ctx, TopicResources, tenant, "shared", []byte(tenant)))
		require.NoError(t, s.Put(ctx, TopicResources, tenant, "only-"+tenant, []byte(tenant)))
	}

	got, err := s.Get(ctx, TopicResources, "bob", "shared")
	require.NoError(t, err)
	assert.Equal(t, []byte("bob"), got)

	_, err = s.Get(ctx, TopicResources, "bob", "only-alice")
	assert.ErrorIs(t, err, ErrNotFound)

	kvs, err := s.List(ctx, TopicResources, "alice", "")
	require.NoError(t, err)
	require.Len(t, kvs, 2)
	for _, kv := range kvs {
		assert.Equal(t, []byte("alice"), kv.Value, "key %s leaked from another tenant", kv.Key)
		assert.False(t, strings.Contains(kv.Key, ":"), "logical keys are returned without the tenant prefix")
	}
	assert.Equal(t, "only-alice", kvs[0].Key)
	assert.Equal(t, "shared", kvs[1].Key)
}

func TestStore_IteratePrefixAndStop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, k := range []string{"docs/a", "docs/b", "docs2/c", "notes/d"} {
		require.NoError(t, s.Put(ctx, TopicFilesystem, "alice", k, []byte(k)))
	}

	kvs, err := s.List(ctx, TopicFilesystem, "alice", "docs/")
	require.NoError(t, err)
	require.Len(t, kvs, 2)
	assert.Equal(t, "docs/a", kvs[0].Key)

	stop := assert.AnError
	seen := 0
	err = s.Iterate(ctx, TopicFilesystem, "alice", "", func(key string, value []byte) error {
		seen++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, seen)
}

func TestBatch_OrderedAndAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := s.NewBatch("alice")
	b.Put(TopicResources, "k", []byte("1"))
	b.Delete(TopicResources, "k")
	b.Put(TopicResources, "k", []byte("2"))
	b.Put(TopicFilesystem, "gone", []byte("x"))
	b.Delete(TopicFilesystem, "gone")
	assert.Equal(t, 5, b.Len())
	require.NoError(t, s.Commit(ctx, b))

	got, err := s.Get(ctx, TopicResources, "alice", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), got)
	_, err = s.Get(ctx, TopicFilesystem, "alice", "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	failing := s.NewBatch("alice")
	failing.Put(TopicResources, "first", []byte("v"))
	failing.Put(TopicResources, strings.Repeat("x", 70000), []byte("key too big"))
	err = s.Commit(ctx, failing)
	assert.ErrorIs(t, err, ErrStorage)

	_, err = s.Get(ctx, TopicResources, "alice", "first")
	assert.ErrorIs(t, err, ErrNotFound, "no operation of a failed batch may land")
}

func TestBatch_InvalidTenantOrTopic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	b := s.NewBatch("")
	b.Put(TopicResources, "k", nil)
	assert.ErrorIs(t, s.Commit(ctx, b), ErrInvalidTenant)

	b = s.NewBatch("alice")
	b.Put(TopicResources, "ok", []byte("v"))
	b.Put(Topic("nope"), "k", []byte("v"))
	assert.ErrorIs(t, s.Commit(ctx, b), ErrUnknownTopic)

	_, err := s.Get(ctx, TopicResources, "alice", "ok")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Commit(ctx, s.NewBatch("alice")), "empty batch")
}

func TestStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, TopicResources, "alice", "k")
	assert.ErrorIs(t, err, context.Canceled)

	err = s.Put(ctx, TopicResources, "alice", "k", []byte("v"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_RunGC(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.RunGC(context.Background()))
}

func TestStore_InMemory(t *testing.T) {
	s, err := Open(Config{InMemory: true}, nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put(context.Background(), TopicResources, "alice", "k", []byte("v")))
	got, err := s.Get(context.Background(), TopicResources, "alice", "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}
