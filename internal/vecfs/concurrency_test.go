package vecfs

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

func TestConcurrentWritersKeepHashesConsistent(t *testing.T) {
	store, err := kvstore.Open(kvstore.Config{Path: t.TempDir()}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	svc := NewService(store, zap.NewNop(), WithTokenCounter(&resource.TokenCounter{}))
	ctx := context.Background()

	docs, err := svc.CreateFolder(ctx, "alice", resource.Root(), "docs")
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*writers)
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			doc := newDoc(fmt.Sprintf("doc-%02d", i), []float32{1, float32(i)}, "body")
			_, err := svc.SaveResource(ctx, "alice", docs, doc, nil)
			errs <- err
		}(i)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateFolder(ctx, "alice", resource.Root(), fmt.Sprintf("dir-%02d", i))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	snap, err := svc.load(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, snap.children(docs), writers)
	assert.Len(t, snap.children(resource.Root()), writers+1)

	docsRec, ok := snap.get(docs)
	require.True(t, ok)
	assert.Equal(t, snap.folderHash(docs), docsRec.MerkleHash)
	rootRec, ok := snap.get(resource.Root())
	require.True(t, ok)
	assert.Equal(t, snap.folderHash(resource.Root()), rootRec.MerkleHash)
}
