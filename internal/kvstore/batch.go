package kvstore

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// OpKind is a batched operation type.
type OpKind int

const (
	OpPut OpKind = iota
	OpDelete
)

// Op is one operation in a batch, addressed by logical key.
type Op struct {
	Kind  OpKind
	Topic Topic
	Key   string
	Value []byte
}

// Batch collects operations for a single tenant. Nothing reaches the
// engine until Store.Commit.
type Batch struct {
	tenant string
	ops    []Op
}

// NewBatch starts an empty batch bound to tenant.
func (s *Store) NewBatch(tenant string) *Batch {
	return &Batch{tenant: tenant}
}

// Tenant returns the tenant the batch writes for.
func (b *Batch) Tenant() string {
	return b.tenant
}

// Put queues a write.
func (b *Batch) Put(topic Topic, key string, value []byte) {
	b.ops = append(b.ops, Op{Kind: OpPut, Topic: topic, Key: key, Value: value})
}

// Delete queues a delete.
func (b *Batch) Delete(topic Topic, key string) {
	b.ops = append(b.ops, Op{Kind: OpDelete, Topic: topic, Key: key})
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	return len(b.ops)
}

// Ops returns a copy of the queued operations in submission order.
func (b *Batch) Ops() []Op {
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// Commit applies every operation of b in order inside one transaction.
// Either all of them land or none do.
func (s *Store) Commit(ctx context.Context, b *Batch) error {
	if err := ValidateTenant(b.tenant); err != nil {
		return err
	}
	if len(b.ops) == 0 {
		return nil
	}

	keys := make([][]byte, len(b.ops))
	for i, op := range b.ops {
		pk, err := physicalKey(op.Topic, b.tenant, op.Key)
		if err != nil {
			return err
		}
		keys[i] = pk
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for i, op := range b.ops {
			if err := ctx.Err(); err != nil {
				return err
			}
			var err error
			switch op.Kind {
			case OpPut:
				err = txn.Set(keys[i], op.Value)
			case OpDelete:
				err = txn.Delete(keys[i])
			default:
				err = fmt.Errorf("unknown op kind %d", op.Kind)
			}
			if err != nil {
				return fmt.Errorf("op %d on %s: %w", i, op.Topic, err)
			}
		}
		return nil
	})

	BatchSize.Observe(float64(len(b.ops)))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("batch commit failed",
			zap.String("tenant", b.tenant),
			zap.Int("ops", len(b.ops)),
			zap.Error(err),
		)
		err = storageErr("commit batch", err)
		observe("commit", "", err)
		return err
	}
	observe("commit", "", nil)
	return nil
}
