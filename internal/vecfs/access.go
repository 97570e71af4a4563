package vecfs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/kvstore"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
)

// AccessLog is one recorded read or write of a path.
type AccessLog struct {
	Path      string    `json:"path"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// logSeparator ends the path part of an access log key. NUL does not occur
// in path segments, so one path's prefix never matches a sibling's.
const logSeparator = "\x00"

// accessLogKey sorts entries of one path by time.
func accessLogKey(p resource.Path, ts time.Time) string {
	return fmt.Sprintf("%s%s%020d", p.Key(), logSeparator, ts.UnixNano())
}

func (s *Service) logAccess(b *kvstore.Batch, topic kvstore.Topic, p resource.Path, op string, ts time.Time) {
	data, err := json.Marshal(AccessLog{Path: p.String(), Op: op, Timestamp: ts})
	if err != nil {
		s.logger.Warn("access log entry dropped", zap.Stringer("path", p), zap.Error(err))
		return
	}
	b.Put(topic, accessLogKey(p, ts), data)
}

func (s *Service) logRead(b *kvstore.Batch, p resource.Path, ts time.Time) {
	s.logAccess(b, kvstore.TopicReadAccessLogs, p, "read", ts)
}

func (s *Service) logWrite(b *kvstore.Batch, p resource.Path, op string, ts time.Time) {
	s.logAccess(b, kvstore.TopicWriteAccessLogs, p, op, ts)
}

// ReadAccessLogs returns the reads recorded for p, oldest first.
func (s *Service) ReadAccessLogs(ctx context.Context, tenant string, p resource.Path) ([]AccessLog, error) {
	return s.accessLogs(ctx, kvstore.TopicReadAccessLogs, tenant, p)
}

// WriteAccessLogs returns the writes recorded for p, oldest first.
func (s *Service) WriteAccessLogs(ctx context.Context, tenant string, p resource.Path) ([]AccessLog, error) {
	return s.accessLogs(ctx, kvstore.TopicWriteAccessLogs, tenant, p)
}

func (s *Service) accessLogs(ctx context.Context, topic kvstore.Topic, tenant string, p resource.Path) ([]AccessLog, error) {
	kvs, err := s.store.List(ctx, topic, tenant, p.Key()+logSeparator)
	if err != nil {
		return nil, err
	}
	out := make([]AccessLog, 0, len(kvs))
	for _, kv := range kvs {
		var entry AccessLog
		if err := json.Unmarshal(kv.Value, &entry); err != nil {
			return nil, fmt.Errorf("decoding access log %q: %w", kv.Key, err)
		}
		out = append(out, entry)
	}
	return out, nil
}
