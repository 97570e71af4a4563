package kvstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"lukechampine.com/blake3"
)

const inboxKeyPrefix = "encyptedinbox_"

// InboxFile is one staged upload.
type InboxFile struct {
	Name string
	Data []byte
}

// HalfHash returns the first half of the hex blake3 digest of s.
func HalfHash(s string) string {
	sum := blake3.Sum256([]byte(s))
	h := hex.EncodeToString(sum[:])
	return h[:len(h)/2]
}

// InboxPrefix is the logical key prefix shared by every file of an inbox.
func InboxPrefix(inbox string) string {
	return inboxKeyPrefix + HalfHash(inbox) + "_"
}

// InboxKey is the logical key of one file in an inbox.
func InboxKey(inbox, filename string) string {
	return InboxPrefix(inbox) + filename
}

// AddFileToInbox stages data as filename in inbox, replacing a file of the
// same name.
func (s *Store) AddFileToInbox(ctx context.Context, tenant, inbox, filename string, data []byte) error {
	if filename == "" {
		return fmt.Errorf("%w: inbox filename is empty", ErrInvalidKey)
	}
	return s.Put(ctx, TopicTempFilesInbox, tenant, InboxKey(inbox, filename), data)
}

// InboxFiles returns every file staged in inbox, ordered by name.
func (s *Store) InboxFiles(ctx context.Context, tenant, inbox string) ([]InboxFile, error) {
	prefix := InboxPrefix(inbox)
	kvs, err := s.List(ctx, TopicTempFilesInbox, tenant, prefix)
	if err != nil {
		return nil, err
	}
	if len(kvs) == 0 {
		return nil, fmt.Errorf("%q: %w", inbox, ErrInboxNotFound)
	}
	out := make([]InboxFile, len(kvs))
	for i, kv := range kvs {
		out[i] = InboxFile{Name: strings.TrimPrefix(kv.Key, prefix), Data: kv.Value}
	}
	return out, nil
}

// InboxFilenames returns the names staged in inbox.
func (s *Store) InboxFilenames(ctx context.Context, tenant, inbox string) ([]string, error) {
	files, err := s.InboxFiles(ctx, tenant, inbox)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	return names, nil
}

// InboxFile returns one staged file.
func (s *Store) InboxFile(ctx context.Context, tenant, inbox, filename string) ([]byte, error) {
	data, err := s.Get(ctx, TopicTempFilesInbox, tenant, InboxKey(inbox, filename))
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%q in %q: %w", filename, inbox, ErrFileNotFound)
	}
	return data, err
}

// RemoveInbox deletes every file of inbox in one batch. Removing an empty
// inbox is a no-op.
func (s *Store) RemoveInbox(ctx context.Context, tenant, inbox string) error {
	kvs, err := s.List(ctx, TopicTempFilesInbox, tenant, InboxPrefix(inbox))
	if err != nil {
		return err
	}
	b := s.NewBatch(tenant)
	for _, kv := range kvs {
		b.Delete(TopicTempFilesInbox, kv.Key)
	}
	return s.Commit(ctx, b)
}
