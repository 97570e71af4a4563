package kvstore

import (
	"fmt"
	"strings"
)

// Topic names a column. The engine has a single keyspace, so a column is
// a physical key prefix.
type Topic string

const (
	TopicResources       Topic = "resources"
	TopicFilesystem      Topic = "filesystem"
	TopicSourceFiles     Topic = "sourcefiles"
	TopicReadAccessLogs  Topic = "readaccesslogs"
	TopicWriteAccessLogs Topic = "writeaccesslogs"
	TopicTempFilesInbox  Topic = "tempfilesinbox"
)

// Topics lists every column the store opens.
var Topics = []Topic{
	TopicResources,
	TopicFilesystem,
	TopicSourceFiles,
	TopicReadAccessLogs,
	TopicWriteAccessLogs,
	TopicTempFilesInbox,
}

// TenantSeparator joins a tenant name to a logical key.
const TenantSeparator = ":"

const topicSeparator = "/"

// TenantKey returns "<tenant>:<key>". It is the only place a tenant-bound
// key is produced; every read, write, delete and iteration goes through it.
func TenantKey(tenant, key string) (string, error) {
	if err := ValidateTenant(tenant); err != nil {
		return "", err
	}
	return tenant + TenantSeparator + key, nil
}

// ValidateTenant rejects tenants that could make one tenant's prefix a
// prefix of another's.
func ValidateTenant(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("%w: tenant is empty", ErrInvalidTenant)
	}
	if strings.Contains(tenant, TenantSeparator) {
		return fmt.Errorf("%w: %q contains %q", ErrInvalidTenant, tenant, TenantSeparator)
	}
	return nil
}

func validTopic(t Topic) bool {
	for _, known := range Topics {
		if t == known {
			return true
		}
	}
	return false
}

// physicalKey maps (topic, tenant, key) to the engine key.
func physicalKey(topic Topic, tenant, key string) ([]byte, error) {
	if !validTopic(topic) {
		return nil, storageErr("resolve column", fmt.Errorf("%w: %q", ErrUnknownTopic, topic))
	}
	tk, err := TenantKey(tenant, key)
	if err != nil {
		return nil, err
	}
	return []byte(string(topic) + topicSeparator + tk), nil
}

// logicalKey strips topic and tenant from a physical key. ok is false when
// the key does not carry the expected tenant prefix.
func logicalKey(topic Topic, tenant string, physical []byte) (string, bool) {
	prefix := string(topic) + topicSeparator + tenant + TenantSeparator
	s := string(physical)
	if !strings.HasPrefix(s, prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
