package resource

import "sort"

// Metadata is the free-form key/value mapping attached to nodes and VRKai.
// encoding/json writes map keys in sorted order, so two equal Metadata
// values always serialize identically.
type Metadata map[string]string

// Clone returns an independent copy. Clone of nil is nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal treats nil and empty as equal.
func (m Metadata) Equal(other Metadata) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || ov != v {
			return false
		}
	}
	return true
}

// MetadataPair is a filter term. A nil Value matches on key presence only.
type MetadataPair struct {
	Key   string
	Value *string
}

// HasKey builds a presence-only filter term.
func HasKey(key string) MetadataPair {
	return MetadataPair{Key: key}
}

// KeyEquals builds a filter term matching key and value.
func KeyEquals(key, value string) MetadataPair {
	return MetadataPair{Key: key, Value: &value}
}

// Matches reports whether m satisfies a single term.
func (p MetadataPair) Matches(m Metadata) bool {
	v, ok := m[p.Key]
	if !ok {
		return false
	}
	return p.Value == nil || *p.Value == v
}

// MatchesAny is true when at least one term matches.
func (m Metadata) MatchesAny(pairs []MetadataPair) bool {
	for _, p := range pairs {
		if p.Matches(m) {
			return true
		}
	}
	return false
}

// MatchesAll is true when every term matches. Nodes without metadata never
// satisfy a non-empty filter.
func (m Metadata) MatchesAll(pairs []MetadataPair) bool {
	if len(m) == 0 && len(pairs) > 0 {
		return false
	}
	for _, p := range pairs {
		if !p.Matches(m) {
			return false
		}
	}
	return true
}
