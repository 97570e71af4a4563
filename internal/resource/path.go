package resource

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPath is returned when a path string cannot be parsed.
var ErrInvalidPath = errors.New("invalid path")

// Path addresses a node inside a resource tree or a folder/item inside a
// tenant's filesystem. Comparison is segment-wise, never string-wise.
//
// A Path is a value type; every mutator returns a new Path.
type Path struct {
	segments []string
}

// Root returns the empty path, rendered as "/".
func Root() Path {
	return Path{}
}

// NewPath builds a path from already-split segments.
func NewPath(segments ...string) Path {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return Path{segments: out}
}

// ParsePath parses "/a/b/c". The leading slash is required.
func ParsePath(s string) (Path, error) {
	if !strings.HasPrefix(s, "/") {
		return Path{}, fmt.Errorf("%w: %q must start with '/'", ErrInvalidPath, s)
	}
	trimmed := strings.Trim(s, "/")
	if trimmed == "" {
		return Root(), nil
	}
	return NewPath(strings.Split(trimmed, "/")...), nil
}

// MustParsePath is ParsePath for literals known to be valid.
func MustParsePath(s string) Path {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// CleanSegment makes an arbitrary name usable as a single path segment.
func CleanSegment(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	return strings.ReplaceAll(name, ":", "_")
}

// Segments returns a copy of the path segments.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// IsRoot reports whether p has no segments.
func (p Path) IsRoot() bool {
	return len(p.segments) == 0
}

// Depth is the number of segments.
func (p Path) Depth() int {
	return len(p.segments)
}

// DepthInclusive is Depth counting the root as a level.
func (p Path) DepthInclusive() int {
	return len(p.segments) + 1
}

// Last returns the final segment, or "" for the root.
func (p Path) Last() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Push returns p with one more segment appended.
func (p Path) Push(segment string) Path {
	out := make([]string, len(p.segments), len(p.segments)+1)
	copy(out, p.segments)
	if segment != "" {
		out = append(out, segment)
	}
	return Path{segments: out}
}

// Append returns p followed by every segment of other.
func (p Path) Append(other Path) Path {
	out := make([]string, 0, len(p.segments)+len(other.segments))
	out = append(out, p.segments...)
	out = append(out, other.segments...)
	return Path{segments: out}
}

// Parent returns p without its last segment. The root is its own parent.
func (p Path) Parent() Path {
	if len(p.segments) == 0 {
		return p
	}
	return Path{segments: p.Segments()[:len(p.segments)-1]}
}

// Equal compares segment-wise.
func (p Path) Equal(other Path) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// IsAncestorOf reports whether p is a strict prefix of other.
func (p Path) IsAncestorOf(other Path) bool {
	if len(p.segments) >= len(other.segments) {
		return false
	}
	for i := range p.segments {
		if p.segments[i] != other.segments[i] {
			return false
		}
	}
	return true
}

// IsDescendantOf reports whether other is a strict prefix of p.
func (p Path) IsDescendantOf(other Path) bool {
	return other.IsAncestorOf(p)
}

// Relative strips the ancestor prefix from p. ok is false when ancestor is
// neither p nor one of its ancestors.
func (p Path) Relative(ancestor Path) (Path, bool) {
	if !ancestor.Equal(p) && !ancestor.IsAncestorOf(p) {
		return Path{}, false
	}
	return NewPath(p.segments[len(ancestor.segments):]...), true
}

// String renders the path as "/a/b/c".
func (p Path) String() string {
	return "/" + strings.Join(p.segments, "/")
}

// Key renders the path without the leading slash. Used as the logical
// storage key of a path; the root renders as "".
func (p Path) Key() string {
	return strings.Join(p.segments, "/")
}

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Path) UnmarshalText(text []byte) error {
	parsed, err := ParsePath(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
