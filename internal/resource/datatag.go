package resource

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidDataTag is returned for a tag without a name or with a pattern
// that does not compile.
var ErrInvalidDataTag = errors.New("invalid data tag")

// DataTag names a class of content. Text matching Pattern is tagged with
// Name when it is added to a resource, and the tag then feeds the resource's
// DataTagIndex.
type DataTag struct {
	Name        string
	Description string
	Pattern     *regexp.Regexp
}

// NewDataTag compiles pattern into a tag. Names may not contain spaces.
func NewDataTag(name, description, pattern string) (DataTag, error) {
	if name == "" || strings.ContainsAny(name, " \t\n") {
		return DataTag{}, fmt.Errorf("%w: name %q", ErrInvalidDataTag, name)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return DataTag{}, fmt.Errorf("%w: %s: %v", ErrInvalidDataTag, name, err)
	}
	return DataTag{Name: name, Description: description, Pattern: re}, nil
}

// Matches reports whether text carries the tag.
func (t DataTag) Matches(text string) bool {
	return t.Pattern != nil && t.Pattern.MatchString(text)
}

// MatchingTags returns the names of the tags text matches, in tag order.
// It returns nil when none match.
func MatchingTags(text string, tags []DataTag) []string {
	var names []string
	for _, t := range tags {
		if t.Matches(text) {
			names = append(names, t.Name)
		}
	}
	return names
}
