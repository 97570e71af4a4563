package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDataTag(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		pattern string
		wantErr bool
	}{
		{name: "valid", tag: "email", pattern: `[\w.]+@[\w.]+`},
		{name: "empty name", tag: "", pattern: `x`, wantErr: true},
		{name: "space in name", tag: "two words", pattern: `x`, wantErr: true},
		{name: "bad pattern", tag: "broken", pattern: `(`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, err := NewDataTag(tt.tag, "", tt.pattern)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidDataTag)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.tag, tag.Name)
		})
	}
}

func TestMatchingTags_FeedsIndex(t *testing.T) {
	email, err := NewDataTag("email", "", `[\w.]+@[\w.]+`)
	require.NoError(t, err)
	money, err := NewDataTag("money", "", `\$\d+`)
	require.NoError(t, err)
	tags := []DataTag{email, money}

	assert.Equal(t, []string{"email", "money"}, MatchingTags("pay $40 to bob@example.com", tags))
	assert.Nil(t, MatchingTags("nothing here", tags))

	doc := NewDocumentResource("d", "", Source{}, "m")
	doc.AppendText("mail ann@example.com", []float32{1, 0}, nil, MatchingTags("mail ann@example.com", tags))
	doc.AppendText("plain", []float32{0, 1}, nil, MatchingTags("plain", tags))
	assert.Equal(t, []string{"email"}, doc.DataTagIndex().Names())
	assert.Equal(t, map[string]struct{}{"1": {}}, doc.DataTagIndex().NodeIDs([]string{"email"}))
}
