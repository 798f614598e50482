package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil stays nil", input: nil, want: nil},
		{name: "drops blanks and duplicates", input: []string{" tel:+1 ", "tel:+2", "tel:+1", "", "  "}, want: []string{"tel:+1", "tel:+2"}},
		{name: "keeps order", input: []string{"b", "a", "b"}, want: []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeAndTrim(tt.input))
		})
	}
}

func TestUnion(t *testing.T) {
	base := []string{"tel:+1", "tel:+2"}
	extra := []string{"tel:+2", "tel:+3"}

	once := Union(base, extra)
	assert.Equal(t, []string{"tel:+1", "tel:+2", "tel:+3"}, once)
	assert.Equal(t, once, Union(once, extra), "union must be idempotent")
	assert.Equal(t, []string{"tel:+1", "tel:+2"}, base, "base must not be mutated")
	assert.Equal(t, []string{}, Union(nil, nil))
}

func TestIntersects(t *testing.T) {
	assert.True(t, Intersects([]string{"tel:+1", "tel:+2"}, []string{"tel:+2"}))
	assert.False(t, Intersects([]string{"tel:+1"}, []string{"tel:+3"}))
	assert.False(t, Intersects(nil, []string{"tel:+3"}))
	assert.False(t, Intersects([]string{""}, []string{""}))
}

func TestContains(t *testing.T) {
	assert.True(t, Contains([]string{"a", "b"}, "b"))
	assert.False(t, Contains([]string{"a"}, "c"))
}
