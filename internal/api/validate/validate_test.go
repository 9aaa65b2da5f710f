package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalIntRange(t *testing.T) {
	tests := []struct {
		raw  string
		want int
		bad  bool
	}{
		{"", 50, false},
		{"1", 1, false},
		{"100", 100, false},
		{"0", 0, true},
		{"101", 0, true},
		{"ten", 0, true},
	}
	for _, tt := range tests {
		got, ef := OptionalIntRange("limit", tt.raw, 50, 1, 100)
		if tt.bad {
			assert.NotNil(t, ef, tt.raw)
			continue
		}
		assert.Nil(t, ef, tt.raw)
		assert.Equal(t, tt.want, got)
	}
}

func TestCollect(t *testing.T) {
	assert.NoError(t, Collect(Required("token", "x"), nil))

	err := Collect(Required("token", " "), MaxLen("token", "abcdef", 3))
	require.Error(t, err)
	errs, ok := err.(Errs)
	require.True(t, ok)
	assert.Len(t, errs, 2)
	assert.Equal(t, "token: required; token: must be at most 3 characters", err.Error())
}
