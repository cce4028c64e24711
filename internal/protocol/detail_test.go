package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDetail(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"encoded object", `"{\"im\":\"some data\"}"`, `{"im":"some data"}`},
		{"encoded string", `"\"start\""`, `"start"`},
		{"empty string", `""`, ``},
		{"null", `null`, ``},
		{"raw object", `{ "a" : [1, 2] }`, `{"a":[1,2]}`},
		{"raw number", `42`, `42`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeDetail(json.RawMessage(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeDetail_Invalid(t *testing.T) {
	// A string whose content is not JSON cannot round-trip through export.
	_, err := NormalizeDetail(json.RawMessage(`"blahblah"`))
	assert.ErrorIs(t, err, ErrDetail)
}

func TestDecodeDetail(t *testing.T) {
	v, err := DecodeDetail("")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = DecodeDetail(`{"a":1}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(v))

	_, err = DecodeDetail("{oops")
	assert.ErrorIs(t, err, ErrDetail)
}
