package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer   tok  ", "tok", false},
		{"", "", true},
		{"Bearer", "", true},
		{"Bearer    ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"abc.def.ghi", "", true},
	}
	for _, tc := range cases {
		got, err := BearerToken(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrNoToken, "input %q", tc.in)
			continue
		}
		assert.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unauthenticated", Unauthenticated.String())
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "verified", Verified.String())
}
