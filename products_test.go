package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, arg := range []string{"0", "-1", "abc", ""} {
		_, err := parseID(arg)
		assert.Error(t, err, "arg %q", arg)
	}
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "0199fc2e", shortID("0199fc2e-1d34-7acd-9c3f-aaaabbbbcccc"))
	assert.Equal(t, "abc", shortID("abc"))
}
