package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("SCHEMAGATE_TEST_SET", "value")
	t.Setenv("SCHEMAGATE_TEST_BLANK", "  ")

	assert.Equal(t, "value", GetEnvOrDefault("SCHEMAGATE_TEST_SET", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("SCHEMAGATE_TEST_BLANK", "fallback"))
	assert.Equal(t, "fallback", GetEnvOrDefault("SCHEMAGATE_TEST_UNSET", "fallback"))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"GET", "HEAD"}, SplitList("GET, HEAD"))
	assert.Equal(t, []string{"a"}, SplitList(" ,a,, "))
	assert.Nil(t, SplitList(""))
}
