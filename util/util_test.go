package util

import (
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformSlice(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, TransformSlice([]int{1, 2, 3}, strconv.Itoa))
	assert.Equal(t, []string{}, TransformSlice([]int{}, strconv.Itoa))
}

func TestCanonicalMapIter(t *testing.T) {
	m := map[string]int{"tables": 2, "roles": 0, "permissions": 3}

	var keys []string
	for k := range CanonicalMapIter(m) {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"permissions", "roles", "tables"}, keys)

	var first []string
	for k := range CanonicalMapIter(m) {
		first = append(first, k)
		break
	}
	assert.Equal(t, []string{"permissions"}, first)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for input, expected := range CanonicalMapIter(tests) {
		t.Run(input, func(t *testing.T) {
			assert.Equal(t, expected, ParseLogLevel(input))
		})
	}
}
