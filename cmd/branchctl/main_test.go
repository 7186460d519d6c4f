package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchstock/internal/core/numerator"
)

func TestParseFlags(t *testing.T) {
	flags := parseFlags([]string{"--code", "CEN", "--name", "Sucursal Centro", "--all", "stray", "--limit", "8000"})

	assert.Equal(t, "CEN", flags["code"])
	assert.Equal(t, "Sucursal Centro", flags["name"])
	assert.Equal(t, "stray", flags["all"])
	assert.Equal(t, "8000", flags["limit"])
}

func TestParseFlags_Boolean(t *testing.T) {
	flags := parseFlags([]string{"--all"})
	v, ok := flags["all"]
	assert.True(t, ok)
	assert.Empty(t, v)

	flags = parseFlags([]string{"--all", "--branch", "NOR"})
	_, ok = flags["all"]
	assert.True(t, ok)
	assert.Equal(t, "NOR", flags["branch"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Sucursal...", truncate("Sucursal Centro", 11))
}

func TestSequenceTarget_FromLastNumber(t *testing.T) {
	cfg := numerator.DefaultConfig("SAL")

	period, value, err := sequenceTarget(map[string]string{"last": "SAL-2026-00120"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2026, period.Year())
	assert.Equal(t, int64(120), value)
	assert.Equal(t, "SAL-2026-00121", cfg.Format(period, value+1))
}

func TestSequenceTarget_FromYearAndValue(t *testing.T) {
	cfg := numerator.DefaultConfig("SAL")

	period, value, err := sequenceTarget(map[string]string{"year": "2025", "value": "7"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), period)
	assert.Equal(t, int64(7), value)
}

func TestSequenceTarget_Rejects(t *testing.T) {
	cfg := numerator.DefaultConfig("SAL")

	for name, flags := range map[string]map[string]string{
		"other prefix":  {"last": "ENT-2026-00001"},
		"bad year":      {"last": "SAL-20X6-00001"},
		"no sequence":   {"last": "SAL-2026-"},
		"short padding": {"last": "SAL-2026-12"},
		"missing year":  {"value": "3"},
		"negative":      {"year": "2026", "value": "-1"},
	} {
		_, _, err := sequenceTarget(flags, cfg)
		assert.Error(t, err, name)
	}
}
