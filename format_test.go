package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatCents(t *testing.T) {
	tests := []struct {
		name  string
		cents int64
		want  string
	}{
		{"zero", 0, "0.00"},
		{"under a unit", 99, "0.99"},
		{"round", 1500, "15.00"},
		{"mixed", 123456, "1234.56"},
		{"negative", -250, "-2.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCents(tt.cents))
		})
	}
}

func TestFormatTime(t *testing.T) {
	ts := "2026-08-20T10:30:00Z"

	t.Run("absolute", func(t *testing.T) {
		assert.Equal(t, ts, formatTime(ts, false))
	})

	t.Run("relative", func(t *testing.T) {
		recent := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
		assert.Contains(t, formatTime(recent, true), "ago")
	})

	t.Run("unparseable passes through", func(t *testing.T) {
		assert.Equal(t, "not-a-time", formatTime("not-a-time", true))
	})
}

func TestFormatAge(t *testing.T) {
	millis := time.Date(2026, time.August, 20, 10, 30, 0, 0, time.UTC).UnixMilli()

	assert.Equal(t, "2026-08-20T10:30:00Z", formatAge(millis, false))
	assert.Contains(t, formatAge(time.Now().Add(-time.Minute).UnixMilli(), true), "ago")
}

func TestPrintTable(t *testing.T) {
	var buf bytes.Buffer

	headers := []string{"ID", "NAME", "QTY"}
	rows := [][]string{
		{"1", "USB-C cable", "40"},
		{"12", "Screen kit", "3"},
	}

	printTable(&buf, headers, rows)

	out := buf.String()
	assert.Contains(t, out, "ID  NAME         QTY")
	assert.Contains(t, out, "1   USB-C cable  40")
	assert.Contains(t, out, "12  Screen kit   3")
}
