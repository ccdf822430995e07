package helpers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCliError(t *testing.T) {
	t.Run("Should create error with code and message", func(t *testing.T) {
		err := NewCliError("TEST_ERROR", "Test message")
		assert.Equal(t, "TEST_ERROR", err.Code)
		assert.Equal(t, "Test message", err.Message)
		assert.Empty(t, err.Details)
		assert.NotNil(t, err.Context)
	})
	t.Run("Should implement error interface", func(t *testing.T) {
		err := NewCliError("TEST_ERROR", "Test message")
		assert.Equal(t, "TEST_ERROR: Test message", err.Error())

		errWithDetails := NewCliError("TEST_ERROR", "Test message", "Details")
		assert.Equal(t, "TEST_ERROR: Test message (Details)", errWithDetails.Error())
	})
	t.Run("Should add context to error", func(t *testing.T) {
		err := NewCliError("TEST_ERROR", "Test message").WithContext("file", "a.pdf")
		assert.Equal(t, "a.pdf", err.Context["file"])
	})
}

func TestFormatError(t *testing.T) {
	t.Run("Should render plain text without color", func(t *testing.T) {
		err := NewCliError("X", "something broke", "more info")
		assert.Equal(t, "Error: something broke\nDetails: more info", FormatError(err, false, false))
		assert.Equal(t, "Error: plain", FormatError(errors.New("plain"), false, false))
	})
	t.Run("Should render JSON with the error code", func(t *testing.T) {
		wrapped := fmt.Errorf("outer: %w", NewCliError("INVALID_FORMAT", "bad format", "use json"))
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(FormatError(wrapped, true, false)), &payload))
		assert.Equal(t, "bad format", payload["error"])
		assert.Equal(t, "use json", payload["details"])
		assert.Equal(t, "INVALID_FORMAT", payload["code"])
	})
	t.Run("Should return empty string for nil", func(t *testing.T) {
		assert.Empty(t, FormatError(nil, true, true))
	})
	t.Run("Should write to the given writer", func(t *testing.T) {
		var buf bytes.Buffer
		OutputError(&buf, errors.New("boom"), false, false)
		assert.Equal(t, "Error: boom\n", buf.String())
	})
}

func TestTruncate(t *testing.T) {
	t.Run("Should keep short strings", func(t *testing.T) {
		assert.Equal(t, "short", Truncate("short", 10))
	})
	t.Run("Should add an ellipsis", func(t *testing.T) {
		assert.Equal(t, "abcd...", Truncate("abcdefghij", 7))
	})
	t.Run("Should count runes not bytes", func(t *testing.T) {
		assert.Equal(t, "éé...", Truncate("éééééé", 5))
	})
	t.Run("Should cut without ellipsis for tiny limits", func(t *testing.T) {
		assert.Equal(t, "ab", Truncate("abcdef", 2))
	})
}

func TestFormatDuration(t *testing.T) {
	t.Run("Should pick a readable unit", func(t *testing.T) {
		assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
		assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
		assert.Equal(t, "2.0m", FormatDuration(2*time.Minute))
		assert.Equal(t, "1.5h", FormatDuration(90*time.Minute))
	})
}

func TestPluralize(t *testing.T) {
	t.Run("Should choose by count", func(t *testing.T) {
		assert.Equal(t, "file", Pluralize(1, "file", "files"))
		assert.Equal(t, "files", Pluralize(0, "file", "files"))
	})
}

func TestParseOutputFormat(t *testing.T) {
	t.Run("Should accept allowed formats case-insensitively", func(t *testing.T) {
		format, err := ParseOutputFormat(" JSON ", OutputFormatJSON, OutputFormatTable)
		require.NoError(t, err)
		assert.Equal(t, OutputFormatJSON, format)
	})
	t.Run("Should reject other formats", func(t *testing.T) {
		_, err := ParseOutputFormat("xml", OutputFormatJSON, OutputFormatTable)
		var cliErr *CliError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "INVALID_FORMAT", cliErr.Code)
		assert.Contains(t, cliErr.Details, "json, table")
	})
}

func TestCliErrorCause(t *testing.T) {
	t.Run("Should unwrap to the classified error", func(t *testing.T) {
		cause := errors.New("root cause")
		err := NewCliError("X", "classified").WithCause(cause)
		assert.ErrorIs(t, err, cause)
	})
}
