package actionlog_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagepilot-ai/pagepilot/api/schemas"
	"github.com/pagepilot-ai/pagepilot/internal/actionlog"
)

func readRecords(t *testing.T, buf *bytes.Buffer) []schemas.ActionRecord {
	t.Helper()
	var out []schemas.ActionRecord
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var rec schemas.ActionRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestRecordAppendsJSONLines(t *testing.T) {
	var buf bytes.Buffer
	log := actionlog.NewWithWriter(&buf)

	_, err := log.Record(schemas.Action{
		Type:    schemas.ActionClick,
		Locator: schemas.Locator{Selector: "#go"},
	}, "https://example.com", "ok", nil)
	require.NoError(t, err)

	_, err = log.Record(schemas.Action{
		Type:    schemas.ActionInput,
		Locator: schemas.Locator{Selector: "input[name=q]"},
		Value:   "kittens",
	}, "https://example.com", "ok", nil)
	require.NoError(t, err)

	records := readRecords(t, &buf)
	require.Len(t, records, 2)

	assert.Equal(t, schemas.ActionClick, records[0].Action)
	assert.Equal(t, "#go", records[0].Locator)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].Timestamp.IsZero())
	assert.NotEqual(t, records[0].ID, records[1].ID)

	assert.Equal(t, "kittens", records[1].Value, "non-credential values pass through")
}

func TestRecordRedactsCredentialValues(t *testing.T) {
	tests := []struct {
		name     string
		locator  string
		redacted bool
	}{
		{"password selector", "#password", true},
		{"pwd fragment", "input.pwd-field", true},
		{"token xpath", "//input[@name='api-token']", true},
		{"api key", "input[name=apikey]", true},
		{"plain search box", "input[name=q]", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := actionlog.NewWithWriter(&buf)

			_, err := log.Record(schemas.Action{
				Type:    schemas.ActionInput,
				Locator: schemas.Locator{Selector: tt.locator},
				Value:   "hunter2",
			}, "https://example.com/login", "ok", nil)
			require.NoError(t, err)

			records := readRecords(t, &buf)
			require.Len(t, records, 1)
			if tt.redacted {
				assert.Equal(t, schemas.RedactedValue, records[0].Value)
				assert.NotContains(t, buf.String(), "hunter2")
			} else {
				assert.Equal(t, "hunter2", records[0].Value)
			}
		})
	}
}

func TestRecordCapturesErrors(t *testing.T) {
	var buf bytes.Buffer
	log := actionlog.NewWithWriter(&buf)

	_, err := log.Record(schemas.Action{
		Type:    schemas.ActionClick,
		Locator: schemas.Locator{Selector: "#gone"},
	}, "https://example.com", "failed", errors.New("no matching element"))
	require.NoError(t, err)

	records := readRecords(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "failed", records[0].Status)
	assert.Equal(t, "no matching element", records[0].Error)
}

func TestRecordNavigateOmitsValue(t *testing.T) {
	var buf bytes.Buffer
	log := actionlog.NewWithWriter(&buf)

	rec, err := log.Record(schemas.Action{
		Type:  schemas.ActionNavigate,
		Value: "https://www.example.com",
	}, "https://www.example.com", "ok", nil)
	require.NoError(t, err)

	assert.Empty(t, rec.Value)
	assert.Equal(t, "https://www.example.com", rec.URL)
}
