package correlation

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewID_IsUUID(t *testing.T) {
	_, err := uuid.Parse(NewID())
	assert.NoError(t, err)
}

func TestFromHeader(t *testing.T) {
	assert.Equal(t, "abc-123", FromHeader("  abc-123 "))

	for _, bad := range []string{"", "has space", strings.Repeat("x", 65)} {
		id := FromHeader(bad)
		_, err := uuid.Parse(id)
		assert.NoError(t, err, "input %q should yield a fresh id", bad)
	}
}

func TestWithID_and_ID_Roundtrip(t *testing.T) {
	ctx := WithID(context.Background(), "abc12345")
	id, ok := ID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc12345", id)

	_, ok = ID(WithID(context.Background(), ""))
	assert.False(t, ok)

	_, ok = ID(context.Background())
	assert.False(t, ok)
}

func TestHandler_AddsCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(slog.NewTextHandler(&buf, nil))).With("component", "ledger")

	logger.InfoContext(WithID(context.Background(), "test1234"), "recorded", "key", "value")
	logger.InfoContext(context.Background(), "plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "correlation_id=test1234")
	assert.Contains(t, lines[0], "component=ledger")
	assert.NotContains(t, lines[1], "correlation_id")
}
