package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/marketsync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/marketsync/internal/core/domain"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m))
	return m
}

func TestLogSink_Emit(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	sink := NewLogSink(&l)

	err := sink.Emit(context.Background(), domain.Notification{
		Type:      domain.NotifyDeletionBatch,
		Title:     "Deleting 2 stale records",
		Message:   "absent from the marketplace",
		Severity:  domain.SeverityWarning,
		Payload:   map[string]any{"count": 2},
		CreatedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	line := decodeLine(t, &buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "deletion_batch", line["event"])
	assert.Equal(t, "Deleting 2 stale records", line["message"])
	assert.Equal(t, "absent from the marketplace", line["detail"])
	assert.InDelta(t, 2, line["count"], 0)
	assert.Contains(t, line, "emitted_at")
}

func TestLogSink_SeverityLevels(t *testing.T) {
	tests := []struct {
		severity domain.Severity
		level    string
	}{
		{domain.SeverityError, "error"},
		{domain.SeverityWarning, "warn"},
		{domain.SeverityInfo, "info"},
		{domain.SeveritySuccess, "info"},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			var buf bytes.Buffer
			l := zerolog.New(&buf)

			require.NoError(t, NewLogSink(&l).Emit(context.Background(), domain.Notification{
				Type: domain.NotifyCycleReport, Severity: tt.severity,
			}))

			assert.Equal(t, tt.level, decodeLine(t, &buf)["level"])
		})
	}
}

type failingSink struct{ err error }

func (s failingSink) Emit(context.Context, domain.Notification) error { return s.err }

func TestMulti_DeliversToAll(t *testing.T) {
	a, b := memory.NewEventLog(), memory.NewEventLog()
	m := NewMulti(a, nil, b)

	require.Len(t, m, 2)
	require.NoError(t, m.Emit(context.Background(), domain.Notification{Type: domain.NotifyFetchCycle}))

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
}

func TestMulti_JoinsErrorsButKeepsGoing(t *testing.T) {
	boom := errors.New("disk full")
	log := memory.NewEventLog()
	m := NewMulti(failingSink{err: boom}, log)

	err := m.Emit(context.Background(), domain.Notification{Type: domain.NotifyDeletionBatch})

	require.ErrorIs(t, err, boom)
	assert.Len(t, log.Events(domain.NotifyDeletionBatch), 1)
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, NewMulti().Emit(context.Background(), domain.Notification{}))
}
