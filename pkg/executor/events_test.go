package executor

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/arthur-debert/dotup/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(zerolog.New(&buf).Level(zerolog.InfoLevel))
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	sink.Emit(types.Event{Time: at, TaskID: "vim", Kind: types.KindLinkGroup, From: types.StatusPending, To: types.StatusRunning})
	sink.Emit(types.Event{Time: at, TaskID: "vim", Kind: types.KindLinkGroup, From: types.StatusRunning, To: types.StatusFailed, Reason: "1 of 1 links failed"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "running transition is logged at debug")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "warn", record["level"])
	assert.Equal(t, "vim", record["task"])
	assert.Equal(t, "link_group", record["kind"])
	assert.Equal(t, "running", record["from"])
	assert.Equal(t, "failed", record["to"])
	assert.Equal(t, "1 of 1 links failed", record["reason"])
}

func TestMultiSink(t *testing.T) {
	var first, second []string
	sink := MultiSink{
		SinkFunc(func(e types.Event) { first = append(first, e.TaskID) }),
		SinkFunc(func(e types.Event) { second = append(second, string(e.To)) }),
	}

	sink.Emit(types.Event{TaskID: "a", To: types.StatusRunning})
	sink.Emit(types.Event{TaskID: "b", To: types.StatusSkipped})

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, []string{"running", "skipped"}, second)
}
