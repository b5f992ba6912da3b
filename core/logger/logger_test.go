package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLinesRecorder(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewJSONLinesRecorder(buf)

	require.Nil(t, log.LogPipelineLaunch(3, true))
	require.Nil(t, log.LogStageFailure(1, "nosuch", errors.New("executable file not found")))
	require.Nil(t, log.LogProcessReaped(4242))
	require.Nil(t, log.LogTreeOpFailure("delete", "/tmp/x", errors.New("permission denied")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)

	var first LogEntry
	require.Nil(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NotNil(t, first.PipelineLaunch)
	assert.Equal(t, 3, first.PipelineLaunch.Stages)
	assert.True(t, first.PipelineLaunch.Background)
	assert.NotZero(t, first.TimestampMicros)

	// One event type per line, nothing else marshaled.
	assert.Nil(t, first.StageFailure)
	assert.Contains(t, lines[1], `"argv0":"nosuch"`)
	assert.Contains(t, lines[2], `"pid":4242`)
	assert.Contains(t, lines[3], `"op":"delete"`)
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	assert.Nil(t, log.LogProcessReaped(1))
}
