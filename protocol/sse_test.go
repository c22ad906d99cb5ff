package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSETwoRecords(t *testing.T) {
	records := ParseSSE([]byte("data: a\nevent: e\nid: 1\n\ndata: b\n\n"))

	require.Len(t, records, 2)
	assert.Equal(t, SSERecord{Data: "a", Event: "e", ID: "1"}, records[0])
	assert.Equal(t, SSERecord{Data: "b"}, records[1])
}

func TestParseSSEDropsRecordWithNoData(t *testing.T) {
	records := ParseSSE([]byte("event: ping\nid: 5\n\ndata: kept\n\n"))

	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0].Data)
}

func TestParseSSEMultipleDataLinesJoinedWithNewline(t *testing.T) {
	records := ParseSSE([]byte("data: line1\ndata: line2\n\n"))

	require.Len(t, records, 1)
	assert.Equal(t, "line1\nline2", records[0].Data)
}

func TestParseSSETrailingRecordWithoutFinalBlankLine(t *testing.T) {
	records := ParseSSE([]byte("data: a\n\ndata: b"))

	require.Len(t, records, 2)
	assert.Equal(t, "b", records[1].Data)
}

func TestParseSSEIgnoresCommentLines(t *testing.T) {
	records := ParseSSE([]byte(": keep-alive\ndata: a\n\n"))

	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].Data)
}
