package indexing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLines_Basic(t *testing.T) {
	total, records := ExtractLines([]byte("alpha\nbeta\ngamma\n"))

	assert.Equal(t, 3, total)
	require.Len(t, records, 3)
	assert.Equal(t, LineRecord{Number: 1, Text: "alpha", Length: 5}, records[0])
	assert.Equal(t, LineRecord{Number: 2, Text: "beta", Length: 4}, records[1])
	assert.Equal(t, LineRecord{Number: 3, Text: "gamma", Length: 5}, records[2])
}

func TestExtractLines_BlankLinesCountedNotRecorded(t *testing.T) {
	total, records := ExtractLines([]byte("first\n\n   \n\t\nfifth\n"))

	assert.Equal(t, 5, total)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Number)
	assert.Equal(t, 5, records[1].Number)
	assert.Equal(t, "fifth", records[1].Text)
}

func TestExtractLines_CRLF(t *testing.T) {
	total, records := ExtractLines([]byte("one\r\ntwo\r\n"))

	assert.Equal(t, 2, total)
	require.Len(t, records, 2)
	assert.Equal(t, "one", records[0].Text)
	assert.Equal(t, "two", records[1].Text)
	assert.Equal(t, 3, records[0].Length)
}

func TestExtractLines_NoTrailingNewline(t *testing.T) {
	total, records := ExtractLines([]byte("solo"))

	assert.Equal(t, 1, total)
	require.Len(t, records, 1)
	assert.Equal(t, "solo", records[0].Text)
}

func TestExtractLines_Empty(t *testing.T) {
	total, records := ExtractLines(nil)
	assert.Equal(t, 0, total)
	assert.Empty(t, records)

	total, records = ExtractLines([]byte{})
	assert.Equal(t, 0, total)
	assert.Empty(t, records)
}

func TestExtractLines_InvalidUTF8Repaired(t *testing.T) {
	total, records := ExtractLines([]byte{'o', 'k', '\n', 0xff, 0xfe, 'x', '\n'})

	assert.Equal(t, 2, total)
	require.Len(t, records, 2)
	assert.Equal(t, "ok", records[0].Text)
	assert.Contains(t, records[1].Text, "�")
	assert.Contains(t, records[1].Text, "x")
}

func TestExtractLines_LengthIsBytesAfterRepair(t *testing.T) {
	_, records := ExtractLines([]byte("héllo\n"))

	require.Len(t, records, 1)
	assert.Equal(t, len("héllo"), records[0].Length)
}
