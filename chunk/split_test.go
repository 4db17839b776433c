package chunk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sioaeko/splitfile/limits"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSplitRanges(t *testing.T) {
	descriptors, err := Split("report.pdf", 25, 10, testStart)
	require.NoError(t, err)
	require.Len(t, descriptors, 3)

	wantRanges := []struct{ offset, length int64 }{
		{0, 10},
		{10, 10},
		{20, 5},
	}
	for i, want := range wantRanges {
		d := descriptors[i]
		assert.Equal(t, want.offset, d.Offset, "chunk %d offset", i)
		assert.Equal(t, want.length, d.Length, "chunk %d length", i)
		assert.Equal(t, i, d.Meta.Index)
		assert.Equal(t, 3, d.Meta.Total)
		assert.Equal(t, int64(25), d.Meta.ObjectSize)
		assert.Equal(t, Kind, d.Meta.Kind)
		assert.Equal(t, "report.pdf", d.Meta.Name)
	}

	// all chunks share one object key and timestamp
	for _, d := range descriptors[1:] {
		assert.Equal(t, descriptors[0].Meta.ObjectKey, d.Meta.ObjectKey)
		assert.Equal(t, descriptors[0].Meta.Timestamp, d.Meta.Timestamp)
	}
	assert.Equal(t, testStart.UnixMilli(), descriptors[0].Meta.Timestamp)
}

func TestSplitExactMultiple(t *testing.T) {
	descriptors, err := Split("a.bin", 30, 10, testStart)
	require.NoError(t, err)
	require.Len(t, descriptors, 3)
	assert.Equal(t, int64(10), descriptors[2].Length)
}

func TestSplitRejectsEmptyObject(t *testing.T) {
	_, err := Split("a.bin", 0, 10, testStart)
	assert.ErrorIs(t, err, limits.ErrObjectEmpty)
}

func TestSplitRejectsNonOversizedObject(t *testing.T) {
	// An object that fits in one chunk is sent unsplit by the caller.
	_, err := Split("a.bin", 10, 10, testStart)
	assert.ErrorIs(t, err, ErrNotOversized)

	_, err = Split("a.bin", 5, 10, testStart)
	assert.ErrorIs(t, err, ErrNotOversized)
}

func TestSplitRejectsInvalidChunkSize(t *testing.T) {
	_, err := Split("a.bin", 25, 0, testStart)
	assert.ErrorIs(t, err, limits.ErrChunkSizeInvalid)
}

func TestSplitRejectsExcessiveChunkCount(t *testing.T) {
	_, err := Split("a.bin", int64(limits.MaxChunkCount)+1, 1, testStart)
	assert.ErrorIs(t, err, limits.ErrChunkCountTooLarge)
}

func TestSplitDeterministic(t *testing.T) {
	first, err := Split("a.bin", 25, 10, testStart)
	require.NoError(t, err)
	second, err := Split("a.bin", 25, 10, testStart)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewObjectKeyDistinguishesTransfers(t *testing.T) {
	sameTime := NewObjectKey("a.bin", 25, testStart)

	assert.NotEqual(t, sameTime, NewObjectKey("b.bin", 25, testStart),
		"different names must not collide")
	assert.NotEqual(t, sameTime, NewObjectKey("a.bin", 26, testStart),
		"different sizes must not collide")
	assert.NotEqual(t, sameTime, NewObjectKey("a.bin", 25, testStart.Add(time.Millisecond)),
		"different start times must not collide")

	// fixed length regardless of name length
	long := NewObjectKey(string(make([]byte, 4096)), 25, testStart)
	assert.Len(t, long, len(sameTime))
}

func TestPartName(t *testing.T) {
	tests := []struct {
		name  string
		index int
		total int
		want  string
	}{
		{"a.bin", 0, 3, "a.bin.part0"},
		{"a.bin", 2, 3, "a.bin.part2"},
		{"a.bin", 0, 11, "a.bin.part00"},
		{"a.bin", 10, 11, "a.bin.part10"},
		{"a.bin", 7, 150, "a.bin.part007"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PartName(tt.name, tt.index, tt.total))
	}
}
