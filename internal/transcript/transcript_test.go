package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_AppendAndFlush(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "playground-room1")

	store.Append(TimedTranscript{
		Role:    "user",
		Content: "hello",
		Start:   1725100000.1,
		End:     1725100000.9,
		Words: []Word{
			{Text: "hello", Start: 1725100000.1, End: 1725100000.9},
		},
	})
	store.Append(TimedTranscript{
		Type:    "message",
		Role:    "assistant",
		Content: "hi there",
		Start:   1725100001.2,
		End:     1725100002.0,
	})

	assert.Equal(t, 2, store.Len())
	require.NoError(t, store.Flush())

	path := filepath.Join(dir, "playground-room1_transcripts.json")
	assert.Equal(t, path, store.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entries []TimedTranscript
	require.NoError(t, json.Unmarshal(data, &entries))
	require.Len(t, entries, 2)

	// Missing type defaults; explicit type survives.
	assert.Equal(t, TypeTranscript, entries[0].Type)
	assert.Equal(t, "message", entries[1].Type)
	assert.Equal(t, "hello", entries[0].Content)
	require.Len(t, entries[0].Words, 1)
}

func TestStore_FlushOverwrites(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, "room")

	store.Append(TimedTranscript{Role: "user", Content: "one"})
	require.NoError(t, store.Flush())

	store.Append(TimedTranscript{Role: "user", Content: "two"})
	require.NoError(t, store.Flush())

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	var entries []TimedTranscript
	require.NoError(t, json.Unmarshal(data, &entries))
	assert.Len(t, entries, 2)
}

func TestRebase(t *testing.T) {
	entries := []TimedTranscript{
		{
			Role:  "user",
			Start: 1725100000.1234,
			End:   1725100001.5678,
			Words: []Word{
				{Text: "a", Start: 1725100000.1234, End: 1725100000.8},
				{Text: "b", Start: 1725100000.9, End: 1725100001.5678},
			},
		},
		{
			Role:  "assistant",
			Start: 1725100002.5,
			End:   1725100003.75,
		},
	}

	rebased := Rebase(entries)
	require.Len(t, rebased, 2)

	assert.Equal(t, 0.0, rebased[0].Start)
	assert.InDelta(t, 1.444, rebased[0].End, 1e-9)
	assert.InDelta(t, 0.777, rebased[0].Words[1].Start, 1e-9)
	assert.InDelta(t, 2.377, rebased[1].Start, 1e-9)
	assert.InDelta(t, 3.627, rebased[1].End, 1e-9)

	// Input untouched.
	assert.Equal(t, 1725100000.1234, entries[0].Start)
}

func TestRebase_Empty(t *testing.T) {
	assert.Nil(t, Rebase(nil))
}

func TestRebaseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "room_transcripts.json")

	entries := []TimedTranscript{
		{Role: "user", Content: "hey", Start: 100.5, End: 101.25},
		{Role: "assistant", Content: "hello", Start: 102.0, End: 103.5},
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	outPath, err := RebaseFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "room_transcripts_modified.json"), outPath)

	out, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var rebased []TimedTranscript
	require.NoError(t, json.Unmarshal(out, &rebased))
	assert.Equal(t, 0.0, rebased[0].Start)
	assert.Equal(t, 0.75, rebased[0].End)
	assert.Equal(t, 1.5, rebased[1].Start)
}

func TestRebaseFile_MissingFile(t *testing.T) {
	_, err := RebaseFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
