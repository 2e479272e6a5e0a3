package transcript

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
)

// Rebase rewrites absolute timestamps to be relative to the first
// entry's start, rounded to milliseconds. The input is not modified.
func Rebase(entries []TimedTranscript) []TimedTranscript {
	if len(entries) == 0 {
		return nil
	}
	ref := entries[0].Start

	out := make([]TimedTranscript, len(entries))
	for i, entry := range entries {
		entry.Start = roundMillis(entry.Start - ref)
		entry.End = roundMillis(entry.End - ref)
		if len(entry.Words) > 0 {
			words := make([]Word, len(entry.Words))
			for j, w := range entry.Words {
				w.Start = roundMillis(w.Start - ref)
				w.End = roundMillis(w.End - ref)
				words[j] = w
			}
			entry.Words = words
		}
		out[i] = entry
	}
	return out
}

// RebaseFile reads a transcripts file, rebases its timestamps, and
// writes the result next to it as `<base>_modified.json`.
func RebaseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("transcript: read %s: %w", path, err)
	}
	var entries []TimedTranscript
	if err := json.Unmarshal(data, &entries); err != nil {
		return "", fmt.Errorf("transcript: parse %s: %w", path, err)
	}

	rebased := Rebase(entries)
	out, err := json.MarshalIndent(rebased, "", "  ")
	if err != nil {
		return "", fmt.Errorf("transcript: marshal: %w", err)
	}

	outPath := strings.TrimSuffix(path, ".json") + "_modified.json"
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return "", fmt.Errorf("transcript: write %s: %w", outPath, err)
	}
	return outPath, nil
}

// roundMillis rounds to three decimal places.
func roundMillis(v float64) float64 {
	return math.Round(v*1000) / 1000
}
