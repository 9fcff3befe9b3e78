package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCheck_ListsSkippedRecords tests the summary and the per-record warnings
func TestCheck_ListsSkippedRecords(t *testing.T) {
	path := writeFile(t, "flights.json", flights)

	output, _, err := executeCommand(t, "check", path, "--reference", "Flight XYZ")
	require.NoError(t, err)

	assert.Contains(t, output, "Entities:  3")
	assert.Contains(t, output, "Events:    4")
	assert.Contains(t, output, "Bounds:    01-Jan 06:00 AM – 02-Jan 03:00 AM")
	assert.Contains(t, output, "Buckets:   8 × 6h")
	assert.Contains(t, output, "Days:      01-Jan, 02-Jan")
	assert.Contains(t, output, "Categories: discrepancy=2 match=1 truth=1")
	assert.Contains(t, output, "Skipped:   1")
	assert.Contains(t, output, "Landing")
}

func TestCheck_Unclassified(t *testing.T) {
	path := writeFile(t, "flights.json", flights)

	output, _, err := executeCommand(t, "check", path, "--classification", "none")
	require.NoError(t, err)
	assert.NotContains(t, output, "Categories:")
}

func TestCheck_Strict(t *testing.T) {
	path := writeFile(t, "flights.json", flights)

	_, _, err := executeCommand(t, "check", path, "--classification", "none", "--strict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 record(s) skipped")

	clean := writeFile(t, "clean.json", `{"A": {"x": "2024-01-01T10:00:00"}}`)
	output, _, err := executeCommand(t, "check", clean, "--classification", "none", "--strict")
	require.NoError(t, err)
	assert.Contains(t, output, "No malformed records")
}

func TestCheck_EmptyDataset(t *testing.T) {
	path := writeFile(t, "empty.json", `{"A": {"x": "not a date"}}`)

	_, _, err := executeCommand(t, "check", path, "--classification", "none")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid")
}
