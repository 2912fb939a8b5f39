package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedFile_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo_feedback.csv")
	require.NoError(t, os.WriteFile(path, []byte("group,student,feedback,date\nZ,zoe,mine,2024-01-01\n"), 0o644))

	require.NoError(t, seedFile(zap.NewNop(), path, &demo, false))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "zoe")
}

func TestSeedFile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo_feedback.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, seedFile(zap.NewNop(), path, &demo, true))

	var rows []feedbackRow
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, gocsv.UnmarshalFile(f, &rows))
	assert.Equal(t, demo, rows)
}

func TestSeedFile_New(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo_feedback.csv")

	require.NoError(t, seedFile(zap.NewNop(), path, &demo, false))
	_, err := os.Stat(path)
	assert.NoError(t, err)
}
