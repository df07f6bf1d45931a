package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/railtycoon/server/internal/config"
	"github.com/railtycoon/server/internal/storage/memory"
	"github.com/railtycoon/server/pkg/core"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuote(t *testing.T) {
	out, err := execute(t, "quote", "--flat", "--track", "double", "[[35.0,139.0],[35.09,139.0]]")
	require.NoError(t, err)

	var q core.LineQuote
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, core.TrackDouble, q.Track)
	assert.InDelta(t, 10.0, q.LengthKm, 0.1)
	assert.Greater(t, q.Cost, int64(0))
	assert.Len(t, q.Segments, 1)
}

func TestQuote_SyntheticTerrainIsSeeded(t *testing.T) {
	line := "[[35.6,139.7],[35.5,139.9]]"
	a, err := execute(t, "quote", "--seed", "7", line)
	require.NoError(t, err)
	b, err := execute(t, "quote", "--seed", "7", line)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestQuote_Errors(t *testing.T) {
	_, err := execute(t, "quote", "--track", "hover", "[[35,139],[35.1,139]]")
	assert.ErrorContains(t, err, "unknown track type")

	_, err = execute(t, "quote", "[[35,139]]")
	assert.ErrorContains(t, err, "at least 2 points")

	_, err = execute(t, "quote")
	assert.Error(t, err)
}

func writeMemoryConfig(t *testing.T) (configDir, outputDir string) {
	t.Helper()
	configDir = t.TempDir()
	outputDir = filepath.Join(configDir, "data")
	body := `{"storage": {"type": "memory", "memory": {"outputDir": "` + filepath.ToSlash(outputDir) + `", "compressOutput": true}}}`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, config.FileName), []byte(body), 0644))
	return configDir, outputDir
}

func TestRanking_NoWorld(t *testing.T) {
	configDir, _ := writeMemoryConfig(t)

	out, err := execute(t, "ranking", "--config-dir", configDir)
	require.NoError(t, err)
	assert.Equal(t, "no persisted world\n", out)
}

func TestRanking(t *testing.T) {
	configDir, outputDir := writeMemoryConfig(t)

	store := memory.New(config.MemoryConfig{OutputDir: outputDir, CompressOutput: true})
	require.NoError(t, store.Init())
	require.NoError(t, store.SaveSnapshot(context.Background(), core.Snapshot{
		Owners: []core.OwnerRecord{
			{ID: "alice", Balance: 5_000_000},
			{ID: "bob", Balance: 9_000_000},
			{ID: "carol", Balance: 1_000_000},
		},
	}))

	out, err := execute(t, "ranking", "--config-dir", configDir, "-n", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "owner")
	assert.Contains(t, lines[1], "bob")
	assert.Contains(t, lines[2], "alice")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, Version)
}
