package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionModeWithoutPerfDir(t *testing.T) {
	log, err := New(false, "")
	require.NoError(t, err)
	require.NotNil(t, log)

	assert.NotPanics(t, func() {
		log.Info("hello")
	})
}

func TestNew_DebugMode(t *testing.T) {
	log, err := New(true, "")
	require.NoError(t, err)
	require.NotNil(t, log)
	assert.NotPanics(t, func() {
		log.Debug("debugging")
	})
}

func TestNew_WithPerfDirWritesDailyFile(t *testing.T) {
	dir := t.TempDir()

	log, err := New(false, dir)
	require.NoError(t, err)
	log.Info("sample")
	_ = log.Sync()

	expected := filepath.Join(dir, time.Now().Format("2006-01-02")+".jsonl")
	_, statErr := os.Stat(expected)
	assert.NoError(t, statErr)
}

func TestNew_UnwritablePerfDirDoesNotFailConstruction(t *testing.T) {
	// A file, not a directory: MkdirAll underneath it fails, the extra
	// core is silently skipped, construction still succeeds.
	f := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

	log, err := New(false, filepath.Join(f, "sub"))
	require.NoError(t, err)
	assert.NotNil(t, log)
}
