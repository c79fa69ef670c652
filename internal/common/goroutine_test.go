package common

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestSafeGo_RunsAndRecovers(t *testing.T) {
	before := GetGoroutineCount()

	done := make(chan struct{})
	SafeGo(arbor.NewLogger(), "worker", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("SafeGo did not run the function")
	}

	recovered := make(chan struct{})
	SafeGo(arbor.NewLogger(), "panicker", func() {
		defer close(recovered)
		panic("boom")
	})
	select {
	case <-recovered:
	case <-time.After(time.Second):
		t.Fatal("panicking goroutine never finished")
	}

	assert.Equal(t, before+2, GetGoroutineCount())
}

func TestWriteCrashFile(t *testing.T) {
	dir := t.TempDir()
	CrashLogDir = dir
	t.Cleanup(func() { CrashLogDir = "" })

	path := WriteCrashFile("boom", "stack here")
	require.NotEmpty(t, path)
	assert.True(t, strings.HasPrefix(path, dir))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=== PANIC VALUE ===\nboom")
	assert.Contains(t, string(data), "stack here")
	assert.Contains(t, string(data), "=== ALL GOROUTINES ===")
}
