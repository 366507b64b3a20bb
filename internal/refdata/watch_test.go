package refdata

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatchReturnsImmediately(t *testing.T) {
	defer goleak.VerifyNone(t)
	lib := writeLibrary(t, testLibrary)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch blocked instead of returning after setup")
	}

	cancel()
	// The loop goroutine must exit on cancellation; goleak verifies.
	time.Sleep(100 * time.Millisecond)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)
	lib := writeLibrary(t, testLibrary)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, lib.Watch(ctx))

	updated := strings.Replace(testLibrary, "copper hair", "silver hair", 1)
	require.NoError(t, os.WriteFile(lib.path, []byte(updated), 0644))

	assert.Eventually(t, func() bool {
		got, err := lib.Appearance("Mara Voss", "mess-hall", "default")
		return err == nil && strings.Contains(got, "silver hair")
	}, 3*time.Second, 20*time.Millisecond, "library not reloaded after write")

	cancel()
	time.Sleep(100 * time.Millisecond)
}

func TestWatchSetupError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testLibrary), 0644))
	lib, err := LoadFileLibrary(path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	err = lib.Watch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}
