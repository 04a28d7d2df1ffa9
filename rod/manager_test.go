//go:build integration

package rod_test

import (
	"testing"

	"github.com/fwojciec/siteqa"
	"github.com/fwojciec/siteqa/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserManager_Page(t *testing.T) {
	t.Parallel()

	t.Run("keeps the browser within the page budget", func(t *testing.T) {
		t.Parallel()

		manager, err := rod.NewBrowserManager(rod.WithRecycleAfter(3))
		require.NoError(t, err)
		t.Cleanup(func() { manager.Close() })
		pid := manager.LauncherPID()

		for range 3 {
			_, release, err := manager.Page()
			require.NoError(t, err)
			release()
		}
		assert.Equal(t, pid, manager.LauncherPID())
	})

	t.Run("recycles without closing pages in flight", func(t *testing.T) {
		t.Parallel()

		manager, err := rod.NewBrowserManager(rod.WithRecycleAfter(1))
		require.NoError(t, err)
		t.Cleanup(func() { manager.Close() })
		first := manager.LauncherPID()

		inFlight, releaseFirst, err := manager.Page()
		require.NoError(t, err)

		_, releaseSecond, err := manager.Page()
		require.NoError(t, err)
		defer releaseSecond()
		assert.NotEqual(t, first, manager.LauncherPID())

		require.NoError(t, inFlight.Navigate("about:blank"))
		releaseFirst()
		releaseFirst()
	})

	t.Run("fails after close", func(t *testing.T) {
		t.Parallel()

		manager, err := rod.NewBrowserManager()
		require.NoError(t, err)
		require.NoError(t, manager.Close())
		require.NoError(t, manager.Close())

		_, _, err = manager.Page()
		require.Error(t, err)
		assert.Equal(t, siteqa.EINVALID, siteqa.ErrorCode(err))
		assert.Zero(t, manager.LauncherPID())
	})
}
