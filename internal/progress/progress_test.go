package progress_test

import (
	"testing"
	"time"

	"filescan/internal/progress"

	"github.com/stretchr/testify/require"
)

func TestSyntheticEngines(t *testing.T) {
	require.Equal(t, 0, progress.SyntheticEngines(0))
	require.Equal(t, 0, progress.SyntheticEngines(4))
	require.Equal(t, 1, progress.SyntheticEngines(5))
	require.Equal(t, 10, progress.SyntheticEngines(50))
	require.Equal(t, 20, progress.SyntheticEngines(100))
	require.Equal(t, 0, progress.SyntheticEngines(-1))
	require.Equal(t, 20, progress.SyntheticEngines(150))
}

func TestEstimator_UploadPhaseAdvancesAndCaps(t *testing.T) {
	e := progress.New()
	e.StartUpload(time.Millisecond)
	defer e.Stop()

	require.Eventually(t, func() bool {
		return e.Snapshot().Percent == 100
	}, time.Second, time.Millisecond)

	// capped, never beyond 100
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, 100, e.Snapshot().Percent)
}

func TestEstimator_ScanPhaseIsMonotone(t *testing.T) {
	e := progress.New()
	e.StartScan(time.Millisecond)
	defer e.Stop()

	last := -1
	require.Eventually(t, func() bool {
		s := e.Snapshot()
		require.GreaterOrEqual(t, s.Percent, last)
		require.LessOrEqual(t, s.Percent, 100)
		require.Equal(t, progress.SyntheticEngines(s.Percent), s.EnginesCompleted)
		require.Contains(t, progress.Catalog, s.CurrentEngine)
		last = s.Percent

		return s.Percent >= 10
	}, time.Second, time.Millisecond)
}

func TestEstimator_StopZeroes(t *testing.T) {
	e := progress.New()
	e.StartScan(time.Millisecond)

	require.Eventually(t, func() bool {
		return e.Snapshot().Percent > 0
	}, time.Second, time.Millisecond)

	e.Stop()
	s := e.Snapshot()
	require.Zero(t, s.Percent)
	require.Zero(t, s.EnginesCompleted)
	require.Empty(t, s.CurrentEngine)

	// a stopped estimator stays at zero
	time.Sleep(5 * time.Millisecond)
	require.Zero(t, e.Snapshot().Percent)
}

func TestEstimator_StartSupersedesPriorPhase(t *testing.T) {
	e := progress.New()
	e.StartUpload(time.Millisecond)

	require.Eventually(t, func() bool {
		return e.Snapshot().Percent >= 30
	}, time.Second, time.Millisecond)

	// switching phases resets the estimate
	e.StartScan(50 * time.Millisecond)
	defer e.Stop()
	require.Less(t, e.Snapshot().Percent, 30)
}
