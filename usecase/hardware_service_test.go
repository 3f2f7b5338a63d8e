package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/entities"
)

func newHardwareFixture(t *testing.T) (*HardwareService, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := NewHardwareService(notifier, zap.NewNop())
	svc.SetTimings(time.Millisecond, time.Millisecond)
	return svc, notifier
}

func waitForState(t *testing.T, svc *HardwareService, want entities.ConnectionState) {
	t.Helper()
	require.Eventually(t, func() bool {
		return svc.Snapshot().ConnectionState == want
	}, time.Second, time.Millisecond, "expected state %s", want)
}

func TestHardwareInitialState(t *testing.T) {
	svc, _ := newHardwareFixture(t)

	snap := svc.Snapshot()
	assert.Equal(t, entities.ConnectionIdle, snap.ConnectionState)
	assert.Nil(t, snap.SelectedModel)
	assert.Empty(t, snap.AvailableModels)
	assert.Equal(t, entities.DefaultHardwareParameters(), snap.Parameters)
	assert.Nil(t, snap.Status.LastUpdatedAt)
	assert.False(t, snap.DialogVisible)
}

func TestDiscoverySelectsFirstModel(t *testing.T) {
	svc, _ := newHardwareFixture(t)

	svc.OpenConnectionDialog()
	assert.Equal(t, entities.ConnectionDiscovering, svc.Snapshot().ConnectionState)
	assert.True(t, svc.Snapshot().DialogVisible)

	waitForState(t, svc, entities.ConnectionSelected)
	snap := svc.Snapshot()
	assert.Equal(t, entities.AvailableDeviceModels(), snap.AvailableModels)
	require.NotNil(t, snap.SelectedModel)
	assert.Equal(t, entities.ModelYarnSpinner, *snap.SelectedModel)
}

func TestDiscoveryEmptyCatalog(t *testing.T) {
	svc, notifier := newHardwareFixture(t)
	svc.SetCatalog(nil)

	svc.OpenConnectionDialog()
	waitForState(t, svc, entities.ConnectionIdle)

	snap := svc.Snapshot()
	assert.Equal(t, entities.ErrNoDevices.Error(), snap.LastError)
	assert.Equal(t, 1, notifier.countCode(entities.CodeNoDevices))
}

func TestDiscoveryResultDroppedAfterDisconnect(t *testing.T) {
	svc, _ := newHardwareFixture(t)
	svc.SetTimings(50*time.Millisecond, time.Millisecond)

	svc.OpenConnectionDialog()
	svc.Disconnect() // user bails out before the scan completes

	// Give the stale completion time to arrive; it must be dropped.
	time.Sleep(100 * time.Millisecond)
	snap := svc.Snapshot()
	assert.Equal(t, entities.ConnectionIdle, snap.ConnectionState)
	assert.Empty(t, snap.AvailableModels)
	assert.Nil(t, snap.SelectedModel)
}

func TestConnectWithoutModel(t *testing.T) {
	svc, notifier := newHardwareFixture(t)

	err := svc.Connect(entities.TransportBluetooth)
	assert.ErrorIs(t, err, entities.ErrNoModelSelected)

	snap := svc.Snapshot()
	assert.Equal(t, entities.ConnectionIdle, snap.ConnectionState, "state must not transition")
	assert.Equal(t, 1, notifier.countCode(entities.CodeNoModelSelected))
	assert.Equal(t, 1, notifier.count(), "exactly one error notification")
}

func TestConnectSuccessScenario(t *testing.T) {
	svc, notifier := newHardwareFixture(t)
	svc.SetOutcomeSource(always(0.0)) // guaranteed success

	svc.OpenConnectionDialog()
	waitForState(t, svc, entities.ConnectionSelected)

	require.NoError(t, svc.Connect(entities.TransportBluetooth))
	assert.True(t, svc.Snapshot().IsConnecting)

	waitForState(t, svc, entities.ConnectionConnected)
	snap := svc.Snapshot()
	assert.True(t, snap.IsConnected)
	assert.Equal(t, entities.TransportBluetooth, snap.Transport)
	require.NotNil(t, snap.Status.LastUpdatedAt)

	last, ok := notifier.last()
	require.True(t, ok)
	assert.Equal(t, entities.NotificationSuccess, last.Kind)
	assert.Contains(t, last.Title, "ClawLab Yarn Spinner")

	// Parameter write while connected: clamped and notified once.
	before := notifier.count()
	svc.UpdateParameter(entities.ParamSpeed, 999)
	assert.Equal(t, 100, svc.Snapshot().Parameters.Speed)
	assert.Equal(t, before+1, notifier.count())

	// Same effective value again: no re-notification.
	svc.UpdateParameter(entities.ParamSpeed, 100)
	assert.Equal(t, before+1, notifier.count())

	svc.Disconnect()
	snap = svc.Snapshot()
	assert.False(t, snap.IsConnected)
	assert.Equal(t, entities.ConnectionIdle, snap.ConnectionState)
	require.NotNil(t, snap.SelectedModel, "selected model is retained for the next attempt")
	assert.Equal(t, entities.ModelYarnSpinner, *snap.SelectedModel)
	assert.Equal(t, 1, notifier.countKind(entities.NotificationInfo))
}

func TestConnectFailureEntersErrorState(t *testing.T) {
	svc, notifier := newHardwareFixture(t)
	svc.SetOutcomeSource(always(0.99)) // guaranteed failure

	svc.SetSelectedModel(entities.ModelSmartKnitter)
	require.NoError(t, svc.Connect(entities.TransportWifi))
	waitForState(t, svc, entities.ConnectionError)

	snap := svc.Snapshot()
	assert.Contains(t, snap.LastError, "ClawLab Smart Knitter")
	assert.Equal(t, 1, notifier.countCode(entities.CodeConnectionFailed))

	// From Error, connect may be retried directly.
	svc.SetOutcomeSource(always(0.0))
	require.NoError(t, svc.Connect(entities.TransportWifi))
	waitForState(t, svc, entities.ConnectionConnected)
}

func TestConnectSingleFlight(t *testing.T) {
	svc, notifier := newHardwareFixture(t)
	svc.SetTimings(time.Millisecond, 100*time.Millisecond)
	svc.SetOutcomeSource(always(0.0))

	svc.SetSelectedModel(entities.ModelYarnSpinner)
	require.NoError(t, svc.Connect(entities.TransportUSB))

	before := svc.Snapshot()
	errCount := notifier.count()
	err := svc.Connect(entities.TransportCable)
	assert.ErrorIs(t, err, entities.ErrCommandInFlight)

	after := svc.Snapshot()
	assert.Equal(t, before.LastError, after.LastError)
	assert.Equal(t, before.Transport, after.Transport, "rejected connect must not capture its transport")
	assert.Equal(t, errCount, notifier.count())

	waitForState(t, svc, entities.ConnectionConnected)
}

func TestDisconnectDuringConnectingDiscardsCompletion(t *testing.T) {
	svc, notifier := newHardwareFixture(t)
	svc.SetTimings(time.Millisecond, 50*time.Millisecond)
	svc.SetOutcomeSource(always(0.0))

	svc.SetSelectedModel(entities.ModelYarnSpinner)
	require.NoError(t, svc.Connect(entities.TransportBluetooth))
	svc.Disconnect()

	time.Sleep(100 * time.Millisecond)
	snap := svc.Snapshot()
	assert.Equal(t, entities.ConnectionIdle, snap.ConnectionState,
		"the in-flight connect completion must be discarded")
	assert.Zero(t, notifier.countKind(entities.NotificationSuccess))
}

func TestSetSelectedModelGating(t *testing.T) {
	svc, _ := newHardwareFixture(t)
	svc.SetOutcomeSource(always(0.0))

	// Unknown models are ignored.
	svc.SetSelectedModel(entities.DeviceModel("ClawLab Toaster"))
	assert.Nil(t, svc.Snapshot().SelectedModel)

	svc.SetSelectedModel(entities.ModelPatternPrinter)
	snap := svc.Snapshot()
	require.NotNil(t, snap.SelectedModel)
	assert.Equal(t, entities.ConnectionSelected, snap.ConnectionState)

	require.NoError(t, svc.Connect(entities.TransportBluetooth))
	waitForState(t, svc, entities.ConnectionConnected)

	// Selection is locked while connected.
	svc.SetSelectedModel(entities.ModelYarnSpinner)
	assert.Equal(t, entities.ModelPatternPrinter, *svc.Snapshot().SelectedModel)
}

func TestParameterWriteWhileDisconnected(t *testing.T) {
	svc, notifier := newHardwareFixture(t)

	svc.UpdateParameter(entities.ParamTension, -5)
	assert.Equal(t, 0, svc.Snapshot().Parameters.Tension)
	assert.Zero(t, notifier.count(), "disconnected writes are stored but never notified")
}

func TestRefreshStatus(t *testing.T) {
	svc, _ := newHardwareFixture(t)
	svc.SetOutcomeSource(always(0.0))

	assert.ErrorIs(t, svc.RefreshStatus(), entities.ErrNotConnected)

	svc.SetSelectedModel(entities.ModelYarnSpinner)
	require.NoError(t, svc.Connect(entities.TransportBluetooth))
	waitForState(t, svc, entities.ConnectionConnected)

	first := *svc.Snapshot().Status.LastUpdatedAt
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, svc.RefreshStatus())
	assert.True(t, svc.Snapshot().Status.LastUpdatedAt.After(first))
}

func TestDialogDismissFromErrorReturnsToIdle(t *testing.T) {
	svc, _ := newHardwareFixture(t)
	svc.SetOutcomeSource(always(0.99))

	svc.SetSelectedModel(entities.ModelYarnSpinner)
	require.NoError(t, svc.Connect(entities.TransportBluetooth))
	waitForState(t, svc, entities.ConnectionError)

	svc.SetDialogVisible(false)
	snap := svc.Snapshot()
	assert.Equal(t, entities.ConnectionIdle, snap.ConnectionState)
	assert.Empty(t, snap.LastError)
	assert.False(t, snap.DialogVisible)
}
