package usecase

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/entities"
	"github.com/clawlab/companion/domain/repositories"
)

const (
	defaultDiscoveryDelay = 1500 * time.Millisecond
	defaultConnectDelay   = 2 * time.Second
	connectSuccessRate    = 0.8
)

// HardwareSnapshot is the HardwareLink core read model.
type HardwareSnapshot struct {
	ConnectionState entities.ConnectionState    `json:"connection_state"`
	IsConnecting    bool                        `json:"is_connecting"`
	IsConnected     bool                        `json:"is_connected"`
	AvailableModels []entities.DeviceModel      `json:"available_models"`
	SelectedModel   *entities.DeviceModel       `json:"selected_model"`
	Transport       entities.Transport          `json:"transport,omitempty"`
	Parameters      entities.HardwareParameters `json:"parameters"`
	Status          entities.HardwareStatus     `json:"status"`
	LastError       string                      `json:"last_error,omitempty"`
	DialogVisible   bool                        `json:"dialog_visible"`
}

// HardwareService owns the device connection state machine, the tunable
// parameters and the telemetry snapshot. The link is volatile: nothing
// here is persisted and a restart always begins at Idle.
//
// Discovery and connection complete asynchronously. Each in-flight attempt
// carries a generation counter; a completion whose generation no longer
// matches (the dialog was dismissed, the user disconnected) is dropped.
type HardwareService struct {
	mu       sync.Mutex
	notifier repositories.Notifier
	logger   *zap.Logger

	state         entities.ConnectionState
	catalog       []entities.DeviceModel
	available     []entities.DeviceModel
	selectedModel *entities.DeviceModel
	transport     entities.Transport
	parameters    entities.HardwareParameters
	status        entities.HardwareStatus
	lastError     string
	dialogVisible bool

	// generation invalidates stale async completions.
	generation uint64

	discoveryDelay time.Duration
	connectDelay   time.Duration
	outcome        func() float64
	now            func() time.Time
}

// NewHardwareService creates the HardwareLink core at Idle with factory
// parameters and placeholder telemetry.
func NewHardwareService(notifier repositories.Notifier, logger *zap.Logger) *HardwareService {
	return &HardwareService{
		notifier:       notifier,
		logger:         logger,
		state:          entities.ConnectionIdle,
		catalog:        entities.AvailableDeviceModels(),
		parameters:     entities.DefaultHardwareParameters(),
		status:         entities.DefaultHardwareStatus(),
		discoveryDelay: defaultDiscoveryDelay,
		connectDelay:   defaultConnectDelay,
		outcome:        rand.Float64,
		now:            time.Now,
	}
}

// Snapshot returns a consistent copy of the read model.
func (h *HardwareService) Snapshot() HardwareSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()

	available := make([]entities.DeviceModel, len(h.available))
	copy(available, h.available)

	var selected *entities.DeviceModel
	if h.selectedModel != nil {
		m := *h.selectedModel
		selected = &m
	}

	status := h.status
	if h.status.LastUpdatedAt != nil {
		t := *h.status.LastUpdatedAt
		status.LastUpdatedAt = &t
	}

	return HardwareSnapshot{
		ConnectionState: h.state,
		IsConnecting:    h.state == entities.ConnectionConnecting,
		IsConnected:     h.state == entities.ConnectionConnected,
		AvailableModels: available,
		SelectedModel:   selected,
		Transport:       h.transport,
		Parameters:      h.parameters,
		Status:          status,
		LastError:       h.lastError,
		DialogVisible:   h.dialogVisible,
	}
}

// OpenConnectionDialog shows the connection dialog and, from Idle, starts
// a simulated device scan. The scan completes in the background; its
// result is dropped if the state has moved past Discovering by then.
func (h *HardwareService) OpenConnectionDialog() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dialogVisible = true
	if h.state != entities.ConnectionIdle {
		return
	}

	h.state = entities.ConnectionDiscovering
	h.lastError = ""
	gen := h.generation
	h.logger.Info("Device scan started")

	go func() {
		time.Sleep(h.discoveryDelay)
		h.completeDiscovery(gen)
	}()
}

func (h *HardwareService) completeDiscovery(gen uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.generation || h.state != entities.ConnectionDiscovering {
		h.logger.Debug("Dropping stale discovery result")
		return
	}

	if len(h.catalog) == 0 {
		h.state = entities.ConnectionIdle
		h.lastError = entities.ErrNoDevices.Error()
		h.notifier.Notify(entities.Notification{
			Kind:  entities.NotificationError,
			Title: entities.ErrNoDevices.Error(),
			Code:  entities.CodeNoDevices,
		})
		return
	}

	h.available = append([]entities.DeviceModel(nil), h.catalog...)
	if h.selectedModel == nil {
		m := h.available[0]
		h.selectedModel = &m
	}
	h.state = entities.ConnectionSelected
	h.logger.Info("Device scan completed",
		zap.Int("devices", len(h.available)),
		zap.String("selected", string(*h.selectedModel)))
}

// SetSelectedModel picks the device to connect to. Ignored silently while
// Connecting or Connected, and for models outside the catalog.
func (h *HardwareService) SetSelectedModel(model entities.DeviceModel) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == entities.ConnectionConnecting || h.state == entities.ConnectionConnected {
		return
	}
	if !h.inCatalog(model) {
		return
	}

	h.selectedModel = &model
	if h.state == entities.ConnectionIdle || h.state == entities.ConnectionError {
		h.state = entities.ConnectionSelected
	}
}

func (h *HardwareService) inCatalog(model entities.DeviceModel) bool {
	for _, m := range h.catalog {
		if m == model {
			return true
		}
	}
	return false
}

// Connect starts a simulated connection attempt to the selected model.
// The transport tag is captured for display only. Without a selected model
// it notifies once and does not transition; while already Connecting it is
// rejected without touching state.
func (h *HardwareService) Connect(transport entities.Transport) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == entities.ConnectionConnecting {
		return entities.ErrCommandInFlight
	}
	if h.state == entities.ConnectionConnected {
		return entities.ErrCommandInFlight
	}

	if h.selectedModel == nil {
		h.lastError = entities.ErrNoModelSelected.Error()
		h.notifier.Notify(entities.Notification{
			Kind:  entities.NotificationError,
			Title: entities.ErrNoModelSelected.Error(),
			Code:  entities.CodeNoModelSelected,
		})
		return entities.ErrNoModelSelected
	}

	if transport.Valid() {
		h.transport = transport
	}
	h.state = entities.ConnectionConnecting
	h.lastError = ""
	gen := h.generation
	model := *h.selectedModel
	h.logger.Info("Connecting to hardware",
		zap.String("model", string(model)),
		zap.String("transport", string(h.transport)))

	go func() {
		time.Sleep(h.connectDelay)
		h.completeConnect(gen, model)
	}()
	return nil
}

func (h *HardwareService) completeConnect(gen uint64, model entities.DeviceModel) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if gen != h.generation || h.state != entities.ConnectionConnecting {
		h.logger.Debug("Dropping stale connect result", zap.String("model", string(model)))
		return
	}

	if h.outcome() >= connectSuccessRate {
		h.state = entities.ConnectionError
		h.lastError = fmt.Sprintf("Could not establish a connection with %s.", model)
		h.logger.Warn("Hardware connection failed", zap.String("model", string(model)))
		h.notifier.Notify(entities.Notification{
			Kind:        entities.NotificationError,
			Title:       "Connection error",
			Description: h.lastError,
			Code:        entities.CodeConnectionFailed,
		})
		return
	}

	h.state = entities.ConnectionConnected
	now := h.now()
	h.status.LastUpdatedAt = &now
	h.logger.Info("Hardware connected", zap.String("model", string(model)))
	h.notifier.Notify(entities.Notification{
		Kind:  entities.NotificationSuccess,
		Title: fmt.Sprintf("Successfully connected to %s!", model),
	})
}

// Disconnect returns the link to Idle from any state, discarding any
// in-flight connect or discovery completion. The selected model is kept
// for the next attempt. Disconnecting while already Idle is a no-op.
func (h *HardwareService) Disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == entities.ConnectionIdle {
		return
	}

	wasConnected := h.state == entities.ConnectionConnected
	h.state = entities.ConnectionIdle
	h.lastError = ""
	h.generation++

	h.logger.Info("Hardware disconnected")
	if wasConnected {
		h.notifier.Notify(entities.Notification{
			Kind:  entities.NotificationInfo,
			Title: "Hardware disconnected",
		})
	}
}

// SetDialogVisible toggles the connection dialog. Closing it does not
// cancel an in-flight connect; closing it from Error returns to Idle so
// the next open starts a fresh scan.
func (h *HardwareService) SetDialogVisible(visible bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dialogVisible = visible
	if !visible && h.state == entities.ConnectionError {
		h.state = entities.ConnectionIdle
		h.lastError = ""
	}
}

// UpdateParameter clamps value to the parameter's range and stores it.
// Parameters may be tuned while disconnected; only writes performed while
// connected that actually change the value are notified.
func (h *HardwareService) UpdateParameter(name entities.ParameterName, value int) {
	h.mu.Lock()
	stored, changed := h.parameters.Set(name, value)
	connected := h.state == entities.ConnectionConnected
	h.mu.Unlock()

	if connected && changed {
		h.notifier.Notify(entities.Notification{
			Kind:  entities.NotificationSuccess,
			Title: fmt.Sprintf("Updated %s to %d", name, stored),
		})
	}
}

// RefreshStatus re-reads the telemetry snapshot while connected. It
// returns ErrNotConnected otherwise, without notifying: the view gates on
// the connection flag.
func (h *HardwareService) RefreshStatus() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != entities.ConnectionConnected {
		return entities.ErrNotConnected
	}

	now := h.now()
	h.status.LastUpdatedAt = &now
	return nil
}

// SetTimings overrides the simulated scan and connect latencies.
func (h *HardwareService) SetTimings(discovery, connect time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.discoveryDelay = discovery
	h.connectDelay = connect
}

// SetOutcomeSource overrides the randomness driving connection outcomes.
func (h *HardwareService) SetOutcomeSource(f func() float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outcome = f
}

// SetCatalog overrides the device catalog yielded by discovery.
func (h *HardwareService) SetCatalog(models []entities.DeviceModel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.catalog = append([]entities.DeviceModel(nil), models...)
}
