package entities

import (
	"errors"
	"time"
)

// HardwareLink domain errors.
var (
	ErrNoDevices       = errors.New("no devices found")
	ErrNoModelSelected = errors.New("please select a hardware model")
	ErrNotConnected    = errors.New("hardware is not connected")
)

// DeviceModel identifies a ClawLab textile hardware product. The set is a
// compile-time constant shared with test fixtures.
type DeviceModel string

const (
	ModelYarnSpinner    DeviceModel = "ClawLab Yarn Spinner"
	ModelSmartKnitter   DeviceModel = "ClawLab Smart Knitter"
	ModelPatternPrinter DeviceModel = "ClawLab Pattern Printer"
)

// AvailableDeviceModels returns the fixed device catalog in scan order.
func AvailableDeviceModels() []DeviceModel {
	return []DeviceModel{ModelYarnSpinner, ModelSmartKnitter, ModelPatternPrinter}
}

// ConnectionState is one step of the hardware connection lifecycle.
type ConnectionState string

const (
	ConnectionIdle        ConnectionState = "idle"
	ConnectionDiscovering ConnectionState = "discovering"
	ConnectionSelected    ConnectionState = "selected"
	ConnectionConnecting  ConnectionState = "connecting"
	ConnectionConnected   ConnectionState = "connected"
	ConnectionError       ConnectionState = "error"
)

// Transport tags how the user chose to reach the device. Informational
// only; it does not change connection semantics.
type Transport string

const (
	TransportBluetooth Transport = "bluetooth"
	TransportWifi      Transport = "wifi"
	TransportUSB       Transport = "usb"
	TransportCable     Transport = "cable"
)

// Valid reports whether the transport is a known tag.
func (t Transport) Valid() bool {
	switch t {
	case TransportBluetooth, TransportWifi, TransportUSB, TransportCable:
		return true
	}
	return false
}

// ParameterName names a tunable hardware parameter.
type ParameterName string

const (
	ParamSpeed       ParameterName = "speed"
	ParamTemperature ParameterName = "temperature"
	ParamTension     ParameterName = "tension"
)

// ParameterRange is the closed valid interval for one parameter.
type ParameterRange struct {
	Min int
	Max int
}

// Clamp pins v into the range.
func (r ParameterRange) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// ParameterRanges holds the valid interval per parameter. Shared with test
// fixtures; do not change without coordinating firmware.
var ParameterRanges = map[ParameterName]ParameterRange{
	ParamSpeed:       {Min: 0, Max: 100},
	ParamTemperature: {Min: 0, Max: 250},
	ParamTension:     {Min: 0, Max: 100},
}

// HardwareParameters are the user-tunable device settings.
type HardwareParameters struct {
	Speed       int `json:"speed"`
	Temperature int `json:"temperature"`
	Tension     int `json:"tension"`
}

// DefaultHardwareParameters returns the factory settings.
func DefaultHardwareParameters() HardwareParameters {
	return HardwareParameters{Speed: 50, Temperature: 120, Tension: 30}
}

// Get returns the stored value for name.
func (p *HardwareParameters) Get(name ParameterName) (int, bool) {
	switch name {
	case ParamSpeed:
		return p.Speed, true
	case ParamTemperature:
		return p.Temperature, true
	case ParamTension:
		return p.Tension, true
	}
	return 0, false
}

// Set clamps value to the parameter's range and stores it. It returns the
// stored value and whether it differs from the previous one.
func (p *HardwareParameters) Set(name ParameterName, value int) (int, bool) {
	r, ok := ParameterRanges[name]
	if !ok {
		return 0, false
	}
	value = r.Clamp(value)
	switch name {
	case ParamSpeed:
		if p.Speed == value {
			return value, false
		}
		p.Speed = value
	case ParamTemperature:
		if p.Temperature == value {
			return value, false
		}
		p.Temperature = value
	case ParamTension:
		if p.Tension == value {
			return value, false
		}
		p.Tension = value
	}
	return value, true
}

// HardwareStatus is the read-only telemetry snapshot of the device.
type HardwareStatus struct {
	BatteryLevel    int        `json:"battery_level"`
	Temperature     int        `json:"temperature"`
	FirmwareVersion string     `json:"firmware_version"`
	LastUpdatedAt   *time.Time `json:"last_updated_at"`
}

// DefaultHardwareStatus returns the telemetry placeholder shown before the
// first successful connection.
func DefaultHardwareStatus() HardwareStatus {
	return HardwareStatus{
		BatteryLevel:    75,
		Temperature:     28,
		FirmwareVersion: "1.2.3",
		LastUpdatedAt:   nil,
	}
}
