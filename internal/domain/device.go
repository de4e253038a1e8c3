package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Device types inferred from vendor metadata.
const (
	DeviceTypeLight      = "light"
	DeviceTypeSwitch     = "switch"
	DeviceTypeThermostat = "thermostat"
	DeviceTypeSensor     = "sensor"
	DeviceTypeUnknown    = "unknown"
)

// Normalized capability names shared by all adapters.
const (
	CapabilityOnOff       = "on_off"
	CapabilityBrightness  = "brightness"
	CapabilityColor       = "color"
	CapabilityTemperature = "temperature"
)

// DeviceState is the normalized state shape every adapter produces and
// consumes. Power is always present; the remaining fields are null when
// the device does not report them.
type DeviceState struct {
	Power       bool     `json:"power"`
	Brightness  *int     `json:"brightness"`
	Color       any      `json:"color"`
	Temperature *float64 `json:"temperature"`
}

// Patch lifts a full state into a patch with every known field present.
func (s DeviceState) Patch() StatePatch {
	p := StatePatch{Power: &s.Power}
	if s.Brightness != nil {
		p.Brightness = s.Brightness
	}
	if s.Color != nil {
		p.Color = s.Color
	}
	if s.Temperature != nil {
		p.Temperature = s.Temperature
	}
	return p
}

// StatePatch is a partial DeviceState. Adapters translate only the
// fields that are set; vendor specific rules decide how many commands
// a patch becomes.
type StatePatch struct {
	Power       *bool    `json:"power,omitempty"`
	Brightness  *int     `json:"brightness,omitempty"`
	Color       any      `json:"color,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// IsEmpty reports whether the patch carries no fields at all.
func (p StatePatch) IsEmpty() bool {
	return p.Power == nil && p.Brightness == nil && p.Color == nil && p.Temperature == nil
}

// SmartDevice is one physical or virtual endpoint reported by a vendor
// cloud, or created manually. (PlatformID, DeviceID) is the identity
// reconciliation sync upserts on; sync never deletes rows, only
// explicit deletion does.
type SmartDevice struct {
	ID           int64                             `json:"id,string" gorm:"primaryKey"`
	PlatformID   *int64                            `json:"platform_id,string" gorm:"index;uniqueIndex:idx_platform_device"`
	Name         string                            `json:"name"`
	DeviceID     string                            `json:"device_id" gorm:"uniqueIndex:idx_platform_device"`
	DeviceType   string                            `json:"device_type"`
	Room         *string                           `json:"room"`
	IsActive     bool                              `json:"is_active"`
	Capabilities datatypes.JSONSlice[string]       `json:"capabilities"`
	LastState    datatypes.JSONType[DeviceState]   `json:"last_state"`
	LastUpdated  *time.Time                        `json:"last_updated"`
	Settings     datatypes.JSONMap                 `json:"settings"`
	CreatedAt    time.Time                         `json:"created_at"`
	UpdatedAt    time.Time                         `json:"updated_at"`
}

// TableName returns table name
func (SmartDevice) TableName() string {
	return "smart_devices"
}

// HasCapability reports whether the device advertises the capability.
func (d *SmartDevice) HasCapability(name string) bool {
	for _, c := range d.Capabilities {
		if c == name {
			return true
		}
	}
	return false
}
