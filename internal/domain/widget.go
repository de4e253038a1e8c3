package domain

import (
	"time"

	"gorm.io/datatypes"
)

// SmartDeviceWidgetConfig holds the ordered device ids shown by the
// dashboard smart home widget. Devices referenced here may have been
// deleted since; consumers must filter by existence.
type SmartDeviceWidgetConfig struct {
	ID        int64                      `json:"id,string" gorm:"primaryKey"`
	Name      string                     `json:"name"`
	Devices   datatypes.JSONSlice[int64] `json:"devices"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// TableName returns table name
func (SmartDeviceWidgetConfig) TableName() string {
	return "smart_device_widget_configs"
}
