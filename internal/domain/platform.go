package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Supported platform slugs. The adapter factory dispatches on these.
const (
	PlatformAlexa = "alexa"
	PlatformGovee = "govee"
	PlatformTuya  = "tuya"
)

// SmartHomePlatform represents one connected vendor cloud account.
// Credentials is an opaque vendor specific blob: bearer+refresh token
// pair (alexa), a static api key (govee), or client id/secret/region
// (tuya). Disconnecting clears credentials but keeps the record.
type SmartHomePlatform struct {
	ID          int64             `json:"id,string" gorm:"primaryKey"`
	Name        string            `json:"name"`
	Slug        string            `json:"slug" gorm:"uniqueIndex"`
	Description string            `json:"description"`
	IsActive    bool              `json:"is_active"`
	Credentials datatypes.JSONMap `json:"credentials"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TableName returns table name
func (SmartHomePlatform) TableName() string {
	return "smart_home_platforms"
}

// HasCredentials reports whether any credentials blob is stored.
func (p *SmartHomePlatform) HasCredentials() bool {
	return len(p.Credentials) > 0
}
