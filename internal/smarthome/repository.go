package smarthome

import (
	"context"

	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
)

// PlatformRepository handles database operations for vendor platform
// accounts
type PlatformRepository interface {
	// Create inserts a new platform record
	Create(ctx context.Context, platform *domain.SmartHomePlatform) error

	// Update applies the given column values and returns the updated record
	Update(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartHomePlatform, error)

	// GetByID retrieves a platform by ID
	GetByID(ctx context.Context, id int64) (*domain.SmartHomePlatform, error)

	// GetBySlug retrieves a platform by vendor slug
	GetBySlug(ctx context.Context, slug string) (*domain.SmartHomePlatform, error)

	// List retrieves all platform records
	List(ctx context.Context) ([]*domain.SmartHomePlatform, error)

	// Delete removes a platform record
	Delete(ctx context.Context, id int64) error
}

// DeviceRepository handles database operations for smart devices
type DeviceRepository interface {
	// Create inserts a new device record
	Create(ctx context.Context, device *domain.SmartDevice) error

	// Update applies the given column values and returns the updated record
	Update(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartDevice, error)

	// GetByID retrieves a device by ID
	GetByID(ctx context.Context, id int64) (*domain.SmartDevice, error)

	// GetByPlatformAndDeviceID retrieves a device by its sync identity
	GetByPlatformAndDeviceID(ctx context.Context, platformID int64, deviceID string) (*domain.SmartDevice, error)

	// List retrieves all device records
	List(ctx context.Context) ([]*domain.SmartDevice, error)

	// ListByPlatform retrieves all devices linked to a platform
	ListByPlatform(ctx context.Context, platformID int64) ([]*domain.SmartDevice, error)

	// Delete removes a device record
	Delete(ctx context.Context, id int64) error
}

// WidgetConfigRepository handles database operations for dashboard
// widget configurations
type WidgetConfigRepository interface {
	Create(ctx context.Context, cfg *domain.SmartDeviceWidgetConfig) error
	Update(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartDeviceWidgetConfig, error)
	GetByID(ctx context.Context, id int64) (*domain.SmartDeviceWidgetConfig, error)
	List(ctx context.Context) ([]*domain.SmartDeviceWidgetConfig, error)
	Delete(ctx context.Context, id int64) error
}

// GormPlatformRepository is the GORM implementation of PlatformRepository
type GormPlatformRepository struct {
	db *gorm.DB
}

// NewGormPlatformRepository creates a new GORM-based repository
func NewGormPlatformRepository(db *gorm.DB) *GormPlatformRepository {
	return &GormPlatformRepository{db: db}
}

func (r *GormPlatformRepository) Create(ctx context.Context, platform *domain.SmartHomePlatform) error {
	return r.db.WithContext(ctx).Create(platform).Error
}

func (r *GormPlatformRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartHomePlatform, error) {
	err := r.db.WithContext(ctx).
		Model(&domain.SmartHomePlatform{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GormPlatformRepository) GetByID(ctx context.Context, id int64) (*domain.SmartHomePlatform, error) {
	var platform domain.SmartHomePlatform
	err := r.db.WithContext(ctx).First(&platform, id).Error
	if err != nil {
		return nil, err
	}
	return &platform, nil
}

func (r *GormPlatformRepository) GetBySlug(ctx context.Context, slug string) (*domain.SmartHomePlatform, error) {
	var platform domain.SmartHomePlatform
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&platform).Error
	if err != nil {
		return nil, err
	}
	return &platform, nil
}

func (r *GormPlatformRepository) List(ctx context.Context) ([]*domain.SmartHomePlatform, error) {
	var platforms []*domain.SmartHomePlatform
	err := r.db.WithContext(ctx).Order("name ASC").Find(&platforms).Error
	return platforms, err
}

func (r *GormPlatformRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.SmartHomePlatform{}, id).Error
}

// GormDeviceRepository is the GORM implementation of DeviceRepository
type GormDeviceRepository struct {
	db *gorm.DB
}

// NewGormDeviceRepository creates a new GORM-based repository
func NewGormDeviceRepository(db *gorm.DB) *GormDeviceRepository {
	return &GormDeviceRepository{db: db}
}

func (r *GormDeviceRepository) Create(ctx context.Context, device *domain.SmartDevice) error {
	return r.db.WithContext(ctx).Create(device).Error
}

func (r *GormDeviceRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartDevice, error) {
	err := r.db.WithContext(ctx).
		Model(&domain.SmartDevice{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GormDeviceRepository) GetByID(ctx context.Context, id int64) (*domain.SmartDevice, error) {
	var device domain.SmartDevice
	err := r.db.WithContext(ctx).First(&device, id).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *GormDeviceRepository) GetByPlatformAndDeviceID(ctx context.Context, platformID int64, deviceID string) (*domain.SmartDevice, error) {
	var device domain.SmartDevice
	err := r.db.WithContext(ctx).
		Where("platform_id = ? AND device_id = ?", platformID, deviceID).
		First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

func (r *GormDeviceRepository) List(ctx context.Context) ([]*domain.SmartDevice, error) {
	var devices []*domain.SmartDevice
	err := r.db.WithContext(ctx).Order("name ASC").Find(&devices).Error
	return devices, err
}

func (r *GormDeviceRepository) ListByPlatform(ctx context.Context, platformID int64) ([]*domain.SmartDevice, error) {
	var devices []*domain.SmartDevice
	err := r.db.WithContext(ctx).
		Where("platform_id = ?", platformID).
		Order("name ASC").
		Find(&devices).Error
	return devices, err
}

func (r *GormDeviceRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.SmartDevice{}, id).Error
}

// GormWidgetConfigRepository is the GORM implementation of
// WidgetConfigRepository
type GormWidgetConfigRepository struct {
	db *gorm.DB
}

// NewGormWidgetConfigRepository creates a new GORM-based repository
func NewGormWidgetConfigRepository(db *gorm.DB) *GormWidgetConfigRepository {
	return &GormWidgetConfigRepository{db: db}
}

func (r *GormWidgetConfigRepository) Create(ctx context.Context, cfg *domain.SmartDeviceWidgetConfig) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *GormWidgetConfigRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartDeviceWidgetConfig, error) {
	err := r.db.WithContext(ctx).
		Model(&domain.SmartDeviceWidgetConfig{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *GormWidgetConfigRepository) GetByID(ctx context.Context, id int64) (*domain.SmartDeviceWidgetConfig, error) {
	var cfg domain.SmartDeviceWidgetConfig
	err := r.db.WithContext(ctx).First(&cfg, id).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *GormWidgetConfigRepository) List(ctx context.Context) ([]*domain.SmartDeviceWidgetConfig, error) {
	var cfgs []*domain.SmartDeviceWidgetConfig
	err := r.db.WithContext(ctx).Order("name ASC").Find(&cfgs).Error
	return cfgs, err
}

func (r *GormWidgetConfigRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&domain.SmartDeviceWidgetConfig{}, id).Error
}
