package smarthome

import (
	"context"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
	"github.com/iamtommetcalfe/encom-smart-home/pkg/common"
)

// ErrWidgetNotFound is returned when a widget configuration id does
// not exist.
var ErrWidgetNotFound = errors.New("widget configuration not found")

// WidgetService manages dashboard widget configurations and resolves
// their device lists.
type WidgetService struct {
	widgets WidgetConfigRepository
	devices DeviceRepository
}

func NewWidgetService(widgets WidgetConfigRepository, devices DeviceRepository) *WidgetService {
	return &WidgetService{widgets: widgets, devices: devices}
}

func (s *WidgetService) CreateWidget(ctx context.Context, cfg *domain.SmartDeviceWidgetConfig) error {
	if cfg.ID == 0 {
		cfg.ID = common.UUIDint64()
	}
	return s.widgets.Create(ctx, cfg)
}

func (s *WidgetService) UpdateWidget(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartDeviceWidgetConfig, error) {
	cfg, err := s.widgets.Update(ctx, id, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWidgetNotFound
	}
	return cfg, err
}

func (s *WidgetService) GetWidget(ctx context.Context, id int64) (*domain.SmartDeviceWidgetConfig, error) {
	cfg, err := s.widgets.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWidgetNotFound
	}
	return cfg, err
}

func (s *WidgetService) ListWidgets(ctx context.Context) ([]*domain.SmartDeviceWidgetConfig, error) {
	return s.widgets.List(ctx)
}

func (s *WidgetService) DeleteWidget(ctx context.Context, id int64) error {
	return s.widgets.Delete(ctx, id)
}

// GetDevicesForWidget resolves the widget's device id list into device
// records, preserving order and silently dropping ids whose devices
// were deleted after being added.
func (s *WidgetService) GetDevicesForWidget(ctx context.Context, id int64) ([]*domain.SmartDevice, error) {
	cfg, err := s.GetWidget(ctx, id)
	if err != nil {
		return nil, err
	}

	devices := make([]*domain.SmartDevice, 0, len(cfg.Devices))
	for _, deviceID := range cfg.Devices {
		device, err := s.devices.GetByID(ctx, deviceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// AddDeviceToWidget appends a device to the widget once; adding an id
// already present is a no-op.
func (s *WidgetService) AddDeviceToWidget(ctx context.Context, widgetID, deviceID int64) (*domain.SmartDeviceWidgetConfig, error) {
	cfg, err := s.GetWidget(ctx, widgetID)
	if err != nil {
		return nil, err
	}
	if _, err := s.devices.GetByID(ctx, deviceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	for _, existing := range cfg.Devices {
		if existing == deviceID {
			return cfg, nil
		}
	}

	updated := append([]int64{}, cfg.Devices...)
	updated = append(updated, deviceID)
	return s.UpdateWidget(ctx, widgetID, map[string]interface{}{
		"devices": datatypes.NewJSONSlice(updated),
	})
}

// RemoveDeviceFromWidget drops a device id from the widget list.
func (s *WidgetService) RemoveDeviceFromWidget(ctx context.Context, widgetID, deviceID int64) (*domain.SmartDeviceWidgetConfig, error) {
	cfg, err := s.GetWidget(ctx, widgetID)
	if err != nil {
		return nil, err
	}

	updated := make([]int64, 0, len(cfg.Devices))
	for _, existing := range cfg.Devices {
		if existing != deviceID {
			updated = append(updated, existing)
		}
	}
	return s.UpdateWidget(ctx, widgetID, map[string]interface{}{
		"devices": datatypes.NewJSONSlice(updated),
	})
}
