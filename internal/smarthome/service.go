package smarthome

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
	"github.com/iamtommetcalfe/encom-smart-home/internal/smarthome/adapters"
	"github.com/iamtommetcalfe/encom-smart-home/pkg/common"
)

// SyncResult summarizes one reconciliation run against a vendor cloud.
type SyncResult struct {
	PlatformID int64 `json:"platform_id,string"`
	Created    int   `json:"created"`
	Updated    int   `json:"updated"`
	Total      int   `json:"total"`
}

// SmartHomeService owns platform and device lifecycle: CRUD, vendor
// sync, and command dispatch through the adapter layer.
type SmartHomeService struct {
	platforms PlatformRepository
	devices   DeviceRepository
	provider  AdapterProvider
}

// NewSmartHomeService creates the service.
func NewSmartHomeService(platforms PlatformRepository, devices DeviceRepository, provider AdapterProvider) *SmartHomeService {
	return &SmartHomeService{platforms: platforms, devices: devices, provider: provider}
}

// ---- platforms ----

func (s *SmartHomeService) CreatePlatform(ctx context.Context, platform *domain.SmartHomePlatform) error {
	if platform.ID == 0 {
		platform.ID = common.UUIDint64()
	}
	return s.platforms.Create(ctx, platform)
}

func (s *SmartHomeService) UpdatePlatform(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartHomePlatform, error) {
	platform, err := s.platforms.Update(ctx, id, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlatformNotFound
	}
	return platform, err
}

func (s *SmartHomeService) GetPlatform(ctx context.Context, id int64) (*domain.SmartHomePlatform, error) {
	platform, err := s.platforms.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlatformNotFound
	}
	return platform, err
}

func (s *SmartHomeService) GetPlatformBySlug(ctx context.Context, slug string) (*domain.SmartHomePlatform, error) {
	platform, err := s.platforms.GetBySlug(ctx, slug)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPlatformNotFound
	}
	return platform, err
}

func (s *SmartHomeService) ListPlatforms(ctx context.Context) ([]*domain.SmartHomePlatform, error) {
	return s.platforms.List(ctx)
}

func (s *SmartHomeService) DeletePlatform(ctx context.Context, id int64) error {
	return s.platforms.Delete(ctx, id)
}

// DisconnectPlatform clears the stored credentials and deactivates the
// platform. The record and its synced devices stay; reconnecting later
// links back to the same rows.
func (s *SmartHomeService) DisconnectPlatform(ctx context.Context, id int64) (*domain.SmartHomePlatform, error) {
	return s.UpdatePlatform(ctx, id, map[string]interface{}{
		"credentials": datatypes.JSONMap{},
		"is_active":   false,
	})
}

// ---- sync ----

// ConnectAndSyncPlatform connects the platform's vendor adapter, pulls
// the full device list and reconciles it into storage. An empty vendor
// list counts as failure; sync creates and updates rows but never
// deletes them.
func (s *SmartHomeService) ConnectAndSyncPlatform(ctx context.Context, platformID int64) (*SyncResult, error) {
	adapter, platform, err := s.provider.AdapterFor(ctx, platformID)
	if err != nil {
		return nil, err
	}

	return s.reconcile(ctx, platform, adapter.GetDevices(ctx))
}

// RefreshPlatformDevices re-pulls the device list for an already
// connected platform and reconciles it.
func (s *SmartHomeService) RefreshPlatformDevices(ctx context.Context, platformID int64) (*SyncResult, error) {
	adapter, platform, err := s.provider.AdapterFor(ctx, platformID)
	if err != nil {
		return nil, err
	}

	return s.reconcile(ctx, platform, adapter.RefreshDevices(ctx))
}

func (s *SmartHomeService) reconcile(ctx context.Context, platform *domain.SmartHomePlatform, rawDevices []adapters.RawDevice) (*SyncResult, error) {
	if len(rawDevices) == 0 {
		return nil, ErrNoDevices
	}

	result := &SyncResult{PlatformID: platform.ID, Total: len(rawDevices)}
	now := time.Now()

	for _, raw := range rawDevices {
		existing, err := s.devices.GetByPlatformAndDeviceID(ctx, platform.ID, raw.DeviceID)
		switch {
		case err == nil:
			// The vendor state always wins; the room is only updated
			// when the vendor reports one, so rooms assigned in the
			// dashboard survive syncs against vendors without room data.
			fields := map[string]interface{}{
				"name":         raw.Name,
				"device_type":  raw.DeviceType,
				"capabilities": datatypes.NewJSONSlice(raw.Capabilities),
				"last_state":   datatypes.NewJSONType(raw.LastState),
				"last_updated": now,
			}
			if raw.Room != nil {
				fields["room"] = *raw.Room
			}
			if _, err := s.devices.Update(ctx, existing.ID, fields); err != nil {
				zap.L().Error("smarthome: device update failed during sync",
					zap.Int64("device_id", existing.ID), zap.Error(err))
				continue
			}
			result.Updated++

		case errors.Is(err, gorm.ErrRecordNotFound):
			platformID := platform.ID
			lastUpdated := now
			device := &domain.SmartDevice{
				ID:           common.UUIDint64(),
				PlatformID:   &platformID,
				Name:         raw.Name,
				DeviceID:     raw.DeviceID,
				DeviceType:   raw.DeviceType,
				Room:         raw.Room,
				IsActive:     true,
				Capabilities: datatypes.NewJSONSlice(raw.Capabilities),
				LastState:    datatypes.NewJSONType(raw.LastState),
				LastUpdated:  &lastUpdated,
			}
			if err := s.devices.Create(ctx, device); err != nil {
				zap.L().Error("smarthome: device create failed during sync",
					zap.String("vendor_device_id", raw.DeviceID), zap.Error(err))
				continue
			}
			result.Created++

		default:
			return nil, err
		}
	}

	zap.L().Info("smarthome: platform sync finished",
		zap.Int64("platform_id", platform.ID),
		zap.String("slug", platform.Slug),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("total", result.Total))

	return result, nil
}

// ---- devices ----

func (s *SmartHomeService) CreateDevice(ctx context.Context, device *domain.SmartDevice) error {
	if device.ID == 0 {
		device.ID = common.UUIDint64()
	}
	return s.devices.Create(ctx, device)
}

func (s *SmartHomeService) UpdateDevice(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartDevice, error) {
	device, err := s.devices.Update(ctx, id, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	return device, err
}

func (s *SmartHomeService) GetDevice(ctx context.Context, id int64) (*domain.SmartDevice, error) {
	device, err := s.devices.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	return device, err
}

func (s *SmartHomeService) ListDevices(ctx context.Context) ([]*domain.SmartDevice, error) {
	return s.devices.List(ctx)
}

func (s *SmartHomeService) ListPlatformDevices(ctx context.Context, platformID int64) ([]*domain.SmartDevice, error) {
	return s.devices.ListByPlatform(ctx, platformID)
}

func (s *SmartHomeService) DeleteDevice(ctx context.Context, id int64) error {
	return s.devices.Delete(ctx, id)
}

// ToggleDevice inverts the device's power while keeping every other
// state field. For a device linked to a platform the full new state is
// pushed to the vendor first: a vendor rejection aborts the toggle,
// while a failure to even build the adapter only logs a warning and
// the local state still flips. Unlinked devices flip locally with no
// vendor call at all.
func (s *SmartHomeService) ToggleDevice(ctx context.Context, id int64) (*domain.SmartDevice, error) {
	device, err := s.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	newState := device.LastState.Data()
	newState.Power = !newState.Power

	if device.PlatformID != nil {
		adapter, _, err := s.provider.AdapterFor(ctx, *device.PlatformID)
		if err != nil {
			zap.L().Warn("smarthome: toggle proceeding without vendor",
				zap.Int64("device_id", device.ID), zap.Error(err))
		} else if !adapter.SetDeviceState(ctx, device.DeviceID, newState.Patch()) {
			return nil, ErrVendorRejected
		}
	}

	return s.persistState(ctx, device.ID, newState)
}

// ApplyDeviceState pushes a partial state change to the vendor and
// persists the merged result. Devices without a platform are updated
// locally only.
func (s *SmartHomeService) ApplyDeviceState(ctx context.Context, id int64, patch domain.StatePatch) (*domain.SmartDevice, error) {
	if patch.IsEmpty() {
		return s.GetDevice(ctx, id)
	}

	device, err := s.GetDevice(ctx, id)
	if err != nil {
		return nil, err
	}

	if device.PlatformID != nil {
		adapter, _, err := s.provider.AdapterFor(ctx, *device.PlatformID)
		if err != nil {
			return nil, err
		}
		if !adapter.SetDeviceState(ctx, device.DeviceID, patch) {
			return nil, ErrVendorRejected
		}
	}

	newState := device.LastState.Data()
	if patch.Power != nil {
		newState.Power = *patch.Power
	}
	if patch.Brightness != nil {
		newState.Brightness = patch.Brightness
	}
	if patch.Color != nil {
		newState.Color = patch.Color
	}
	if patch.Temperature != nil {
		newState.Temperature = patch.Temperature
	}

	return s.persistState(ctx, device.ID, newState)
}

func (s *SmartHomeService) persistState(ctx context.Context, id int64, state domain.DeviceState) (*domain.SmartDevice, error) {
	return s.UpdateDevice(ctx, id, map[string]interface{}{
		"last_state":   datatypes.NewJSONType(state),
		"last_updated": time.Now(),
	})
}
