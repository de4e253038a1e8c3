package smarthome

import (
	"context"
	"errors"
	"testing"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
)

type fakeWidgetRepo struct {
	items map[int64]*domain.SmartDeviceWidgetConfig
}

func newFakeWidgetRepo(cfgs ...*domain.SmartDeviceWidgetConfig) *fakeWidgetRepo {
	r := &fakeWidgetRepo{items: make(map[int64]*domain.SmartDeviceWidgetConfig)}
	for _, cfg := range cfgs {
		r.items[cfg.ID] = cfg
	}
	return r
}

func (r *fakeWidgetRepo) Create(_ context.Context, cfg *domain.SmartDeviceWidgetConfig) error {
	r.items[cfg.ID] = cfg
	return nil
}

func (r *fakeWidgetRepo) Update(_ context.Context, id int64, fields map[string]interface{}) (*domain.SmartDeviceWidgetConfig, error) {
	cfg, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			cfg.Name = value.(string)
		case "devices":
			cfg.Devices = value.(datatypes.JSONSlice[int64])
		}
	}
	return cfg, nil
}

func (r *fakeWidgetRepo) GetByID(_ context.Context, id int64) (*domain.SmartDeviceWidgetConfig, error) {
	cfg, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cfg, nil
}

func (r *fakeWidgetRepo) List(_ context.Context) ([]*domain.SmartDeviceWidgetConfig, error) {
	out := make([]*domain.SmartDeviceWidgetConfig, 0, len(r.items))
	for _, cfg := range r.items {
		out = append(out, cfg)
	}
	return out, nil
}

func (r *fakeWidgetRepo) Delete(_ context.Context, id int64) error {
	delete(r.items, id)
	return nil
}

func TestGetDevicesForWidgetFiltersDeleted(t *testing.T) {
	d1 := &domain.SmartDevice{ID: 1, Name: "Lamp"}
	d3 := &domain.SmartDevice{ID: 3, Name: "Plug"}
	widget := &domain.SmartDeviceWidgetConfig{
		ID:      100,
		Name:    "Living Room",
		Devices: datatypes.NewJSONSlice([]int64{1, 2, 3}),
	}
	svc := NewWidgetService(newFakeWidgetRepo(widget), newFakeDeviceRepo(d1, d3))

	devices, err := svc.GetDevicesForWidget(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2 (deleted id filtered)", len(devices))
	}
	if devices[0].ID != 1 || devices[1].ID != 3 {
		t.Errorf("device order = [%d, %d], want widget order preserved", devices[0].ID, devices[1].ID)
	}
}

func TestAddDeviceToWidget(t *testing.T) {
	device := &domain.SmartDevice{ID: 5, Name: "Lamp"}
	widget := &domain.SmartDeviceWidgetConfig{ID: 100, Devices: datatypes.NewJSONSlice([]int64{})}
	svc := NewWidgetService(newFakeWidgetRepo(widget), newFakeDeviceRepo(device))

	updated, err := svc.AddDeviceToWidget(context.Background(), 100, 5)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if len(updated.Devices) != 1 || updated.Devices[0] != 5 {
		t.Errorf("devices = %v, want [5]", updated.Devices)
	}

	// adding again is a no-op
	updated, err = svc.AddDeviceToWidget(context.Background(), 100, 5)
	if err != nil {
		t.Fatalf("repeat add failed: %v", err)
	}
	if len(updated.Devices) != 1 {
		t.Errorf("devices = %v, repeat add must not duplicate", updated.Devices)
	}

	// unknown device is rejected
	if _, err := svc.AddDeviceToWidget(context.Background(), 100, 404); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("err = %v, want ErrDeviceNotFound", err)
	}
}

func TestRemoveDeviceFromWidget(t *testing.T) {
	widget := &domain.SmartDeviceWidgetConfig{ID: 100, Devices: datatypes.NewJSONSlice([]int64{1, 2, 3})}
	svc := NewWidgetService(newFakeWidgetRepo(widget), newFakeDeviceRepo())

	updated, err := svc.RemoveDeviceFromWidget(context.Background(), 100, 2)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(updated.Devices) != 2 || updated.Devices[0] != 1 || updated.Devices[1] != 3 {
		t.Errorf("devices = %v, want [1, 3]", updated.Devices)
	}
}

func TestWidgetNotFound(t *testing.T) {
	svc := NewWidgetService(newFakeWidgetRepo(), newFakeDeviceRepo())
	if _, err := svc.GetWidget(context.Background(), 404); !errors.Is(err, ErrWidgetNotFound) {
		t.Errorf("err = %v, want ErrWidgetNotFound", err)
	}
}
