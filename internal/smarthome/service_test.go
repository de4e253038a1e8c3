package smarthome

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
	"github.com/iamtommetcalfe/encom-smart-home/internal/smarthome/adapters"
	"github.com/iamtommetcalfe/encom-smart-home/pkg/common"
)

// ---- in-memory fakes ----

type fakePlatformRepo struct {
	items map[int64]*domain.SmartHomePlatform
}

func newFakePlatformRepo(platforms ...*domain.SmartHomePlatform) *fakePlatformRepo {
	r := &fakePlatformRepo{items: make(map[int64]*domain.SmartHomePlatform)}
	for _, p := range platforms {
		r.items[p.ID] = p
	}
	return r
}

func (r *fakePlatformRepo) Create(_ context.Context, p *domain.SmartHomePlatform) error {
	r.items[p.ID] = p
	return nil
}

func (r *fakePlatformRepo) Update(ctx context.Context, id int64, fields map[string]interface{}) (*domain.SmartHomePlatform, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			p.Name = value.(string)
		case "is_active":
			p.IsActive = value.(bool)
		case "credentials":
			p.Credentials = value.(datatypes.JSONMap)
		}
	}
	return p, nil
}

func (r *fakePlatformRepo) GetByID(_ context.Context, id int64) (*domain.SmartHomePlatform, error) {
	p, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakePlatformRepo) GetBySlug(_ context.Context, slug string) (*domain.SmartHomePlatform, error) {
	for _, p := range r.items {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePlatformRepo) List(_ context.Context) ([]*domain.SmartHomePlatform, error) {
	out := make([]*domain.SmartHomePlatform, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePlatformRepo) Delete(_ context.Context, id int64) error {
	delete(r.items, id)
	return nil
}

type fakeDeviceRepo struct {
	items map[int64]*domain.SmartDevice
}

func newFakeDeviceRepo(devices ...*domain.SmartDevice) *fakeDeviceRepo {
	r := &fakeDeviceRepo{items: make(map[int64]*domain.SmartDevice)}
	for _, d := range devices {
		r.items[d.ID] = d
	}
	return r
}

func (r *fakeDeviceRepo) Create(_ context.Context, d *domain.SmartDevice) error {
	if d.ID == 0 {
		d.ID = common.UUIDint64()
	}
	r.items[d.ID] = d
	return nil
}

func (r *fakeDeviceRepo) Update(_ context.Context, id int64, fields map[string]interface{}) (*domain.SmartDevice, error) {
	d, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "name":
			d.Name = value.(string)
		case "device_type":
			d.DeviceType = value.(string)
		case "room":
			room := value.(string)
			d.Room = &room
		case "is_active":
			d.IsActive = value.(bool)
		case "capabilities":
			d.Capabilities = value.(datatypes.JSONSlice[string])
		case "last_state":
			d.LastState = value.(datatypes.JSONType[domain.DeviceState])
		case "last_updated":
			when := value.(time.Time)
			d.LastUpdated = &when
		}
	}
	return d, nil
}

func (r *fakeDeviceRepo) GetByID(_ context.Context, id int64) (*domain.SmartDevice, error) {
	d, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return d, nil
}

func (r *fakeDeviceRepo) GetByPlatformAndDeviceID(_ context.Context, platformID int64, deviceID string) (*domain.SmartDevice, error) {
	for _, d := range r.items {
		if d.PlatformID != nil && *d.PlatformID == platformID && d.DeviceID == deviceID {
			return d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeDeviceRepo) List(_ context.Context) ([]*domain.SmartDevice, error) {
	out := make([]*domain.SmartDevice, 0, len(r.items))
	for _, d := range r.items {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeDeviceRepo) ListByPlatform(_ context.Context, platformID int64) ([]*domain.SmartDevice, error) {
	out := make([]*domain.SmartDevice, 0)
	for _, d := range r.items {
		if d.PlatformID != nil && *d.PlatformID == platformID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeDeviceRepo) Delete(_ context.Context, id int64) error {
	delete(r.items, id)
	return nil
}

type setCall struct {
	deviceID string
	patch    domain.StatePatch
}

// fakeAdapter satisfies adapters.PlatformAdapter for service tests.
type fakeAdapter struct {
	connectOK bool
	devices   []adapters.RawDevice
	state     domain.DeviceState
	setOK     bool
	setCalls  []setCall
}

func (f *fakeAdapter) Connect(context.Context, map[string]any) bool { return f.connectOK }
func (f *fakeAdapter) Disconnect() bool                             { return true }
func (f *fakeAdapter) GetDevices(context.Context) []adapters.RawDevice {
	return f.devices
}
func (f *fakeAdapter) GetDeviceState(context.Context, string) domain.DeviceState {
	return f.state
}
func (f *fakeAdapter) SetDeviceState(_ context.Context, deviceID string, patch domain.StatePatch) bool {
	f.setCalls = append(f.setCalls, setCall{deviceID: deviceID, patch: patch})
	return f.setOK
}
func (f *fakeAdapter) RefreshDevices(ctx context.Context) []adapters.RawDevice {
	return f.GetDevices(ctx)
}

type fakeProvider struct {
	adapter  *fakeAdapter
	platform *domain.SmartHomePlatform
	err      error
	calls    int
}

func (f *fakeProvider) AdapterFor(context.Context, int64) (adapters.PlatformAdapter, *domain.SmartHomePlatform, error) {
	f.calls++
	if f.err != nil {
		return nil, f.platform, f.err
	}
	return f.adapter, f.platform, nil
}

func testPlatform(id int64) *domain.SmartHomePlatform {
	return &domain.SmartHomePlatform{
		ID:          id,
		Name:        "Govee",
		Slug:        domain.PlatformGovee,
		IsActive:    true,
		Credentials: datatypes.JSONMap{"api_key": "k"},
	}
}

// ---- sync ----

func TestConnectAndSyncCreatesDevices(t *testing.T) {
	platform := testPlatform(1)
	room := "Kitchen"
	adapter := &fakeAdapter{
		devices: []adapters.RawDevice{
			{
				DeviceID:     "AA:BB:H6159",
				Name:         "Lamp",
				DeviceType:   domain.DeviceTypeLight,
				Capabilities: []string{domain.CapabilityOnOff, domain.CapabilityBrightness, domain.CapabilityColor},
				LastState:    domain.DeviceState{Power: true},
			},
			{
				DeviceID:   "CC:DD:H5081",
				Name:       "Plug",
				DeviceType: domain.DeviceTypeSwitch,
				Room:       &room,
				LastState:  domain.DeviceState{},
			},
		},
	}
	devices := newFakeDeviceRepo()
	svc := NewSmartHomeService(newFakePlatformRepo(platform), devices, &fakeProvider{adapter: adapter, platform: platform})

	result, err := svc.ConnectAndSyncPlatform(context.Background(), 1)
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if result.Created != 2 || result.Updated != 0 || result.Total != 2 {
		t.Errorf("result = %+v, want 2 created", result)
	}

	lamp, err := devices.GetByPlatformAndDeviceID(context.Background(), 1, "AA:BB:H6159")
	if err != nil {
		t.Fatal("lamp not created")
	}
	if !lamp.IsActive {
		t.Error("synced devices start active")
	}
	if lamp.Room != nil {
		t.Error("lamp has no room")
	}
	if !lamp.LastState.Data().Power {
		t.Error("lamp power not stored")
	}
	if !lamp.HasCapability(domain.CapabilityColor) {
		t.Error("lamp capabilities not stored")
	}
	if lamp.LastUpdated == nil {
		t.Error("last updated not set")
	}

	plug, _ := devices.GetByPlatformAndDeviceID(context.Background(), 1, "CC:DD:H5081")
	if plug.Room == nil || *plug.Room != "Kitchen" {
		t.Errorf("plug room = %v, want Kitchen", plug.Room)
	}
}

func TestResyncIsIdempotent(t *testing.T) {
	platform := testPlatform(1)
	adapter := &fakeAdapter{
		devices: []adapters.RawDevice{
			{DeviceID: "AA:BB:H6159", Name: "Lamp", DeviceType: domain.DeviceTypeLight},
		},
	}
	devices := newFakeDeviceRepo()
	svc := NewSmartHomeService(newFakePlatformRepo(platform), devices, &fakeProvider{adapter: adapter, platform: platform})

	if _, err := svc.ConnectAndSyncPlatform(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	adapter.devices[0].Name = "Renamed Lamp"
	adapter.devices[0].LastState = domain.DeviceState{Power: true}
	result, err := svc.ConnectAndSyncPlatform(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if result.Created != 0 || result.Updated != 1 {
		t.Errorf("result = %+v, want 1 updated", result)
	}

	all, _ := devices.List(context.Background())
	if len(all) != 1 {
		t.Fatalf("re-sync duplicated rows: %d", len(all))
	}
	if all[0].Name != "Renamed Lamp" {
		t.Errorf("name = %q, vendor rename must win", all[0].Name)
	}
	if !all[0].LastState.Data().Power {
		t.Error("last state must be overwritten on every sync")
	}
}

func TestSyncPreservesLocalRoom(t *testing.T) {
	platform := testPlatform(1)
	adapter := &fakeAdapter{
		devices: []adapters.RawDevice{{DeviceID: "d1", Name: "Lamp"}},
	}
	devices := newFakeDeviceRepo()
	svc := NewSmartHomeService(newFakePlatformRepo(platform), devices, &fakeProvider{adapter: adapter, platform: platform})

	if _, err := svc.ConnectAndSyncPlatform(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	created, _ := devices.GetByPlatformAndDeviceID(context.Background(), 1, "d1")
	if _, err := svc.UpdateDevice(context.Background(), created.ID, map[string]interface{}{"room": "Office"}); err != nil {
		t.Fatal(err)
	}

	// vendor reports no room: local assignment survives
	if _, err := svc.ConnectAndSyncPlatform(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	after, _ := devices.GetByID(context.Background(), created.ID)
	if after.Room == nil || *after.Room != "Office" {
		t.Errorf("room = %v, local room must survive a roomless sync", after.Room)
	}

	// vendor starts reporting a room: vendor wins
	vendorRoom := "Hallway"
	adapter.devices[0].Room = &vendorRoom
	if _, err := svc.ConnectAndSyncPlatform(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	after, _ = devices.GetByID(context.Background(), created.ID)
	if after.Room == nil || *after.Room != "Hallway" {
		t.Errorf("room = %v, vendor room must overwrite", after.Room)
	}
}

func TestSyncFailures(t *testing.T) {
	platform := testPlatform(1)
	tests := []struct {
		name     string
		provider *fakeProvider
		wantErr  error
	}{
		{"platform not found", &fakeProvider{err: ErrPlatformNotFound}, ErrPlatformNotFound},
		{"platform inactive", &fakeProvider{err: ErrPlatformInactive, platform: platform}, ErrPlatformInactive},
		{"missing credentials", &fakeProvider{err: ErrMissingCredentials, platform: platform}, ErrMissingCredentials},
		{"adapter init failed", &fakeProvider{err: ErrAdapterInit, platform: platform}, ErrAdapterInit},
		{"empty device list", &fakeProvider{adapter: &fakeAdapter{}, platform: platform}, ErrNoDevices},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSmartHomeService(newFakePlatformRepo(platform), newFakeDeviceRepo(), tt.provider)
			_, err := svc.ConnectAndSyncPlatform(context.Background(), 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// ---- toggle ----

func linkedDevice(id, platformID int64, state domain.DeviceState) *domain.SmartDevice {
	return &domain.SmartDevice{
		ID:         id,
		PlatformID: &platformID,
		Name:       "Lamp",
		DeviceID:   "vendor-1",
		DeviceType: domain.DeviceTypeLight,
		IsActive:   true,
		LastState:  datatypes.NewJSONType(state),
	}
}

func TestToggleLinkedDevice(t *testing.T) {
	platform := testPlatform(1)
	brightness := 70
	device := linkedDevice(10, 1, domain.DeviceState{Power: false, Brightness: &brightness})
	adapter := &fakeAdapter{setOK: true}
	provider := &fakeProvider{adapter: adapter, platform: platform}
	svc := NewSmartHomeService(newFakePlatformRepo(platform), newFakeDeviceRepo(device), provider)

	updated, err := svc.ToggleDevice(context.Background(), 10)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !updated.LastState.Data().Power {
		t.Error("power should flip to on")
	}
	if got := updated.LastState.Data().Brightness; got == nil || *got != 70 {
		t.Errorf("brightness = %v, non-power fields must be preserved", got)
	}

	if len(adapter.setCalls) != 1 {
		t.Fatalf("vendor calls = %d, want 1", len(adapter.setCalls))
	}
	sent := adapter.setCalls[0]
	if sent.deviceID != "vendor-1" {
		t.Errorf("vendor device id = %q", sent.deviceID)
	}
	if sent.patch.Power == nil || !*sent.patch.Power {
		t.Error("patch must carry the new power value")
	}
	if sent.patch.Brightness == nil || *sent.patch.Brightness != 70 {
		t.Error("patch must carry the preserved brightness")
	}
}

func TestToggleUnlinkedDeviceFlipsLocally(t *testing.T) {
	device := &domain.SmartDevice{
		ID:        10,
		Name:      "Manual Switch",
		IsActive:  true,
		LastState: datatypes.NewJSONType(domain.DeviceState{Power: true}),
	}
	provider := &fakeProvider{err: errors.New("must not be called")}
	svc := NewSmartHomeService(newFakePlatformRepo(), newFakeDeviceRepo(device), provider)

	updated, err := svc.ToggleDevice(context.Background(), 10)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if updated.LastState.Data().Power {
		t.Error("power should flip to off")
	}
	if provider.calls != 0 {
		t.Errorf("provider calls = %d, unlinked devices never reach the vendor", provider.calls)
	}
}

func TestToggleVendorRejectionBlocksPersist(t *testing.T) {
	platform := testPlatform(1)
	device := linkedDevice(10, 1, domain.DeviceState{Power: false})
	adapter := &fakeAdapter{setOK: false}
	svc := NewSmartHomeService(newFakePlatformRepo(platform), newFakeDeviceRepo(device),
		&fakeProvider{adapter: adapter, platform: platform})

	_, err := svc.ToggleDevice(context.Background(), 10)
	if !errors.Is(err, ErrVendorRejected) {
		t.Fatalf("err = %v, want ErrVendorRejected", err)
	}
	if device.LastState.Data().Power {
		t.Error("rejected toggle must not change stored state")
	}
}

func TestToggleSurvivesAdapterInitFailure(t *testing.T) {
	platform := testPlatform(1)
	device := linkedDevice(10, 1, domain.DeviceState{Power: false})
	provider := &fakeProvider{err: ErrAdapterInit, platform: platform}
	svc := NewSmartHomeService(newFakePlatformRepo(platform), newFakeDeviceRepo(device), provider)

	updated, err := svc.ToggleDevice(context.Background(), 10)
	if err != nil {
		t.Fatalf("toggle must proceed locally: %v", err)
	}
	if !updated.LastState.Data().Power {
		t.Error("power should flip even when the adapter cannot be built")
	}
}

func TestToggleMissingDevice(t *testing.T) {
	svc := NewSmartHomeService(newFakePlatformRepo(), newFakeDeviceRepo(), &fakeProvider{})
	_, err := svc.ToggleDevice(context.Background(), 999)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("err = %v, want ErrDeviceNotFound", err)
	}
}

func TestApplyDeviceStateMergesPatch(t *testing.T) {
	platform := testPlatform(1)
	brightness := 20
	device := linkedDevice(10, 1, domain.DeviceState{Power: true, Brightness: &brightness})
	adapter := &fakeAdapter{setOK: true}
	svc := NewSmartHomeService(newFakePlatformRepo(platform), newFakeDeviceRepo(device),
		&fakeProvider{adapter: adapter, platform: platform})

	newBrightness := 90
	updated, err := svc.ApplyDeviceState(context.Background(), 10, domain.StatePatch{Brightness: &newBrightness})
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	state := updated.LastState.Data()
	if !state.Power {
		t.Error("unpatched power must be preserved")
	}
	if state.Brightness == nil || *state.Brightness != 90 {
		t.Errorf("brightness = %v, want 90", state.Brightness)
	}

	// the vendor sees only the patched fields
	if len(adapter.setCalls) != 1 {
		t.Fatalf("vendor calls = %d", len(adapter.setCalls))
	}
	if adapter.setCalls[0].patch.Power != nil {
		t.Error("patch must not include unpatched power")
	}
}

// ---- disconnect ----

func TestDisconnectPlatformKeepsRecord(t *testing.T) {
	platform := testPlatform(1)
	repo := newFakePlatformRepo(platform)
	svc := NewSmartHomeService(repo, newFakeDeviceRepo(), &fakeProvider{})

	updated, err := svc.DisconnectPlatform(context.Background(), 1)
	if err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	if updated.IsActive {
		t.Error("disconnect must deactivate")
	}
	if updated.HasCredentials() {
		t.Error("disconnect must clear credentials")
	}
	if _, err := repo.GetByID(context.Background(), 1); err != nil {
		t.Error("disconnect must keep the record")
	}
}
