package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/guonaihong/gout"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
)

const goveeBaseURL = "https://developer-api.govee.com/v1"

// GoveeAdapter talks to the Govee lighting cloud. Auth is a single
// static API key sent in a custom header; a key is valid indefinitely
// or not at all.
//
// Govee identifies a device by a (device, model) pair. We store the
// pair joined with a colon; see SplitGoveeDeviceID for why splitting
// goes from the right.
type GoveeAdapter struct {
	baseURL string
	apiKey  string
}

var _ PlatformAdapter = (*GoveeAdapter)(nil)

func NewGoveeAdapter() *GoveeAdapter {
	return NewGoveeAdapterWithURL(goveeBaseURL)
}

// NewGoveeAdapterWithURL allows tests to point the adapter at a local
// fake server.
func NewGoveeAdapterWithURL(baseURL string) *GoveeAdapter {
	return &GoveeAdapter{baseURL: strings.TrimSuffix(baseURL, "/")}
}

// JoinGoveeDeviceID builds the composite id stored as the device's
// vendor native id.
func JoinGoveeDeviceID(device, model string) string {
	return device + ":" + model
}

// SplitGoveeDeviceID splits a composite id back into device and model.
// Govee device identifiers are MAC-like and contain colons themselves,
// so the composite must be split from the right: the last segment is
// always the model, everything before it is the device.
func SplitGoveeDeviceID(composite string) (device, model string, err error) {
	idx := strings.LastIndex(composite, ":")
	if idx <= 0 || idx == len(composite)-1 {
		return "", "", fmt.Errorf("invalid govee device id %q", composite)
	}
	return composite[:idx], composite[idx+1:], nil
}

type goveeCredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// Connect stores the API key and verifies it with one authenticated
// device list request.
func (g *GoveeAdapter) Connect(ctx context.Context, credentials map[string]any) bool {
	var creds goveeCredentials
	if err := mapstructure.WeakDecode(credentials, &creds); err != nil || creds.APIKey == "" {
		zap.L().Error("govee: api key missing from credentials", zap.Error(err))
		return false
	}
	g.apiKey = creds.APIKey

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var code int
	err := gout.GET(g.baseURL + "/devices").
		WithContext(cctx).
		SetHeader(gout.H{"Govee-API-Key": g.apiKey}).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) {
		zap.L().Error("govee: key verification failed", zap.Int("status", code), zap.Error(err))
		return false
	}

	return true
}

func (g *GoveeAdapter) Disconnect() bool {
	g.apiKey = ""
	return true
}

type goveeDevice struct {
	Device      string `json:"device"`
	Model       string `json:"model"`
	DeviceName  string `json:"deviceName"`
	SupportCmds []any  `json:"supportCmds"`
}

func (g *GoveeAdapter) GetDevices(ctx context.Context) []RawDevice {
	if g.apiKey == "" {
		return []RawDevice{}
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		Data struct {
			Devices []goveeDevice `json:"devices"`
		} `json:"data"`
	}
	var code int
	err := gout.GET(g.baseURL + "/devices").
		WithContext(cctx).
		SetHeader(gout.H{"Govee-API-Key": g.apiKey}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) {
		zap.L().Error("govee: failed to list devices", zap.Int("status", code), zap.Error(err))
		return []RawDevice{}
	}

	formatted := make([]RawDevice, 0, len(resp.Data.Devices))
	for _, dev := range resp.Data.Devices {
		deviceID := JoinGoveeDeviceID(dev.Device, dev.Model)
		capabilities := goveeCapabilities(dev.SupportCmds)

		// Name and capability based inference; the Govee API carries no
		// explicit device type field.
		deviceType := domain.DeviceTypeUnknown
		lowerName := strings.ToLower(dev.DeviceName)
		switch {
		case strings.Contains(lowerName, "light"),
			strings.Contains(lowerName, "lamp"),
			containsString(capabilities, domain.CapabilityBrightness),
			containsString(capabilities, domain.CapabilityColor):
			deviceType = domain.DeviceTypeLight
		case strings.Contains(lowerName, "plug"), strings.Contains(lowerName, "switch"):
			deviceType = domain.DeviceTypeSwitch
		}

		name := dev.DeviceName
		if name == "" {
			name = "Unknown Device"
		}

		state := g.GetDeviceState(ctx, deviceID)

		formatted = append(formatted, RawDevice{
			DeviceID:     deviceID,
			Name:         name,
			DeviceType:   deviceType,
			Room:         nil, // the Govee API has no room information
			Capabilities: capabilities,
			LastState:    domain.DeviceState{Power: state.Power},
		})
	}

	return formatted
}

func (g *GoveeAdapter) GetDeviceState(ctx context.Context, vendorDeviceID string) domain.DeviceState {
	if g.apiKey == "" {
		return domain.DeviceState{}
	}

	device, model, err := SplitGoveeDeviceID(vendorDeviceID)
	if err != nil {
		zap.L().Error("govee: invalid device id in state fetch", zap.String("device_id", vendorDeviceID))
		return domain.DeviceState{}
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		Data struct {
			Properties []map[string]any `json:"properties"`
		} `json:"data"`
	}
	var code int
	rerr := gout.GET(g.baseURL + "/devices/state").
		WithContext(cctx).
		SetHeader(gout.H{"Govee-API-Key": g.apiKey}).
		SetQuery(gout.H{"device": device, "model": model}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if rerr != nil || !statusOK(code) {
		zap.L().Error("govee: failed to get device state",
			zap.String("device_id", vendorDeviceID), zap.Int("status", code), zap.Error(rerr))
		return domain.DeviceState{}
	}

	return formatGoveeState(resp.Data.Properties)
}

// SetDeviceState translates the patch into exactly one vendor command;
// the Govee control endpoint accepts one command per call. When several
// fields are present, power wins over brightness, brightness over
// color; the rest are dropped for this call.
func (g *GoveeAdapter) SetDeviceState(ctx context.Context, vendorDeviceID string, patch domain.StatePatch) bool {
	if g.apiKey == "" {
		zap.L().Error("govee: api key is not set")
		return false
	}

	device, model, err := SplitGoveeDeviceID(vendorDeviceID)
	if err != nil {
		zap.L().Error("govee: invalid device id in command", zap.String("device_id", vendorDeviceID))
		return false
	}

	cmd := goveeCommand(patch)
	if cmd == nil {
		zap.L().Error("govee: no valid command for patch", zap.String("device_id", vendorDeviceID))
		return false
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var code int
	rerr := gout.PUT(g.baseURL + "/devices/control").
		WithContext(cctx).
		SetHeader(gout.H{"Govee-API-Key": g.apiKey}).
		SetJSON(gout.H{
			"device": device,
			"model":  model,
			"cmd":    cmd,
		}).
		Code(&code).
		Do()
	if rerr != nil || !statusOK(code) {
		zap.L().Error("govee: control request failed",
			zap.String("device_id", vendorDeviceID), zap.Int("status", code), zap.Error(rerr))
		return false
	}

	return true
}

func (g *GoveeAdapter) RefreshDevices(ctx context.Context) []RawDevice {
	return g.GetDevices(ctx)
}

// goveeCapabilities maps the supportCmds array onto normalized
// capability names. The API has shipped both plain strings and
// {name: ...} objects in this array; accept either.
func goveeCapabilities(supportCmds []any) []string {
	capabilities := make([]string, 0, len(supportCmds))
	for _, raw := range supportCmds {
		var cmd string
		switch v := raw.(type) {
		case string:
			cmd = v
		case map[string]any:
			cmd = cast.ToString(v["name"])
		}

		switch cmd {
		case "turn":
			capabilities = append(capabilities, domain.CapabilityOnOff)
		case "brightness":
			capabilities = append(capabilities, domain.CapabilityBrightness)
		case "color":
			capabilities = append(capabilities, domain.CapabilityColor)
		}
	}
	return capabilities
}

// formatGoveeState normalizes the two property shapes the state
// endpoint returns: {name, value} pair objects, and single key objects
// such as {"online": true}. The online property is informational only.
func formatGoveeState(properties []map[string]any) domain.DeviceState {
	var state domain.DeviceState

	apply := func(key string, value any) {
		switch key {
		case "online":
			// connectivity flag, not part of the normalized state
		case "powerState":
			state.Power = cast.ToString(value) == "on"
		case "brightness":
			b := cast.ToInt(value)
			state.Brightness = &b
		case "color":
			state.Color = value
		}
	}

	for _, property := range properties {
		if name, ok := property["name"]; ok {
			if value, ok := property["value"]; ok {
				apply(cast.ToString(name), value)
				continue
			}
		}
		if len(property) == 1 {
			for key, value := range property {
				apply(key, value)
			}
			continue
		}
		zap.L().Warn("govee: unrecognized property shape", zap.Any("property", property))
	}

	return state
}

// goveeCommand picks the single command to send for a patch.
func goveeCommand(patch domain.StatePatch) gout.H {
	if patch.Power != nil {
		value := "off"
		if *patch.Power {
			value = "on"
		}
		return gout.H{"name": "turn", "value": value}
	}
	if patch.Brightness != nil {
		return gout.H{"name": "brightness", "value": *patch.Brightness}
	}
	if patch.Color != nil {
		return gout.H{"name": "color", "value": patch.Color}
	}
	return nil
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
