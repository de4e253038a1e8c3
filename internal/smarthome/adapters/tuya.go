package adapters

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/guonaihong/gout"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
)

// TuyaAdapter talks to the Tuya open API. Every request carries an
// HMAC-SHA256 signature over client id, access token and a millisecond
// timestamp; access tokens expire and are refreshed lazily when a call
// finds the cached token past its expiry.
type TuyaAdapter struct {
	baseURL      string
	clientID     string
	clientSecret string
	region       string

	accessToken string
	tokenExpiry time.Time
}

var _ PlatformAdapter = (*TuyaAdapter)(nil)

func NewTuyaAdapter(defaultRegion string) *TuyaAdapter {
	if defaultRegion == "" {
		defaultRegion = "eu"
	}
	return &TuyaAdapter{region: defaultRegion}
}

// NewTuyaAdapterWithURL pins the endpoint, overriding region based
// host selection. Used by tests against a local fake server.
func NewTuyaAdapterWithURL(baseURL string) *TuyaAdapter {
	return &TuyaAdapter{baseURL: strings.TrimSuffix(baseURL, "/"), region: "eu"}
}

type tuyaCredentials struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Region       string `mapstructure:"region"`
}

// Connect decodes the credential blob and obtains an initial access
// token; a token grant doubles as credential verification.
func (t *TuyaAdapter) Connect(ctx context.Context, credentials map[string]any) bool {
	var creds tuyaCredentials
	if err := mapstructure.WeakDecode(credentials, &creds); err != nil ||
		creds.ClientID == "" || creds.ClientSecret == "" {
		zap.L().Error("tuya: client id or secret missing from credentials", zap.Error(err))
		return false
	}

	t.clientID = creds.ClientID
	t.clientSecret = creds.ClientSecret
	if creds.Region != "" {
		t.region = creds.Region
	}
	if t.baseURL == "" {
		t.baseURL = fmt.Sprintf("https://openapi.tuya%s.com", t.region)
	}

	return t.requestToken(ctx)
}

func (t *TuyaAdapter) Disconnect() bool {
	t.accessToken = ""
	t.tokenExpiry = time.Time{}
	return true
}

// sign computes the simple-mode request signature: uppercase hex
// HMAC-SHA256 of clientID + accessToken + timestamp, keyed with the
// client secret. The token part is empty for the token grant itself.
func (t *TuyaAdapter) sign(accessToken, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(t.clientSecret))
	mac.Write([]byte(t.clientID + accessToken + timestamp))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

func (t *TuyaAdapter) signedHeaders(accessToken string) gout.H {
	timestamp := cast.ToString(time.Now().UnixMilli())
	return gout.H{
		"client_id":    t.clientID,
		"sign":         t.sign(accessToken, timestamp),
		"sign_method":  "HMAC-SHA256",
		"t":            timestamp,
		"nonce":        "",
		"access_token": accessToken,
	}
}

func (t *TuyaAdapter) requestToken(ctx context.Context) bool {
	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		Success bool `json:"success"`
		Result  struct {
			AccessToken string `json:"access_token"`
			ExpireTime  int64  `json:"expire_time"`
		} `json:"result"`
		Msg string `json:"msg"`
	}
	var code int
	err := gout.GET(t.baseURL + "/v1.0/token").
		WithContext(cctx).
		SetQuery(gout.H{"grant_type": 1}).
		SetHeader(t.signedHeaders("")).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) || !resp.Success || resp.Result.AccessToken == "" {
		zap.L().Error("tuya: token request failed",
			zap.Int("status", code), zap.String("msg", resp.Msg), zap.Error(err))
		return false
	}

	expire := resp.Result.ExpireTime
	if expire <= 0 {
		expire = 7200
	}
	t.accessToken = resp.Result.AccessToken
	t.tokenExpiry = time.Now().Add(time.Duration(expire) * time.Second)
	return true
}

// ensureToken refreshes the cached token when it is missing or past
// expiry.
func (t *TuyaAdapter) ensureToken(ctx context.Context) bool {
	if t.clientID == "" || t.clientSecret == "" {
		return false
	}
	if t.accessToken != "" && time.Now().Before(t.tokenExpiry) {
		return true
	}
	return t.requestToken(ctx)
}

type tuyaDevice struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Category string           `json:"category"`
	Room     *string          `json:"room"`
	Status   []map[string]any `json:"status"`
}

func (t *TuyaAdapter) GetDevices(ctx context.Context) []RawDevice {
	if !t.ensureToken(ctx) {
		return []RawDevice{}
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		Success bool         `json:"success"`
		Result  []tuyaDevice `json:"result"`
		Msg     string       `json:"msg"`
	}
	var code int
	err := gout.GET(t.baseURL + "/v1.0/users/me/devices").
		WithContext(cctx).
		SetHeader(t.signedHeaders(t.accessToken)).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) || !resp.Success {
		zap.L().Error("tuya: failed to list devices",
			zap.Int("status", code), zap.String("msg", resp.Msg), zap.Error(err))
		return []RawDevice{}
	}

	formatted := make([]RawDevice, 0, len(resp.Result))
	for _, dev := range resp.Result {
		name := dev.Name
		if name == "" {
			name = "Unknown Device"
		}

		formatted = append(formatted, RawDevice{
			DeviceID:     dev.ID,
			Name:         name,
			DeviceType:   tuyaDeviceType(dev.Category),
			Room:         dev.Room,
			Capabilities: tuyaCapabilities(dev.Category, dev.Status),
			LastState:    t.GetDeviceState(ctx, dev.ID),
		})
	}

	return formatted
}

func (t *TuyaAdapter) GetDeviceState(ctx context.Context, vendorDeviceID string) domain.DeviceState {
	if !t.ensureToken(ctx) {
		return domain.DeviceState{}
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		Success bool             `json:"success"`
		Result  []map[string]any `json:"result"`
		Msg     string           `json:"msg"`
	}
	var code int
	err := gout.GET(t.baseURL + "/v1.0/devices/" + vendorDeviceID + "/status").
		WithContext(cctx).
		SetHeader(t.signedHeaders(t.accessToken)).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) || !resp.Success {
		zap.L().Error("tuya: failed to get device state",
			zap.String("device_id", vendorDeviceID),
			zap.Int("status", code), zap.String("msg", resp.Msg), zap.Error(err))
		return domain.DeviceState{}
	}

	return formatTuyaState(resp.Result)
}

// SetDeviceState batches every patched field into a single commands
// request; unlike Govee, the Tuya endpoint takes a command list.
func (t *TuyaAdapter) SetDeviceState(ctx context.Context, vendorDeviceID string, patch domain.StatePatch) bool {
	if !t.ensureToken(ctx) {
		zap.L().Error("tuya: no access token for command", zap.String("device_id", vendorDeviceID))
		return false
	}

	commands := make([]gout.H, 0, 4)
	if patch.Power != nil {
		commands = append(commands, gout.H{"code": "switch_1", "value": *patch.Power})
	}
	if patch.Brightness != nil {
		commands = append(commands, gout.H{"code": "bright", "value": *patch.Brightness})
	}
	if patch.Color != nil {
		commands = append(commands, gout.H{"code": "colour_data", "value": patch.Color})
	}
	if patch.Temperature != nil {
		commands = append(commands, gout.H{"code": "temp_set", "value": *patch.Temperature})
	}
	if len(commands) == 0 {
		zap.L().Error("tuya: no valid command for patch", zap.String("device_id", vendorDeviceID))
		return false
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		Success bool   `json:"success"`
		Msg     string `json:"msg"`
	}
	var code int
	err := gout.POST(t.baseURL + "/v1.0/devices/" + vendorDeviceID + "/commands").
		WithContext(cctx).
		SetHeader(t.signedHeaders(t.accessToken)).
		SetJSON(gout.H{"commands": commands}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) || !resp.Success {
		zap.L().Error("tuya: command request failed",
			zap.String("device_id", vendorDeviceID),
			zap.Int("status", code), zap.String("msg", resp.Msg), zap.Error(err))
		return false
	}

	return true
}

func (t *TuyaAdapter) RefreshDevices(ctx context.Context) []RawDevice {
	return t.GetDevices(ctx)
}

// tuyaDeviceType maps Tuya category codes onto normalized types by
// substring: categories like "dj" ship alongside descriptive codes
// ("light_strip", "smart_switch") so matching stays loose.
func tuyaDeviceType(category string) string {
	category = strings.ToLower(category)
	switch {
	case strings.Contains(category, "light"), strings.Contains(category, "dj"):
		return domain.DeviceTypeLight
	case strings.Contains(category, "switch"), strings.Contains(category, "socket"),
		strings.Contains(category, "plug"), strings.Contains(category, "cz"),
		strings.Contains(category, "kg"):
		return domain.DeviceTypeSwitch
	case strings.Contains(category, "thermostat"), strings.Contains(category, "wk"):
		return domain.DeviceTypeThermostat
	case strings.Contains(category, "sensor"), strings.Contains(category, "wsdcg"):
		return domain.DeviceTypeSensor
	default:
		return domain.DeviceTypeUnknown
	}
}

// tuyaCapabilities is seeded from the device category; lights are
// additionally probed for brightness and color data point codes, and
// thermostats and sensors report temperature whether or not a status
// list is present.
func tuyaCapabilities(category string, status []map[string]any) []string {
	switch tuyaDeviceType(category) {
	case domain.DeviceTypeLight:
		capabilities := []string{domain.CapabilityOnOff}
		for _, entry := range status {
			code := cast.ToString(entry["code"])
			if strings.Contains(code, "bright") && !containsString(capabilities, domain.CapabilityBrightness) {
				capabilities = append(capabilities, domain.CapabilityBrightness)
			}
			if strings.Contains(code, "colour_data") && !containsString(capabilities, domain.CapabilityColor) {
				capabilities = append(capabilities, domain.CapabilityColor)
			}
		}
		return capabilities
	case domain.DeviceTypeSwitch:
		return []string{domain.CapabilityOnOff}
	case domain.DeviceTypeThermostat, domain.DeviceTypeSensor:
		return []string{domain.CapabilityTemperature}
	default:
		return []string{}
	}
}

// formatTuyaState folds a status data point list into the normalized
// state. Power values come back as booleans or strings depending on
// the device firmware, so truthiness is checked loosely.
func formatTuyaState(status []map[string]any) domain.DeviceState {
	var state domain.DeviceState
	for _, entry := range status {
		code := cast.ToString(entry["code"])
		value := entry["value"]
		switch code {
		case "switch", "switch_1":
			state.Power = tuyaTruthy(value)
		case "bright", "brightness":
			b := cast.ToInt(value)
			state.Brightness = &b
		case "colour_data", "color":
			state.Color = value
		case "temp_current", "temperature":
			temp := cast.ToFloat64(value)
			state.Temperature = &temp
		}
	}
	return state
}

func tuyaTruthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return cast.ToInt(value) == 1
	}
}
