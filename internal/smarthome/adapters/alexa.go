package adapters

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/guonaihong/gout"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
)

const (
	alexaBaseURL  = "https://api.amazonalexa.com/v3"
	alexaTokenURL = "https://api.amazon.com/auth/o2/token"
)

// AlexaAdapter talks to the Alexa Smart Home Skill API. Auth is an
// OAuth2 bearer + refresh token pair obtained by the browser flow and
// injected through Connect; the client id/secret come from application
// configuration and are only used to refresh.
type AlexaAdapter struct {
	baseURL      string
	tokenURL     string
	clientID     string
	clientSecret string

	accessToken  string
	refreshToken string
}

var _ PlatformAdapter = (*AlexaAdapter)(nil)

func NewAlexaAdapter(clientID, clientSecret string) *AlexaAdapter {
	return NewAlexaAdapterWithURLs(clientID, clientSecret, alexaBaseURL, alexaTokenURL)
}

// NewAlexaAdapterWithURLs allows tests to point the adapter at local
// fake servers.
func NewAlexaAdapterWithURLs(clientID, clientSecret, baseURL, tokenURL string) *AlexaAdapter {
	return &AlexaAdapter{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		tokenURL:     tokenURL,
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

type alexaCredentials struct {
	AccessToken  string `mapstructure:"access_token"`
	RefreshToken string `mapstructure:"refresh_token"`
}

// Connect verifies the injected access token with a lightweight
// authenticated GET. When the token is absent or stale and a refresh
// token exists, a single refresh attempt is made.
func (a *AlexaAdapter) Connect(ctx context.Context, credentials map[string]any) bool {
	var creds alexaCredentials
	if err := mapstructure.WeakDecode(credentials, &creds); err != nil {
		zap.L().Error("alexa: invalid credentials blob", zap.Error(err))
		return false
	}
	if creds.AccessToken != "" {
		a.accessToken = creds.AccessToken
	}
	if creds.RefreshToken != "" {
		a.refreshToken = creds.RefreshToken
	}

	if a.accessToken != "" {
		cctx, cancel := callCtx(ctx)
		defer cancel()
		var code int
		err := gout.GET(a.baseURL + "/users/~current/skills").
			WithContext(cctx).
			SetHeader(gout.H{"Authorization": "Bearer " + a.accessToken}).
			Code(&code).
			Do()
		if err == nil && statusOK(code) {
			return true
		}
	}

	if a.refreshToken != "" {
		return a.refreshAccessToken(ctx)
	}

	return false
}

func (a *AlexaAdapter) Disconnect() bool {
	a.accessToken = ""
	a.refreshToken = ""
	return true
}

type alexaDevice struct {
	ID           string  `json:"id"`
	DisplayName  string  `json:"displayName"`
	FriendlyName string  `json:"friendlyName"`
	Room         *string `json:"room"`
	Capabilities []struct {
		Interface string `json:"interface"`
	} `json:"capabilities"`
}

func (a *AlexaAdapter) GetDevices(ctx context.Context) []RawDevice {
	if a.accessToken == "" {
		return []RawDevice{}
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		Devices []alexaDevice `json:"devices"`
	}
	var code int
	err := gout.GET(a.baseURL + "/devices").
		WithContext(cctx).
		SetHeader(gout.H{"Authorization": "Bearer " + a.accessToken}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) {
		zap.L().Error("alexa: failed to list devices", zap.Int("status", code), zap.Error(err))
		return []RawDevice{}
	}

	formatted := make([]RawDevice, 0, len(resp.Devices))
	for _, dev := range resp.Devices {
		capabilities := make([]string, 0, len(dev.Capabilities))
		deviceType := domain.DeviceTypeUnknown

		for _, capability := range dev.Capabilities {
			iface := capability.Interface
			if iface == "" {
				continue
			}
			capabilities = append(capabilities, iface)

			switch iface {
			case "Alexa.PowerController":
				capabilities = append(capabilities, domain.CapabilityOnOff)
			case "Alexa.BrightnessController":
				capabilities = append(capabilities, domain.CapabilityBrightness)
			case "Alexa.ColorController":
				capabilities = append(capabilities, domain.CapabilityColor)
			}

			if strings.Contains(iface, "Light") {
				deviceType = domain.DeviceTypeLight
			} else if strings.Contains(iface, "Switch") || strings.Contains(iface, "PowerController") {
				deviceType = domain.DeviceTypeSwitch
			} else if strings.Contains(iface, "Thermostat") {
				deviceType = domain.DeviceTypeThermostat
			} else if strings.Contains(iface, "TemperatureSensor") {
				deviceType = domain.DeviceTypeSensor
			}
		}

		name := dev.DisplayName
		if name == "" {
			name = dev.FriendlyName
		}
		if name == "" {
			name = "Unknown Device"
		}

		// One state fetch per device; the skill API has no batch state
		// endpoint.
		state := a.GetDeviceState(ctx, dev.ID)

		formatted = append(formatted, RawDevice{
			DeviceID:     dev.ID,
			Name:         name,
			DeviceType:   deviceType,
			Room:         dev.Room,
			Capabilities: capabilities,
			LastState:    domain.DeviceState{Power: state.Power},
		})
	}

	return formatted
}

func (a *AlexaAdapter) GetDeviceState(ctx context.Context, vendorDeviceID string) domain.DeviceState {
	if a.accessToken == "" {
		return domain.DeviceState{}
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		State domain.DeviceState `json:"state"`
	}
	var code int
	err := gout.GET(a.baseURL + "/devices/" + vendorDeviceID + "/state").
		WithContext(cctx).
		SetHeader(gout.H{"Authorization": "Bearer " + a.accessToken}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) {
		zap.L().Error("alexa: failed to get device state",
			zap.String("device_id", vendorDeviceID), zap.Int("status", code), zap.Error(err))
		return domain.DeviceState{}
	}

	return resp.State
}

// SetDeviceState maps the patch onto a single PowerController directive.
// Brightness and color commands are not supported by this integration
// even when the capability list reports them.
func (a *AlexaAdapter) SetDeviceState(ctx context.Context, vendorDeviceID string, patch domain.StatePatch) bool {
	if a.accessToken == "" {
		zap.L().Error("alexa: access token is not set")
		return false
	}
	if patch.Power == nil {
		zap.L().Error("alexa: patch carries no power field", zap.String("device_id", vendorDeviceID))
		return false
	}

	directiveName := "TurnOff"
	if *patch.Power {
		directiveName = "TurnOn"
	}

	body := gout.H{
		"directive": gout.H{
			"header": gout.H{
				"namespace":        "Alexa.PowerController",
				"name":             directiveName,
				"messageId":        uuid.NewString(),
				"correlationToken": uuid.NewString(),
			},
			"endpoint": gout.H{
				"endpointId": vendorDeviceID,
			},
			"payload": gout.H{},
		},
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var code int
	err := gout.POST(a.baseURL + "/devices/" + vendorDeviceID + "/directives").
		WithContext(cctx).
		SetHeader(gout.H{"Authorization": "Bearer " + a.accessToken}).
		SetJSON(body).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) {
		zap.L().Error("alexa: directive rejected",
			zap.String("device_id", vendorDeviceID), zap.String("name", directiveName),
			zap.Int("status", code), zap.Error(err))
		return false
	}

	return true
}

func (a *AlexaAdapter) RefreshDevices(ctx context.Context) []RawDevice {
	// The skill API has no dedicated refresh; re-enumerate.
	return a.GetDevices(ctx)
}

// refreshAccessToken exchanges the refresh token for a new access
// token. A single attempt per Connect call; no retry loop.
func (a *AlexaAdapter) refreshAccessToken(ctx context.Context) bool {
	if a.refreshToken == "" || a.clientID == "" || a.clientSecret == "" {
		return false
	}

	cctx, cancel := callCtx(ctx)
	defer cancel()

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	var code int
	err := gout.POST(a.tokenURL).
		WithContext(cctx).
		SetWWWForm(gout.H{
			"grant_type":    "refresh_token",
			"refresh_token": a.refreshToken,
			"client_id":     a.clientID,
			"client_secret": a.clientSecret,
		}).
		BindJSON(&resp).
		Code(&code).
		Do()
	if err != nil || !statusOK(code) || resp.AccessToken == "" {
		zap.L().Error("alexa: failed to refresh access token", zap.Int("status", code), zap.Error(err))
		return false
	}

	a.accessToken = resp.AccessToken
	return true
}
