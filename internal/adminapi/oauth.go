package adminapi

import (
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/guonaihong/gout"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/random"
	"gorm.io/datatypes"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
	"github.com/iamtommetcalfe/encom-smart-home/internal/smarthome"
	"github.com/iamtommetcalfe/encom-smart-home/internal/webserver"
)

const oauthStateTTL = 10 * time.Minute

// oauthStates holds outstanding authorization states. One process
// serves the dashboard, so in-memory is enough; states expire after
// oauthStateTTL.
var oauthStates = struct {
	sync.Mutex
	issued map[string]time.Time
}{issued: make(map[string]time.Time)}

func issueOAuthState() string {
	state := random.String(40)
	oauthStates.Lock()
	defer oauthStates.Unlock()
	for s, issued := range oauthStates.issued {
		if time.Since(issued) > oauthStateTTL {
			delete(oauthStates.issued, s)
		}
	}
	oauthStates.issued[state] = time.Now()
	return state
}

func consumeOAuthState(state string) bool {
	oauthStates.Lock()
	defer oauthStates.Unlock()
	issued, ok := oauthStates.issued[state]
	if !ok {
		return false
	}
	delete(oauthStates.issued, state)
	return time.Since(issued) <= oauthStateTTL
}

func registerOAuthRoutes(app AppContext) {
	webserver.ApiGET("/smarthome/oauth/alexa/authorize", alexaAuthorizeURL)
	// The vendor redirects the browser here; no bearer token on this hop.
	webserver.PubGET("/oauth/alexa/callback", alexaCallback(app))
}

// alexaAuthorizeURL returns the Login with Amazon consent URL the
// dashboard redirects the user to.
func alexaAuthorizeURL(c echo.Context) error {
	cfg := GetAppContext(c).Config().Alexa
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fail(c, http.StatusBadRequest, "ALEXA_NOT_CONFIGURED", "Alexa client credentials are not configured", nil)
	}

	query := url.Values{}
	query.Set("client_id", cfg.ClientID)
	query.Set("scope", "alexa::skills:readwrite")
	query.Set("response_type", "code")
	query.Set("redirect_uri", cfg.RedirectURI)
	query.Set("state", issueOAuthState())

	return ok(c, echo.Map{"authorize_url": cfg.AuthorizeURL + "?" + query.Encode()})
}

type alexaTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// alexaCallback exchanges the authorization code for tokens and stores
// them on the alexa platform record, creating it on first link.
func alexaCallback(app AppContext) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !consumeOAuthState(c.QueryParam("state")) {
			return fail(c, http.StatusBadRequest, "INVALID_STATE", "OAuth state is missing or expired", nil)
		}
		code := c.QueryParam("code")
		if code == "" {
			return fail(c, http.StatusBadRequest, "MISSING_CODE", "Authorization code is missing", nil)
		}

		cfg := app.Config().Alexa
		var token alexaTokenResponse
		var status int
		err := gout.POST(cfg.TokenURL).
			WithContext(c.Request().Context()).
			SetWWWForm(gout.H{
				"grant_type":    "authorization_code",
				"code":          code,
				"redirect_uri":  cfg.RedirectURI,
				"client_id":     cfg.ClientID,
				"client_secret": cfg.ClientSecret,
			}).
			BindJSON(&token).
			Code(&status).
			Do()
		if err != nil || status != http.StatusOK || token.AccessToken == "" {
			return fail(c, http.StatusBadGateway, "TOKEN_EXCHANGE_FAILED", "Failed to exchange authorization code", nil)
		}

		credentials := datatypes.JSONMap{
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
		}

		ctx := c.Request().Context()
		svc := app.SmartHome()
		platform, err := svc.GetPlatformBySlug(ctx, domain.PlatformAlexa)
		switch {
		case err == nil:
			platform, err = svc.UpdatePlatform(ctx, platform.ID, map[string]interface{}{
				"credentials": credentials,
				"is_active":   true,
			})
			if err != nil {
				return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update platform credentials", err.Error())
			}
		case errors.Is(err, smarthome.ErrPlatformNotFound):
			platform = &domain.SmartHomePlatform{
				Name:        "Amazon Alexa",
				Slug:        domain.PlatformAlexa,
				Description: "Amazon Alexa connected devices",
				IsActive:    true,
				Credentials: credentials,
			}
			if err := svc.CreatePlatform(ctx, platform); err != nil {
				return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create platform", err.Error())
			}
		default:
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to look up platform", err.Error())
		}

		return ok(c, platform)
	}
}
