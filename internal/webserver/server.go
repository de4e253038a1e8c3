package webserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo-contrib/echoprometheus"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/iamtommetcalfe/encom-smart-home/config"
)

// WebServer wraps the echo instance and the web configuration; a
// single package level server backs the Api* registration helpers.
type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	config *config.AppConfig
}

var server *WebServer

// payloadValidator adapts validator/v10 to echo's Validator interface.
type payloadValidator struct {
	validate *validator.Validate
}

func (v *payloadValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// jsonSerializer swaps echo's encoding/json for json-iterator.
type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := jsoniter.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := jsoniter.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}
	return nil
}

// Init builds the echo instance with recovery, request logging,
// metrics and JWT auth on the API group.
func Init(cfg *config.AppConfig) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &payloadValidator{validate: validator.New()}
	e.JSONSerializer = jsonSerializer{}

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(echoprometheus.NewMiddleware("encom"))
	e.GET("/metrics", echoprometheus.NewHandler())

	e.POST("/api/v1/login", login)

	api := e.Group("/api/v1")
	api.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey: []byte(cfg.Web.Secret),
	}))

	server = &WebServer{root: e, api: api, config: cfg}
	return server
}

// Use attaches extra middleware to the API group; the application
// injects its context provider through this.
func Use(mw ...echo.MiddlewareFunc) {
	server.api.Use(mw...)
}

// Start runs the HTTP listener until it fails.
func Start() error {
	addr := fmt.Sprintf("%s:%d", server.config.Web.Host, server.config.Web.Port)
	zap.L().Info("starting web server", zap.String("listen", addr))
	return server.root.Start(addr)
}

// ApiGET registers a GET handler under the authenticated API group
func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

// ApiPOST registers a POST handler under the authenticated API group
func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

// ApiPUT registers a PUT handler under the authenticated API group
func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

// ApiDELETE registers a DELETE handler under the authenticated API group
func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}

// PubGET registers an unauthenticated GET handler on the root router.
// OAuth redirect endpoints live here: the vendor's browser redirect
// carries no bearer token.
func PubGET(path string, h echo.HandlerFunc) {
	server.root.GET(path, h)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Info("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// login checks the configured admin credential and issues a signed
// token. The configured password may be plain or a bcrypt hash.
func login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid login payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
	}

	cfg := server.config.Web
	if req.Username != cfg.AdminUsername || !passwordMatches(cfg.AdminPassword, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid username or password"})
	}

	claims := jwt.RegisteredClaims{
		Subject:   req.Username,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to sign token"})
	}

	return c.JSON(http.StatusOK, echo.Map{"token": signed})
}

func passwordMatches(stored, given string) bool {
	if err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)); err == nil {
		return true
	}
	return stored == given
}
