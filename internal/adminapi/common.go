package adminapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/config"
	"github.com/iamtommetcalfe/encom-smart-home/internal/smarthome"
	"github.com/iamtommetcalfe/encom-smart-home/internal/webserver"
)

// AppContext is what handlers need from the running application. The
// application implements it; tests can pass a stub.
type AppContext interface {
	Config() *config.AppConfig
	DB() *gorm.DB
	SmartHome() *smarthome.SmartHomeService
	Widgets() *smarthome.WidgetService
}

const appContextKey = "encom_app_context"

// RegisterRoutes injects the application into every request context
// and mounts all admin API routes.
func RegisterRoutes(app AppContext) {
	webserver.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(appContextKey, app)
			return next(c)
		}
	})

	registerPlatformRoutes()
	registerDeviceRoutes()
	registerWidgetRoutes()
	registerOAuthRoutes(app)
}

// GetAppContext returns the application bound to the request
func GetAppContext(c echo.Context) AppContext {
	return c.Get(appContextKey).(AppContext)
}

// GetDB returns the application database handle
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, echo.Map{"data": data})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, echo.Map{
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}
