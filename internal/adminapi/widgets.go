package adminapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
	"github.com/iamtommetcalfe/encom-smart-home/internal/smarthome"
	"github.com/iamtommetcalfe/encom-smart-home/internal/webserver"
)

func registerWidgetRoutes() {
	webserver.ApiGET("/smarthome/widgets", listWidgets)
	webserver.ApiGET("/smarthome/widgets/:id", getWidget)
	webserver.ApiPOST("/smarthome/widgets", createWidget)
	webserver.ApiPUT("/smarthome/widgets/:id", updateWidget)
	webserver.ApiDELETE("/smarthome/widgets/:id", deleteWidget)

	webserver.ApiGET("/smarthome/widgets/:id/devices", getWidgetDevices)
	webserver.ApiPOST("/smarthome/widgets/:id/devices/:deviceId", addWidgetDevice)
	webserver.ApiDELETE("/smarthome/widgets/:id/devices/:deviceId", removeWidgetDevice)
}

func failWidgetError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, smarthome.ErrWidgetNotFound):
		return fail(c, http.StatusNotFound, "WIDGET_NOT_FOUND", "Widget configuration not found", nil)
	case errors.Is(err, smarthome.ErrDeviceNotFound):
		return fail(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "Device not found", nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to process widget request", err.Error())
	}
}

func listWidgets(c echo.Context) error {
	widgets, err := GetAppContext(c).Widgets().ListWidgets(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query widgets", err.Error())
	}
	return ok(c, widgets)
}

func getWidget(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid widget ID", nil)
	}
	widget, err := GetAppContext(c).Widgets().GetWidget(c.Request().Context(), id)
	if err != nil {
		return failWidgetError(c, err)
	}
	return ok(c, widget)
}

type widgetPayload struct {
	Name    string  `json:"name" validate:"required"`
	Devices []int64 `json:"devices"`
}

func createWidget(c echo.Context) error {
	var payload widgetPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse widget parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid widget parameters", err.Error())
	}

	widget := &domain.SmartDeviceWidgetConfig{
		Name:    strings.TrimSpace(payload.Name),
		Devices: datatypes.NewJSONSlice(payload.Devices),
	}
	if err := GetAppContext(c).Widgets().CreateWidget(c.Request().Context(), widget); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create widget", err.Error())
	}
	return ok(c, widget)
}

func updateWidget(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid widget ID", nil)
	}
	var payload widgetPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse widget parameters", nil)
	}

	fields := map[string]interface{}{}
	if strings.TrimSpace(payload.Name) != "" {
		fields["name"] = strings.TrimSpace(payload.Name)
	}
	if payload.Devices != nil {
		fields["devices"] = datatypes.NewJSONSlice(payload.Devices)
	}
	if len(fields) == 0 {
		return fail(c, http.StatusBadRequest, "EMPTY_UPDATE", "No widget fields to update", nil)
	}

	widget, err := GetAppContext(c).Widgets().UpdateWidget(c.Request().Context(), id, fields)
	if err != nil {
		return failWidgetError(c, err)
	}
	return ok(c, widget)
}

func deleteWidget(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid widget ID", nil)
	}
	if err := GetAppContext(c).Widgets().DeleteWidget(c.Request().Context(), id); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete widget", err.Error())
	}
	return ok(c, nil)
}

func getWidgetDevices(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid widget ID", nil)
	}
	devices, err := GetAppContext(c).Widgets().GetDevicesForWidget(c.Request().Context(), id)
	if err != nil {
		return failWidgetError(c, err)
	}
	return ok(c, devices)
}

func addWidgetDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid widget ID", nil)
	}
	deviceID, err := parseIDParam(c, "deviceId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}
	widget, err := GetAppContext(c).Widgets().AddDeviceToWidget(c.Request().Context(), id, deviceID)
	if err != nil {
		return failWidgetError(c, err)
	}
	return ok(c, widget)
}

func removeWidgetDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid widget ID", nil)
	}
	deviceID, err := parseIDParam(c, "deviceId")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}
	widget, err := GetAppContext(c).Widgets().RemoveDeviceFromWidget(c.Request().Context(), id, deviceID)
	if err != nil {
		return failWidgetError(c, err)
	}
	return ok(c, widget)
}
