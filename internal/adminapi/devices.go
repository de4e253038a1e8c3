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

func registerDeviceRoutes() {
	webserver.ApiGET("/smarthome/devices", listDevices)
	webserver.ApiGET("/smarthome/devices/:id", getDevice)
	webserver.ApiPOST("/smarthome/devices", createDevice)
	webserver.ApiPUT("/smarthome/devices/:id", updateDevice)
	webserver.ApiDELETE("/smarthome/devices/:id", deleteDevice)

	webserver.ApiPOST("/smarthome/devices/:id/toggle", toggleDevice)
	webserver.ApiPUT("/smarthome/devices/:id/state", applyDeviceState)
}

func failDeviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, smarthome.ErrDeviceNotFound):
		return fail(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "Device not found", nil)
	case errors.Is(err, smarthome.ErrVendorRejected):
		return fail(c, http.StatusBadGateway, "VENDOR_REJECTED", "Device command was rejected by the vendor", nil)
	default:
		return failPlatformError(c, err)
	}
}

func listDevices(c echo.Context) error {
	devices, err := GetAppContext(c).SmartHome().ListDevices(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query devices", err.Error())
	}
	return ok(c, devices)
}

func getDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}
	device, err := GetAppContext(c).SmartHome().GetDevice(c.Request().Context(), id)
	if err != nil {
		return failDeviceError(c, err)
	}
	return ok(c, device)
}

type devicePayload struct {
	PlatformID   *int64                 `json:"platform_id,string"`
	Name         string                 `json:"name" validate:"required"`
	DeviceID     string                 `json:"device_id"`
	DeviceType   string                 `json:"device_type"`
	Room         *string                `json:"room"`
	IsActive     *bool                  `json:"is_active"`
	Capabilities []string               `json:"capabilities"`
	Settings     map[string]interface{} `json:"settings"`
}

// createDevice adds a manually managed device. Devices reported by a
// vendor cloud are created through platform sync instead.
func createDevice(c echo.Context) error {
	var payload devicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse device parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid device parameters", err.Error())
	}

	deviceType := payload.DeviceType
	if deviceType == "" {
		deviceType = domain.DeviceTypeUnknown
	}
	device := &domain.SmartDevice{
		PlatformID:   payload.PlatformID,
		Name:         strings.TrimSpace(payload.Name),
		DeviceID:     payload.DeviceID,
		DeviceType:   deviceType,
		Room:         payload.Room,
		IsActive:     true,
		Capabilities: datatypes.NewJSONSlice(payload.Capabilities),
		Settings:     payload.Settings,
	}
	if payload.IsActive != nil {
		device.IsActive = *payload.IsActive
	}
	if err := GetAppContext(c).SmartHome().CreateDevice(c.Request().Context(), device); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create device", err.Error())
	}
	return ok(c, device)
}

func updateDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}
	var payload devicePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse device parameters", nil)
	}

	fields := map[string]interface{}{}
	if strings.TrimSpace(payload.Name) != "" {
		fields["name"] = strings.TrimSpace(payload.Name)
	}
	if payload.DeviceType != "" {
		fields["device_type"] = payload.DeviceType
	}
	if payload.Room != nil {
		fields["room"] = *payload.Room
	}
	if payload.IsActive != nil {
		fields["is_active"] = *payload.IsActive
	}
	if payload.Capabilities != nil {
		fields["capabilities"] = datatypes.NewJSONSlice(payload.Capabilities)
	}
	if payload.Settings != nil {
		fields["settings"] = datatypes.JSONMap(payload.Settings)
	}
	if len(fields) == 0 {
		return fail(c, http.StatusBadRequest, "EMPTY_UPDATE", "No device fields to update", nil)
	}

	device, err := GetAppContext(c).SmartHome().UpdateDevice(c.Request().Context(), id, fields)
	if err != nil {
		return failDeviceError(c, err)
	}
	return ok(c, device)
}

func deleteDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}
	if err := GetAppContext(c).SmartHome().DeleteDevice(c.Request().Context(), id); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete device", err.Error())
	}
	return ok(c, nil)
}

func toggleDevice(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}
	device, err := GetAppContext(c).SmartHome().ToggleDevice(c.Request().Context(), id)
	if err != nil {
		return failDeviceError(c, err)
	}
	return ok(c, device)
}

func applyDeviceState(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid device ID", nil)
	}
	var patch domain.StatePatch
	if err := c.Bind(&patch); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse state parameters", nil)
	}
	if patch.IsEmpty() {
		return fail(c, http.StatusBadRequest, "EMPTY_STATE", "No state fields to apply", nil)
	}
	device, err := GetAppContext(c).SmartHome().ApplyDeviceState(c.Request().Context(), id, patch)
	if err != nil {
		return failDeviceError(c, err)
	}
	return ok(c, device)
}
