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

func registerPlatformRoutes() {
	webserver.ApiGET("/smarthome/platforms", listPlatforms)
	webserver.ApiGET("/smarthome/platforms/:id", getPlatform)
	webserver.ApiPOST("/smarthome/platforms", createPlatform)
	webserver.ApiPUT("/smarthome/platforms/:id", updatePlatform)
	webserver.ApiDELETE("/smarthome/platforms/:id", deletePlatform)

	webserver.ApiPOST("/smarthome/platforms/:id/connect", connectPlatform)
	webserver.ApiPOST("/smarthome/platforms/:id/refresh", refreshPlatform)
	webserver.ApiPOST("/smarthome/platforms/:id/disconnect", disconnectPlatform)
	webserver.ApiGET("/smarthome/platforms/:id/devices", listPlatformDevices)
}

// failPlatformError maps the service sentinels onto HTTP responses.
func failPlatformError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, smarthome.ErrPlatformNotFound):
		return fail(c, http.StatusNotFound, "PLATFORM_NOT_FOUND", "Platform not found", nil)
	case errors.Is(err, smarthome.ErrPlatformInactive):
		return fail(c, http.StatusBadRequest, "PLATFORM_INACTIVE", "Platform is not active", nil)
	case errors.Is(err, smarthome.ErrMissingCredentials):
		return fail(c, http.StatusBadRequest, "MISSING_CREDENTIALS", "Platform credentials are missing", nil)
	case errors.Is(err, smarthome.ErrUnsupportedPlatform):
		return fail(c, http.StatusBadRequest, "UNSUPPORTED_PLATFORM", "Platform is not supported", nil)
	case errors.Is(err, smarthome.ErrAdapterInit):
		return fail(c, http.StatusInternalServerError, "ADAPTER_INIT_FAILED", "Failed to initialize platform service", nil)
	case errors.Is(err, smarthome.ErrNoDevices):
		return fail(c, http.StatusNotFound, "NO_DEVICES", "No devices found for this platform", nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to process platform request", err.Error())
	}
}

func listPlatforms(c echo.Context) error {
	platforms, err := GetAppContext(c).SmartHome().ListPlatforms(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query platforms", err.Error())
	}
	return ok(c, platforms)
}

func getPlatform(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid platform ID", nil)
	}
	platform, err := GetAppContext(c).SmartHome().GetPlatform(c.Request().Context(), id)
	if err != nil {
		return failPlatformError(c, err)
	}
	return ok(c, platform)
}

type platformPayload struct {
	Name        string                 `json:"name" validate:"required"`
	Slug        string                 `json:"slug" validate:"required,oneof=alexa govee tuya"`
	Description string                 `json:"description"`
	IsActive    *bool                  `json:"is_active"`
	Credentials map[string]interface{} `json:"credentials"`
}

func createPlatform(c echo.Context) error {
	var payload platformPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse platform parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid platform parameters", err.Error())
	}

	svc := GetAppContext(c).SmartHome()
	if _, err := svc.GetPlatformBySlug(c.Request().Context(), payload.Slug); err == nil {
		return fail(c, http.StatusConflict, "DUPLICATE_PLATFORM", "Platform with this slug already exists", nil)
	}

	platform := &domain.SmartHomePlatform{
		Name:        strings.TrimSpace(payload.Name),
		Slug:        payload.Slug,
		Description: payload.Description,
		Credentials: payload.Credentials,
	}
	if payload.IsActive != nil {
		platform.IsActive = *payload.IsActive
	}
	if err := svc.CreatePlatform(c.Request().Context(), platform); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create platform", err.Error())
	}
	return ok(c, platform)
}

func updatePlatform(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid platform ID", nil)
	}
	var payload platformPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse platform parameters", nil)
	}

	fields := map[string]interface{}{}
	if strings.TrimSpace(payload.Name) != "" {
		fields["name"] = strings.TrimSpace(payload.Name)
	}
	if payload.Description != "" {
		fields["description"] = payload.Description
	}
	if payload.IsActive != nil {
		fields["is_active"] = *payload.IsActive
	}
	if payload.Credentials != nil {
		fields["credentials"] = datatypes.JSONMap(payload.Credentials)
	}
	if len(fields) == 0 {
		return fail(c, http.StatusBadRequest, "EMPTY_UPDATE", "No platform fields to update", nil)
	}

	platform, err := GetAppContext(c).SmartHome().UpdatePlatform(c.Request().Context(), id, fields)
	if err != nil {
		return failPlatformError(c, err)
	}
	return ok(c, platform)
}

func deletePlatform(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid platform ID", nil)
	}
	if err := GetAppContext(c).SmartHome().DeletePlatform(c.Request().Context(), id); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete platform", err.Error())
	}
	return ok(c, nil)
}

func connectPlatform(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid platform ID", nil)
	}
	result, err := GetAppContext(c).SmartHome().ConnectAndSyncPlatform(c.Request().Context(), id)
	if err != nil {
		return failPlatformError(c, err)
	}
	return ok(c, result)
}

func refreshPlatform(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid platform ID", nil)
	}
	result, err := GetAppContext(c).SmartHome().RefreshPlatformDevices(c.Request().Context(), id)
	if err != nil {
		return failPlatformError(c, err)
	}
	return ok(c, result)
}

func disconnectPlatform(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid platform ID", nil)
	}
	platform, err := GetAppContext(c).SmartHome().DisconnectPlatform(c.Request().Context(), id)
	if err != nil {
		return failPlatformError(c, err)
	}
	return ok(c, platform)
}

func listPlatformDevices(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid platform ID", nil)
	}
	devices, err := GetAppContext(c).SmartHome().ListPlatformDevices(c.Request().Context(), id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query platform devices", err.Error())
	}
	return ok(c, devices)
}
