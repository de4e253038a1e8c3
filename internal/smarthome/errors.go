package smarthome

import "errors"

// Sentinel errors surfaced by the adapter factory and the sync and
// toggle flows. Handlers map these onto HTTP status codes.
var (
	ErrPlatformNotFound    = errors.New("platform not found")
	ErrPlatformInactive    = errors.New("platform is not active")
	ErrMissingCredentials  = errors.New("platform credentials are missing")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrAdapterInit         = errors.New("failed to initialize platform adapter")
	ErrNoDevices           = errors.New("no devices found for platform")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrVendorRejected      = errors.New("vendor rejected the command")
)
