package adapters

import (
	"context"
	"time"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
)

// Default timeout applied to every outbound vendor call. The call chain
// is synchronous, so a hung vendor request would otherwise block the
// whole inbound request.
const vendorTimeout = 10 * time.Second

// RawDevice is the normalized device summary a vendor adapter reports
// during listing, before reconciliation against local storage.
type RawDevice struct {
	DeviceID     string             // vendor native id (may be composite)
	Name         string
	DeviceType   string
	Room         *string            // nil when the vendor has no room concept
	Capabilities []string
	LastState    domain.DeviceState
}

// PlatformAdapter is the capability contract every vendor integration
// implements. Every method fails closed: network errors, malformed
// vendor payloads and missing auth state all degrade to empty/false
// results, never errors. Causes are logged internally.
type PlatformAdapter interface {
	// Connect establishes or validates a vendor session. Idempotent and
	// safe to call repeatedly.
	Connect(ctx context.Context, credentials map[string]any) bool

	// Disconnect clears in-memory session secrets. Always succeeds.
	Disconnect() bool

	// GetDevices fetches the vendor's current device list mapped to the
	// normalized summary shape. Empty when unauthenticated or on any
	// transport failure.
	GetDevices(ctx context.Context) []RawDevice

	// GetDeviceState fetches one device's live state. Zero valued on
	// failure.
	GetDeviceState(ctx context.Context, vendorDeviceID string) domain.DeviceState

	// SetDeviceState translates the patch into one or more vendor
	// commands and executes them, reporting vendor acceptance.
	SetDeviceState(ctx context.Context, vendorDeviceID string, patch domain.StatePatch) bool

	// RefreshDevices re-enumerates devices. Identical to GetDevices for
	// all supported vendors.
	RefreshDevices(ctx context.Context) []RawDevice
}

func statusOK(code int) bool {
	return code >= 200 && code < 300
}

// callCtx bounds one vendor HTTP call with the shared timeout.
func callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, vendorTimeout)
}
