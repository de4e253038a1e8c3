package smarthome

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/config"
	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
	"github.com/iamtommetcalfe/encom-smart-home/internal/smarthome/adapters"
)

// AdapterProvider resolves a connected vendor adapter for a platform
// id. The service layer depends on this interface so tests can swap in
// a fake.
type AdapterProvider interface {
	AdapterFor(ctx context.Context, platformID int64) (adapters.PlatformAdapter, *domain.SmartHomePlatform, error)
}

// adapterSpec describes one supported vendor: the credential fields the
// factory checks before construction, and the constructor itself.
type adapterSpec struct {
	requiredFields []string
	build          func(cfg *config.AppConfig) adapters.PlatformAdapter
}

// AdapterFactory builds and connects vendor adapters from stored
// platform records. Dispatch runs on the platform slug.
type AdapterFactory struct {
	cfg       *config.AppConfig
	platforms PlatformRepository
	registry  map[string]adapterSpec
}

var _ AdapterProvider = (*AdapterFactory)(nil)

// NewAdapterFactory creates a factory with all built-in vendors
// registered.
func NewAdapterFactory(cfg *config.AppConfig, platforms PlatformRepository) *AdapterFactory {
	f := &AdapterFactory{
		cfg:       cfg,
		platforms: platforms,
		registry:  make(map[string]adapterSpec),
	}

	f.Register(domain.PlatformAlexa, []string{"access_token"}, func(cfg *config.AppConfig) adapters.PlatformAdapter {
		return adapters.NewAlexaAdapter(cfg.Alexa.ClientID, cfg.Alexa.ClientSecret)
	})
	f.Register(domain.PlatformGovee, []string{"api_key"}, func(cfg *config.AppConfig) adapters.PlatformAdapter {
		return adapters.NewGoveeAdapter()
	})
	f.Register(domain.PlatformTuya, []string{"client_id", "client_secret"}, func(cfg *config.AppConfig) adapters.PlatformAdapter {
		return adapters.NewTuyaAdapter(cfg.Tuya.Region)
	})

	return f
}

// Register adds or replaces a vendor entry. Exported so tests can
// install fake vendors.
func (f *AdapterFactory) Register(slug string, requiredFields []string, build func(cfg *config.AppConfig) adapters.PlatformAdapter) {
	f.registry[slug] = adapterSpec{requiredFields: requiredFields, build: build}
}

// AdapterFor looks up the platform, validates it, constructs the
// vendor adapter and connects it. Checks run in a fixed order so the
// caller always gets the most specific error: existence, active flag,
// stored credentials, supported slug, required fields, then the vendor
// handshake itself.
func (f *AdapterFactory) AdapterFor(ctx context.Context, platformID int64) (adapters.PlatformAdapter, *domain.SmartHomePlatform, error) {
	platform, err := f.platforms.GetByID(ctx, platformID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPlatformNotFound
		}
		return nil, nil, err
	}

	adapter, err := f.adapterForPlatform(ctx, platform)
	if err != nil {
		return nil, platform, err
	}
	return adapter, platform, nil
}

func (f *AdapterFactory) adapterForPlatform(ctx context.Context, platform *domain.SmartHomePlatform) (adapters.PlatformAdapter, error) {
	if !platform.IsActive {
		return nil, ErrPlatformInactive
	}
	if !platform.HasCredentials() {
		return nil, ErrMissingCredentials
	}

	spec, ok := f.registry[platform.Slug]
	if !ok {
		zap.L().Error("smarthome: unsupported platform slug", zap.String("slug", platform.Slug))
		return nil, ErrUnsupportedPlatform
	}

	for _, field := range spec.requiredFields {
		if v, ok := platform.Credentials[field]; !ok || v == nil || v == "" {
			zap.L().Error("smarthome: credential field missing",
				zap.String("slug", platform.Slug), zap.String("field", field))
			return nil, ErrMissingCredentials
		}
	}

	adapter := spec.build(f.cfg)
	if !adapter.Connect(ctx, platform.Credentials) {
		zap.L().Error("smarthome: adapter connect failed",
			zap.String("slug", platform.Slug), zap.Int64("platform_id", platform.ID))
		return nil, ErrAdapterInit
	}

	return adapter, nil
}
