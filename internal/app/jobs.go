package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, _ := time.LoadLocation(a.appConfig.System.Location)
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	if spec := a.appConfig.SmartHome.RefreshCron; spec != "" {
		if _, err := a.sched.AddFunc(spec, a.SchedRefreshPlatforms); err != nil {
			zap.S().Errorf("init job error %s", err.Error())
		}
	}

	a.sched.Start()
}

// SchedRefreshPlatforms re-syncs every active, credentialed platform.
// A failing platform is logged and skipped so one broken vendor cloud
// does not starve the others.
func (a *Application) SchedRefreshPlatforms() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var platforms []domain.SmartHomePlatform
	if err := a.gormDB.Where("is_active = ?", true).Find(&platforms).Error; err != nil {
		zap.L().Error("failed to list platforms for refresh", zap.Error(err))
		return
	}

	for _, platform := range platforms {
		if !platform.HasCredentials() {
			continue
		}
		result, err := a.smartHome.RefreshPlatformDevices(ctx, platform.ID)
		if err != nil {
			zap.L().Warn("scheduled platform refresh failed",
				zap.String("slug", platform.Slug), zap.Error(err))
			continue
		}
		zap.L().Info("scheduled platform refresh finished",
			zap.String("slug", platform.Slug),
			zap.Int("created", result.Created),
			zap.Int("updated", result.Updated))
	}
}
