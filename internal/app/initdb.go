package app

import (
	"errors"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/internal/domain"
	"github.com/iamtommetcalfe/encom-smart-home/pkg/common"
)

// checkPlatforms seeds one row per supported vendor. Seeded platforms
// start inactive with empty credentials; connecting them later only
// updates the rows, so re-running is safe.
func (a *Application) checkPlatforms() {
	seeds := []domain.SmartHomePlatform{
		{
			Name:        "Amazon Alexa",
			Slug:        domain.PlatformAlexa,
			Description: "Amazon Alexa connected devices",
		},
		{
			Name:        "Govee",
			Slug:        domain.PlatformGovee,
			Description: "Govee lighting and appliances",
		},
		{
			Name:        "Tuya",
			Slug:        domain.PlatformTuya,
			Description: "Tuya and Smart Life devices",
		},
	}

	for _, seed := range seeds {
		var existing domain.SmartHomePlatform
		err := a.gormDB.Where("slug = ?", seed.Slug).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			seed.ID = common.UUIDint64()
			seed.IsActive = false
			seed.Credentials = datatypes.JSONMap{}
			if err := a.gormDB.Create(&seed).Error; err != nil {
				zap.L().Error("failed to seed platform", zap.String("slug", seed.Slug), zap.Error(err))
				continue
			}
			zap.L().Info("initialized platform", zap.String("slug", seed.Slug))
		case err != nil:
			zap.L().Error("failed to query platform", zap.String("slug", seed.Slug), zap.Error(err))
		}
	}
}
