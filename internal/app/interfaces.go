package app

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/iamtommetcalfe/encom-smart-home/config"
	"github.com/iamtommetcalfe/encom-smart-home/internal/smarthome"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider

	SmartHome() *smarthome.SmartHomeService
	Widgets() *smarthome.WidgetService

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
}
