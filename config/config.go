package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// SysConfig system level configuration
type SysConfig struct {
	Appid    string `yaml:"appid" json:"appid"`
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

// WebConfig web server configuration
type WebConfig struct {
	Host          string `yaml:"host" json:"host"`
	Port          int    `yaml:"port" json:"port"`
	Secret        string `yaml:"secret" json:"secret"`
	AdminUsername string `yaml:"admin_username" json:"admin_username"`
	AdminPassword string `yaml:"admin_password" json:"-"`
}

// DBConfig database configuration, type is postgres or sqlite
type DBConfig struct {
	Type   string `yaml:"type" json:"type"`
	Host   string `yaml:"host" json:"host"`
	Port   int    `yaml:"port" json:"port"`
	Name   string `yaml:"name" json:"name"`
	User   string `yaml:"user" json:"user"`
	Passwd string `yaml:"passwd" json:"passwd"`
	Debug  bool   `yaml:"debug" json:"debug"`
}

// LogConfig zap logger configuration
type LogConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

// AlexaConfig application level credentials for the Alexa skill API
type AlexaConfig struct {
	ClientID     string `yaml:"client_id" json:"client_id"`
	ClientSecret string `yaml:"client_secret" json:"-"`
	RedirectURI  string `yaml:"redirect_uri" json:"redirect_uri"`
	AuthorizeURL string `yaml:"authorize_url" json:"authorize_url"`
	TokenURL     string `yaml:"token_url" json:"token_url"`
}

// TuyaConfig default settings for the Tuya IoT cloud
type TuyaConfig struct {
	Region string `yaml:"region" json:"region"`
}

// SmartHomeConfig smart home behaviour settings
type SmartHomeConfig struct {
	// RefreshCron re-syncs every active platform on a cron schedule.
	// Empty disables the job; all syncs then happen per request.
	RefreshCron string `yaml:"refresh_cron" json:"refresh_cron"`
}

type AppConfig struct {
	System    SysConfig       `yaml:"system" json:"system"`
	Web       WebConfig       `yaml:"web" json:"web"`
	Database  DBConfig        `yaml:"database" json:"database"`
	Logger    LogConfig       `yaml:"logger" json:"logger"`
	Alexa     AlexaConfig     `yaml:"alexa" json:"alexa"`
	Tuya      TuyaConfig      `yaml:"tuya" json:"tuya"`
	SmartHome SmartHomeConfig `yaml:"smart_home" json:"smart_home"`
}

func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		System: SysConfig{
			Appid:    "EncomSmartHome",
			Location: "Europe/London",
			Workdir:  "/var/encom",
			Debug:    true,
		},
		Web: WebConfig{
			Host:          "0.0.0.0",
			Port:          1899,
			Secret:        "9b6de5cc-encom-1899-11e9-b475-0800200c9a66",
			AdminUsername: "admin",
			AdminPassword: "encom",
		},
		Database: DBConfig{
			Type:   "postgres",
			Host:   "127.0.0.1",
			Port:   5432,
			Name:   "encom",
			User:   "postgres",
			Passwd: "myroot",
			Debug:  false,
		},
		Logger: LogConfig{
			Mode:       "development",
			FileEnable: true,
			Filename:   "/var/encom/encom.log",
		},
		Alexa: AlexaConfig{
			AuthorizeURL: "https://www.amazon.com/ap/oa",
			TokenURL:     "https://api.amazon.com/auth/o2/token",
		},
		Tuya: TuyaConfig{
			Region: "eu",
		},
	}
}

// LoadConfig reads the YAML configuration file and applies ENCOM_*
// environment overrides on top. A missing file yields the defaults.
func LoadConfig(cfile string) *AppConfig {
	cfg := DefaultAppConfig()
	if cfile != "" {
		if data, err := os.ReadFile(filepath.Clean(cfile)); err == nil {
			_ = yaml.Unmarshal(data, cfg)
		}
	}

	setEnvValue("ENCOM_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("ENCOM_WEB_HOST", &cfg.Web.Host)
	setEnvValue("ENCOM_WEB_SECRET", &cfg.Web.Secret)
	setEnvValue("ENCOM_WEB_ADMIN_USERNAME", &cfg.Web.AdminUsername)
	setEnvValue("ENCOM_WEB_ADMIN_PASSWORD", &cfg.Web.AdminPassword)
	setEnvIntValue("ENCOM_WEB_PORT", &cfg.Web.Port)
	setEnvValue("ENCOM_DB_TYPE", &cfg.Database.Type)
	setEnvValue("ENCOM_DB_HOST", &cfg.Database.Host)
	setEnvIntValue("ENCOM_DB_PORT", &cfg.Database.Port)
	setEnvValue("ENCOM_DB_NAME", &cfg.Database.Name)
	setEnvValue("ENCOM_DB_USER", &cfg.Database.User)
	setEnvValue("ENCOM_DB_PWD", &cfg.Database.Passwd)
	setEnvValue("ENCOM_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvValue("ENCOM_ALEXA_CLIENT_ID", &cfg.Alexa.ClientID)
	setEnvValue("ENCOM_ALEXA_CLIENT_SECRET", &cfg.Alexa.ClientSecret)
	setEnvValue("ENCOM_ALEXA_REDIRECT_URI", &cfg.Alexa.RedirectURI)
	setEnvValue("ENCOM_TUYA_REGION", &cfg.Tuya.Region)
	setEnvValue("ENCOM_SMARTHOME_REFRESH_CRON", &cfg.SmartHome.RefreshCron)

	return cfg
}

func setEnvValue(name string, val *string) {
	if evalue, ok := os.LookupEnv(name); ok {
		*val = evalue
	}
}

func setEnvIntValue(name string, val *int) {
	if evalue, ok := os.LookupEnv(name); ok {
		if p := cast.ToInt(evalue); p > 0 {
			*val = p
		}
	}
}
