package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ERATECOMPARE"

type Config struct {
	Port     string
	LogLevel string

	DBDriver    string
	DBDSN       string
	AutoMigrate bool

	// PlansFile, when set, is imported into the catalogue on startup.
	PlansFile string

	// RevalidateSchedule is either a number of seconds or a cron expression.
	RevalidateSchedule string

	// Workers bounds parallel plan costing; 0 means GOMAXPROCS.
	Workers int

	// Revalidation alerts; an empty URL disables them.
	AlertWebhookURL  string
	AlertWebhookType string
	AlertMinInvalid  int
}

// Load reads a .env file when present and then builds a Config from
// ERATECOMPARE_* environment variables, with sane defaults.
func Load() Config {
	_ = godotenv.Load()
	return fromViper(newViper())
}

// FromEnv builds a Config from the environment only.
func FromEnv() Config {
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The alert webhook is also read from the unprefixed names shared with
	// other deployments; the prefixed name wins when both are set.
	for _, key := range []string{"alert_webhook_url", "alert_webhook_type", "alert_min_invalid"} {
		upper := strings.ToUpper(key)
		_ = v.BindEnv(key, envPrefix+"_"+upper, upper)
	}

	v.SetDefault("port", "8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_driver", "memory")
	v.SetDefault("db_dsn", "")
	v.SetDefault("auto_migrate", false)
	v.SetDefault("plans_file", "")
	v.SetDefault("revalidate_schedule", "3600")
	v.SetDefault("workers", 0)
	v.SetDefault("alert_webhook_url", "")
	v.SetDefault("alert_webhook_type", "")
	v.SetDefault("alert_min_invalid", 1)
	return v
}

func fromViper(v *viper.Viper) Config {
	cfg := Config{
		Port:               v.GetString("port"),
		LogLevel:           v.GetString("log_level"),
		DBDriver:           strings.ToLower(v.GetString("db_driver")),
		DBDSN:              v.GetString("db_dsn"),
		AutoMigrate:        v.GetBool("auto_migrate"),
		PlansFile:          v.GetString("plans_file"),
		RevalidateSchedule: v.GetString("revalidate_schedule"),
		Workers:            v.GetInt("workers"),
		AlertWebhookURL:    v.GetString("alert_webhook_url"),
		AlertWebhookType:   v.GetString("alert_webhook_type"),
		AlertMinInvalid:    v.GetInt("alert_min_invalid"),
	}
	if cfg.DBDSN == "" && cfg.DBDriver == "sqlite" {
		cfg.DBDSN = "eratecompare.db"
	}
	return cfg
}
