package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Mtrace  MtraceConfig  `yaml:"mtrace" mapstructure:"mtrace"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Scale   ScaleConfig   `yaml:"scale" mapstructure:"scale"`
	Barcode BarcodeConfig `yaml:"barcode" mapstructure:"barcode"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the production-log database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MtraceConfig holds grading lookup service settings.
type MtraceConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	IssuePath     string  `yaml:"issue_path" mapstructure:"issue_path"`
	DetailPath    string  `yaml:"detail_path" mapstructure:"detail_path"`
	APIKey        string  `yaml:"api_key" mapstructure:"api_key"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ServerConfig configures the admin API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// ScaleConfig configures the floor scale reader.
type ScaleConfig struct {
	Device   string `yaml:"device" mapstructure:"device"`
	Baud     int    `yaml:"baud" mapstructure:"baud"`
	TestFile string `yaml:"test_file" mapstructure:"test_file"`
	Product  string `yaml:"product" mapstructure:"product"`
}

// BarcodeConfig configures label-image decoding.
type BarcodeConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	ZbarImgPath string `yaml:"zbarimg_path" mapstructure:"zbarimg_path"`
}

// ReportConfig configures the monthly report export.
type ReportConfig struct {
	SheetName string `yaml:"sheet_name" mapstructure:"sheet_name"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRACE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "trace.db")
	v.SetDefault("mtrace.base_url", "https://data.ekape.or.kr/openapi-data/service/user/animalTrace")
	v.SetDefault("mtrace.issue_path", "/traceNoSearch")
	v.SetDefault("mtrace.detail_path", "/gradeInfo")
	v.SetDefault("mtrace.rate_per_sec", 5.0)
	v.SetDefault("mtrace.max_concurrent", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("scale.baud", 9600)
	v.SetDefault("scale.product", "")
	v.SetDefault("barcode.provider", "zbar")
	v.SetDefault("barcode.zbarimg_path", "zbarimg")
	v.SetDefault("report.sheet_name", "ProductionLog")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
