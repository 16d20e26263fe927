package notifier_config

import (
	"time"

	"github.com/NordCoder/Killfeed/internal/obs"
	pg "github.com/NordCoder/Killfeed/internal/repository/postgres"
)

const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ModeOnce  = "once"
	ModeCron  = "cron"
	ModeKafka = "kafka"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Player struct {
	Name      string `mapstructure:"name"`
	AccountID string `mapstructure:"account_id"`
}

type Upstream struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Platform  string        `mapstructure:"platform"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Pacing    time.Duration `mapstructure:"pacing"`
	Attempts  int           `mapstructure:"attempts"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	UserAgent string        `mapstructure:"user_agent"`
}

type Webhook struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type Compose struct {
	Brand    string `mapstructure:"brand"`
	TimeZone string `mapstructure:"time_zone"`
}

type Cursor struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	Lock   bool   `mapstructure:"lock"`
}

type RunLog struct {
	Path       string `mapstructure:"path"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type SQLite struct {
	Path string `mapstructure:"path"`
}

type Kafka struct {
	Enable        bool     `mapstructure:"enable"`
	Brokers       []string `mapstructure:"brokers"`
	NotifiedTopic string   `mapstructure:"notified_topic"`
	RequestTopic  string   `mapstructure:"request_topic"`
	GroupID       string   `mapstructure:"group_id"`
}

type Outbox struct {
	Workers       int           `mapstructure:"workers"`
	BatchSize     int           `mapstructure:"batch_size"`
	Wait          time.Duration `mapstructure:"wait"`
	InProgressTTL time.Duration `mapstructure:"in_progress_ttl"`
}

type Sched struct {
	Mode          string        `mapstructure:"mode"`
	Cron          string        `mapstructure:"cron"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"`
	FinalizeAfter time.Duration `mapstructure:"finalize_timeout"`
}

type Server struct {
	MetricsAddr     string        `mapstructure:"metrics_addr"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (oc *OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      oc.Enable,
		Endpoint:    oc.OTLPEndpoint,
		ServiceName: oc.ServiceName,
		SampleRatio: oc.SampleRatio,
	}
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func (c *Config) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    "killfeed/" + c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

type Config struct {
	App      App       `mapstructure:"app"`
	Player   Player    `mapstructure:"player"`
	Upstream Upstream  `mapstructure:"upstream"`
	Webhook  Webhook   `mapstructure:"webhook"`
	Compose  Compose   `mapstructure:"compose"`
	Cursor   Cursor    `mapstructure:"cursor"`
	RunLog   RunLog    `mapstructure:"run_log"`
	DB       pg.Config `mapstructure:"db"`
	SQLite   SQLite    `mapstructure:"sqlite"`
	Kafka    Kafka     `mapstructure:"kafka"`
	Outbox   Outbox    `mapstructure:"outbox"`
	Sched    Sched     `mapstructure:"sched"`
	Server   Server    `mapstructure:"server"`
	OTEL     OTEL      `mapstructure:"otel"`
	Log      Log       `mapstructure:"log"`
}

// Location is the time zone used to render match times.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Compose.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
