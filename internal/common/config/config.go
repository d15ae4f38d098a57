package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Server       ServerConfig            `mapstructure:"server"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Relay        RelayConfig             `mapstructure:"relay"`
	Deployment   DeploymentConfig        `mapstructure:"deployment"`
	Notice       NoticeConfig            `mapstructure:"notice"`
	AttemptLog   AttemptLogConfig        `mapstructure:"attempt_log"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownTimeout int `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Local         LocalStoreConfig    `mapstructure:"local"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string.
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LocalStoreConfig selects the backend for the local key space: the
// cached admin settings and the fallback ledger.
type LocalStoreConfig struct {
	Backend   string `mapstructure:"backend"` // sqlite | redis
	Path      string `mapstructure:"path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// IntegrationConfig holds the AWS relay and SMS settings.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled          bool   `mapstructure:"enabled"`
			FromEmail        string `mapstructure:"from_email"`
			ConfigurationSet string `mapstructure:"configuration_set"`
			TemplateName     string `mapstructure:"template_name"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			SenderID string `mapstructure:"sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// RelayConfig tunes the notification client's init and send policy.
type RelayConfig struct {
	MaxInitAttempts  int    `mapstructure:"max_init_attempts"`
	LoadWait         int    `mapstructure:"load_wait"`        // milliseconds
	MobileLoadWait   int    `mapstructure:"mobile_load_wait"` // milliseconds
	InitBackoff      int    `mapstructure:"init_backoff"`     // milliseconds
	SendTimeout      int    `mapstructure:"send_timeout"`     // milliseconds
	RecipientPause   int    `mapstructure:"recipient_pause"`  // milliseconds
	UserAgent        string `mapstructure:"user_agent"`
	ProbeAddress     string `mapstructure:"probe_address"`
	ProbeTimeout     int    `mapstructure:"probe_timeout"` // milliseconds
	SubmissionLabel  string `mapstructure:"submission_label"`
	InitCooldownSecs int    `mapstructure:"init_cooldown_secs"`
}

// DeploymentConfig identifies this installation's row in admin_settings.
type DeploymentConfig struct {
	ApartmentID   string `mapstructure:"apartment_id"`
	ApartmentName string `mapstructure:"apartment_name"`
	DefaultTitle  string `mapstructure:"default_title"`
	TimeZone      string `mapstructure:"time_zone"`
}

// Location resolves the deployment time zone, falling back to a fixed KST
// offset when tzdata is unavailable.
func (d DeploymentConfig) Location() *time.Location {
	if d.TimeZone != "" {
		if loc, err := time.LoadLocation(d.TimeZone); err == nil {
			return loc
		}
	}
	return time.FixedZone("KST", 9*60*60)
}

type NoticeConfig struct {
	LogEnabled bool `mapstructure:"log_enabled"`
	SMSEnabled bool `mapstructure:"sms_enabled"`
}

type AttemptLogConfig struct {
	Postgres      bool   `mapstructure:"postgres"`
	Elasticsearch bool   `mapstructure:"elasticsearch"`
	Index         string `mapstructure:"index"`
}

// WorkerConfig holds the settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
