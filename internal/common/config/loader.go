package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	LocalBackendSQLite = "sqlite"
	LocalBackendRedis  = "redis"
)

// EnvFileLoaded records which .env file was applied, empty when none was found.
var EnvFileLoaded string

// Load reads config.yaml (and config.<APP_ENVIRONMENT>.yaml when present) from
// ./configs, ../../configs or the working directory, then applies
// environment overrides.
func Load() (*Config, error) {
	return load("")
}

// LoadFromFile loads configuration from an explicit path.
func LoadFromFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	EnvFileLoaded = loadEnvFile()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	registerDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading base config: %w", err)
			}
		}

		env := os.Getenv("APP_ENVIRONMENT")
		if env == "" {
			env = "development"
		}
		v.SetConfigName("config." + env)
		_ = v.MergeInConfig()
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() string {
	candidates := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		candidates = append(candidates, filepath.Join(root, ".env"))
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err == nil {
			return p
		}
	}
	return ""
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// registerDefaults makes every key known to viper so AutomaticEnv can
// override keys absent from the yaml files.
func registerDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "apply-desk")
	v.SetDefault("app.environment", "development")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 30000)

	v.SetDefault("camunda.broker_address", "localhost:26500")
	v.SetDefault("camunda.plaintext", true)

	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("database.local.backend", LocalBackendSQLite)
	v.SetDefault("database.local.path", "apply-desk.db")
	v.SetDefault("database.local.key_prefix", "")
	v.SetDefault("database.elasticsearch.addresses", []string{})

	v.SetDefault("integrations.aws.region", "ap-northeast-2")
	v.SetDefault("integrations.aws.ses.enabled", true)
	v.SetDefault("integrations.aws.ses.from_email", "")
	v.SetDefault("integrations.aws.ses.configuration_set", "")
	v.SetDefault("integrations.aws.ses.template_name", "")
	v.SetDefault("integrations.aws.sns.enabled", false)
	v.SetDefault("integrations.aws.sns.sender_id", "")

	v.SetDefault("relay.max_init_attempts", 3)
	v.SetDefault("relay.load_wait", 1500)
	v.SetDefault("relay.mobile_load_wait", 3000)
	v.SetDefault("relay.init_backoff", 2000)
	v.SetDefault("relay.send_timeout", 30000)
	v.SetDefault("relay.recipient_pause", 1000)
	v.SetDefault("relay.user_agent", "")
	v.SetDefault("relay.probe_address", "")

	v.SetDefault("deployment.apartment_id", "speed_apartment2")
	v.SetDefault("deployment.apartment_name", "Speed 아파트")
	v.SetDefault("deployment.time_zone", "Asia/Seoul")

	v.SetDefault("notice.log_enabled", true)
	v.SetDefault("notice.sms_enabled", false)
	v.SetDefault("attempt_log.postgres", true)
	v.SetDefault("attempt_log.elasticsearch", false)
	v.SetDefault("attempt_log.index", "notification-attempts")
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
			v.Set(key, expanded)
		}
	}
}

// overrideEmptyConfig applies the short env names used by deployment scripts.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIfEmpty(&cfg.Database.Postgres.Host, "DB_HOST")
	setIfEmpty(&cfg.Database.Postgres.Database, "DB_NAME")
	setIfEmpty(&cfg.Database.Redis.Password, "REDIS_PASSWORD")
	setIfEmpty(&cfg.Integrations.AWS.SES.FromEmail, "SES_FROM_EMAIL")
	if val := os.Getenv("AWS_REGION"); val != "" && cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = val
	}
}

func setIfEmpty(dst *string, env string) {
	if *dst != "" {
		return
	}
	if val := os.Getenv(env); val != "" {
		*dst = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Relay.MaxInitAttempts == 0 {
		cfg.Relay.MaxInitAttempts = 3
	}
	if cfg.Relay.LoadWait == 0 {
		cfg.Relay.LoadWait = 1500
	}
	if cfg.Relay.MobileLoadWait == 0 {
		cfg.Relay.MobileLoadWait = 3000
	}
	if cfg.Relay.InitBackoff == 0 {
		cfg.Relay.InitBackoff = 2000
	}
	if cfg.Relay.SendTimeout == 0 {
		cfg.Relay.SendTimeout = 30000
	}
	if cfg.Relay.RecipientPause == 0 {
		cfg.Relay.RecipientPause = 1000
	}
	if cfg.Relay.ProbeTimeout == 0 {
		cfg.Relay.ProbeTimeout = 3000
	}
	if cfg.Relay.SubmissionLabel == "" {
		cfg.Relay.SubmissionLabel = "접수일시:"
	}

	if cfg.Deployment.DefaultTitle == "" {
		cfg.Deployment.DefaultTitle = cfg.Deployment.ApartmentName + " 통신 환경 개선 신청서"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, w := range cfg.Workers {
		if w.MaxJobsActive == 0 {
			w.MaxJobsActive = 5
		}
		if w.Timeout == 0 {
			w.Timeout = DefaultWorkerTimeout
		}
		if w.MaxRetries == 0 {
			w.MaxRetries = 3
		}
		cfg.Workers[key] = w
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Deployment.ApartmentID == "" {
		return fmt.Errorf("deployment.apartment_id is required")
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	switch cfg.Database.Local.Backend {
	case LocalBackendSQLite:
		if cfg.Database.Local.Path == "" {
			return fmt.Errorf("database.local.path is required for the sqlite backend")
		}
	case LocalBackendRedis:
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis backend")
		}
	default:
		return fmt.Errorf("database.local.backend must be %q or %q, got %q",
			LocalBackendSQLite, LocalBackendRedis, cfg.Database.Local.Backend)
	}

	if cfg.AttemptLog.Elasticsearch && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when attempt_log.elasticsearch is enabled")
	}
	if cfg.Integrations.AWS.SES.Enabled && cfg.Integrations.AWS.SES.TemplateName == "" {
		return fmt.Errorf("integrations.aws.ses.template_name is required when ses is enabled")
	}
	if cfg.Relay.MaxInitAttempts < 1 {
		return fmt.Errorf("relay.max_init_attempts must be positive")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// DefaultWorkerTimeout (ms) outlasts a submission that hits a remote
// outage and then times out on every relay send.
const DefaultWorkerTimeout = 180000

// GetWorkerConfig returns the named worker's settings or the defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if w, ok := cfg.Workers[workerName]; ok {
		return w
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       DefaultWorkerTimeout,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled defaults to true for workers missing from the config.
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if w, ok := cfg.Workers[workerName]; ok {
		return w.Enabled
	}
	return true
}
