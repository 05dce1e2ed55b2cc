package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Storage  StorageConfig  `mapstructure:"storage"`
	MongoDB  MongoDBConfig  `mapstructure:"mongodb"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Etcd     EtcdConfig     `mapstructure:"etcd"`
	Log      LogConfig      `mapstructure:"log"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Mail     MailConfig     `mapstructure:"mail"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Order    OrderConfig    `mapstructure:"order"`
	Payment  PaymentConfig  `mapstructure:"payment"`
	Images   ImagesConfig   `mapstructure:"images"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// ServerConfig describes the gRPC health endpoint and the name the
// instance registers under in etcd.
type ServerConfig struct {
	Name string `mapstructure:"name"`
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type GatewayConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

// StorageConfig selects the persistence backend. "memory" keeps every
// store in-process and needs no external services.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type MongoDBConfig struct {
	URI             string `mapstructure:"uri"`
	Database        string `mapstructure:"database"`
	AuditCollection string `mapstructure:"audit_collection"`
	Transactions    bool   `mapstructure:"transactions"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	PoolSize int           `mapstructure:"pool_size"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type EtcdConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Endpoints   []string      `mapstructure:"endpoints"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Prefix      string        `mapstructure:"prefix"`
	LeaseTTL    int64         `mapstructure:"lease_ttl"`
}

type LogConfig struct {
	Level       string   `mapstructure:"level"`
	Encoding    string   `mapstructure:"encoding"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
	ResetTokenTTL time.Duration `mapstructure:"reset_token_ttl"`
	AdminEmail    string        `mapstructure:"admin_email"`
	AdminPassword string        `mapstructure:"admin_password"`
}

type MailConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Retries  int           `mapstructure:"retries"`
	Backoff  time.Duration `mapstructure:"backoff"`
	// StorefrontURL is used to build links inside e-mails.
	StorefrontURL string `mapstructure:"storefront_url"`
}

type ReminderConfig struct {
	Backend      string        `mapstructure:"backend"`
	Delay        time.Duration `mapstructure:"delay"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Key          string        `mapstructure:"key"`
}

type OrderConfig struct {
	DeliveryFee float64 `mapstructure:"delivery_fee"`
	Currency    string  `mapstructure:"currency"`
}

type PaymentConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	SecretKey         string        `mapstructure:"secret_key"`
	CallbackURL       string        `mapstructure:"callback_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	PendingTimeout    time.Duration `mapstructure:"pending_timeout"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
}

type ImagesConfig struct {
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PublicURL string `mapstructure:"public_url"`
}

// WorkerConfig controls whether the API process also runs the background
// loops (reminder dispatch, payment reconciliation).
type WorkerConfig struct {
	Embedded bool `mapstructure:"embedded"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "storefront")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 50051)
	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 4000)
	v.SetDefault("storage.driver", "mongo")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "storefront")
	v.SetDefault("mongodb.audit_collection", "audit_logs")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.cache_ttl", 10*time.Minute)
	v.SetDefault("mysql.host", "localhost")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("mysql.database", "storefront")
	v.SetDefault("mysql.max_idle_conns", 5)
	v.SetDefault("mysql.max_open_conns", 20)
	v.SetDefault("etcd.dial_timeout", 5*time.Second)
	v.SetDefault("etcd.prefix", "/services/")
	v.SetDefault("etcd.lease_ttl", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
	v.SetDefault("log.output_paths", []string{"stdout"})
	v.SetDefault("auth.token_ttl", 7*24*time.Hour)
	v.SetDefault("auth.reset_token_ttl", 15*time.Minute)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.retries", 3)
	v.SetDefault("mail.backoff", time.Second)
	v.SetDefault("mail.storefront_url", "http://localhost:5173")
	v.SetDefault("reminder.backend", "memory")
	v.SetDefault("reminder.delay", time.Hour)
	v.SetDefault("reminder.poll_interval", 5*time.Second)
	v.SetDefault("reminder.key", "reminders:due")
	v.SetDefault("order.delivery_fee", 0)
	v.SetDefault("order.currency", "GHS")
	v.SetDefault("payment.base_url", "https://api.paystack.co")
	v.SetDefault("payment.timeout", 15*time.Second)
	v.SetDefault("payment.pending_timeout", 30*time.Minute)
	v.SetDefault("payment.reconcile_interval", 5*time.Minute)
	v.SetDefault("images.region", "us-east-1")
	v.SetDefault("worker.embedded", true)

	// Secrets have no default but must be known keys for env overrides to
	// reach Unmarshal.
	for _, key := range []string{
		"auth.jwt_secret", "auth.admin_email", "auth.admin_password",
		"redis.password", "mysql.username", "mysql.password",
		"mail.host", "mail.username", "mail.password", "mail.from",
		"payment.secret_key", "payment.callback_url",
		"images.bucket", "images.endpoint", "images.access_key", "images.secret_key", "images.public_url",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads the YAML file at configPath. Every key can be overridden by an
// environment variable such as STOREFRONT_AUTH_JWT_SECRET. An empty path
// yields defaults plus environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("storefront")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		// Read config file
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "mongo", "memory":
	default:
		return fmt.Errorf("invalid storage.driver %q", c.Storage.Driver)
	}
	switch c.Reminder.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid reminder.backend %q", c.Reminder.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Mail.Retries < 1 {
		return fmt.Errorf("mail.retries must be at least 1")
	}
	if c.Order.DeliveryFee < 0 {
		return fmt.Errorf("order.delivery_fee must not be negative")
	}
	return nil
}

func (c *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}
