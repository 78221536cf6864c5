package config

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Records    RecordsConfig    `yaml:"records"`
	Reminders  RemindersConfig  `yaml:"reminders"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	PDF        PDFConfig        `yaml:"pdf"`
	Strategy   StrategyConfig   `yaml:"strategy"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	AllowOrigins    []string `yaml:"allow_origins"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst"`
}

// DatabaseConfig holds the SQL connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // postgres or sqlite
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// RecordsConfig selects where service records live.
type RecordsConfig struct {
	Backend    string `yaml:"backend"` // sql or mongo
	MongoURI   string `yaml:"mongo_uri"`
	MongoDB    string `yaml:"mongo_db"`
	Collection string `yaml:"collection"`
}

// RemindersConfig drives the next-service derivation and the daily job.
type RemindersConfig struct {
	Timezone        string         `yaml:"timezone"`
	Location        *time.Location `yaml:"-"`
	DailyCron       string         `yaml:"daily_cron"`
	MessageTemplate string         `yaml:"message_template"`
	TwilioFrom      string         `yaml:"twilio_whatsapp_from"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the push worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PDFConfig holds the fixed header and footer content of the service form.
type PDFConfig struct {
	LogoPath   string `yaml:"logo_path"`
	ShopName   string `yaml:"shop_name"`
	Contact    string `yaml:"contact"`
	Web        string `yaml:"web"`
	Disclaimer string `yaml:"disclaimer"`
	StaffName  string `yaml:"default_staff"`
}

// StrategyConfig selects the Gemini model. The API key comes from GEMINI_API_KEY.
type StrategyConfig struct {
	Model string `yaml:"model"`
}

// LogConfig controls the logrus output.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

const DefaultReminderMessage = "En son 6 ay önce bakım yaptırdınız tekrar bakım yaptırmak isterseniz Otoil Araç Bakım'a bekleriz.\nBu bir otomatik mesajdır."

// Load reads the configuration from the given path. DB_URL, MONGO_URI and
// TWILIO_WHATSAPP_NUMBER override the file.
func Load(path string) (*Config, error) {
	return load(path, true)
}

// LoadFileOnly reads the configuration from path and ignores environment
// overrides, so tools holding their own credentials never pick up the
// server's DB_URL from .env.
func LoadFileOnly(path string) (*Config, error) {
	return load(path, false)
}

func load(path string, withEnv bool) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if withEnv {
		applyEnv(&cfg)
	}
	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, for tools and tests.
func Default() *Config {
	cfg := &Config{}
	applyEnv(cfg)
	if err := cfg.applyDefaults(); err != nil {
		// UTC never fails to load; only a bad configured timezone can end up here.
		log.WithError(err).Warn("falling back to UTC")
		cfg.Reminders.Location = time.UTC
	}
	return cfg
}

func applyEnv(cfg *Config) {
	if dsn := os.Getenv("DB_URL"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		cfg.Records.MongoURI = uri
	}
	if from := os.Getenv("TWILIO_WHATSAPP_NUMBER"); from != "" {
		cfg.Reminders.TwilioFrom = from
	}
}

func (cfg *Config) applyDefaults() error {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if len(cfg.Server.AllowOrigins) == 0 {
		cfg.Server.AllowOrigins = []string{"http://localhost:5173"}
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Records.Backend == "" {
		cfg.Records.Backend = "sql"
	}
	if cfg.Records.MongoDB == "" {
		cfg.Records.MongoDB = "otoil"
	}
	if cfg.Records.Collection == "" {
		cfg.Records.Collection = "hizmetler"
	}

	if cfg.Reminders.Timezone == "" {
		cfg.Reminders.Timezone = "Europe/Istanbul"
	}
	loc, err := time.LoadLocation(cfg.Reminders.Timezone)
	if err != nil {
		return err
	}
	cfg.Reminders.Location = loc
	if cfg.Reminders.DailyCron == "" {
		cfg.Reminders.DailyCron = "0 9 * * *"
	}
	if cfg.Reminders.MessageTemplate == "" {
		cfg.Reminders.MessageTemplate = DefaultReminderMessage
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}
	if cfg.WorkerPool.Size <= 0 {
		log.Warn("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}

	if cfg.PDF.ShopName == "" {
		cfg.PDF.ShopName = "OTOIL Yağ ve Bakım Merkezi"
	}
	if cfg.PDF.Contact == "" {
		cfg.PDF.Contact = "İletişim: 0507 541 63 25"
	}
	if cfg.PDF.Web == "" {
		cfg.PDF.Web = "www.otoil.com | info@otoil.com"
	}
	if cfg.PDF.Disclaimer == "" {
		cfg.PDF.Disclaimer = "SORUMLULUK REDDI: Bu belgede yer alan sonuçlar usta görüşü olup, anlık olarak yapılan kontrol sonuçlarıdır. OTOIL Yağ ve Bakım Merkezi bilgi verilen sorunlardan sorumlu değildir."
	}
	if cfg.PDF.StaffName == "" {
		cfg.PDF.StaffName = "Şahin Lale"
	}

	if cfg.Strategy.Model == "" {
		cfg.Strategy.Model = "gemini-2.5-flash-lite"
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	return nil
}
