package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Gumroad  GumroadConfig
	Admin    AdminConfig
	Trial    TrialConfig
	Contact  ContactConfig
	YouTube  YouTubeConfig
}

type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	ShutdownPeriod time.Duration `mapstructure:"shutdownPeriod"`
	CORSOrigins    []string      `mapstructure:"corsOrigins"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MigrationsPath  string        `mapstructure:"migrationsPath"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// GumroadConfig drives the external purchase-verification pass. An empty
// ProductID disables the pass entirely and verification falls back to the
// local store.
type GumroadConfig struct {
	ProductID string        `mapstructure:"productId"`
	VerifyURL string        `mapstructure:"verifyUrl"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  time.Duration `mapstructure:"cacheTtl"`
}

type AdminConfig struct {
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
	JWTSecret string        `mapstructure:"jwtSecret"`
	TokenTTL  time.Duration `mapstructure:"tokenTtl"`
}

type TrialConfig struct {
	// Retention controls how long expired trial records are kept before the
	// cleanup sweep removes them.
	Retention time.Duration `mapstructure:"retention"`
}

type ContactConfig struct {
	ResendAPIKey string `mapstructure:"resendApiKey"`
	From         string `mapstructure:"from"`
	To           string `mapstructure:"to"`
}

type YouTubeConfig struct {
	APIKey string `mapstructure:"apiKey"`
}

func LoadConfig(configPath string) (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables and config file")
	}

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.readTimeout", 5*time.Second)
	viper.SetDefault("server.writeTimeout", 10*time.Second)
	viper.SetDefault("server.idleTimeout", 120*time.Second)
	viper.SetDefault("server.shutdownPeriod", 15*time.Second)
	viper.SetDefault("server.corsOrigins", []string{"http://localhost:3000"})

	viper.SetDefault("database.migrationsPath", "./migrations")
	viper.SetDefault("database.maxOpenConns", 25)
	viper.SetDefault("database.maxIdleConns", 25)
	viper.SetDefault("database.connMaxLifetime", 5*time.Minute)

	viper.SetDefault("redis.db", "0")

	viper.SetDefault("log.level", "info")

	viper.SetDefault("gumroad.verifyUrl", "https://api.gumroad.com/v2/licenses/verify")
	viper.SetDefault("gumroad.timeout", 10*time.Second)
	viper.SetDefault("gumroad.cacheTtl", 10*time.Minute)

	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.tokenTtl", 12*time.Hour)

	viper.SetDefault("trial.retention", 720*time.Hour)

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AllowEmptyEnv(true)

	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			log.Printf("Warning: could not read config file: %s. Error: %v\n", configPath, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
