package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends
const (
	StoreBackendPostgres  = "postgres"
	StoreBackendSQLite    = "sqlite"
	StoreBackendPostgREST = "postgrest"
	StoreBackendMemory    = "memory"
)

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string

		Server    ServerConfig
		Database  DatabaseConfig
		Store     StoreConfig
		PostgREST PostgRESTConfig
		Gemini    GeminiConfig
	}

	ServerConfig struct {
		Host            string
		Addr            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		DisableTLS    bool
		Path          string // sqlite file
		MaxOpenConns  int
		MaxIdleConns  int
		ConnectWaitup time.Duration
	}

	StoreConfig struct {
		Backend      string
		Seed         bool // memory backend only
		FetchTimeout time.Duration
	}

	PostgRESTConfig struct {
		URL    string
		APIKey string
		Schema string
	}

	GeminiConfig struct {
		APIKey string
		Model  string
	}
)

// Address returns the database host:port pair.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, dc.Port)
}

// NewConfig loads the configuration from (in order of precedence) env vars prefixed with
// the current ENV, `config/.env.<env>` and the defaults below.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "EduAdmin")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)

	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbName", "eduadmin")
	v.SetDefault("dbUser", "eduadmin")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("dbPath", "eduadmin.db")
	v.SetDefault("dbMaxOpenConns", 16)
	v.SetDefault("dbMaxIdleConns", 4)
	v.SetDefault("dbConnectWaitup", 3*time.Second)

	v.SetDefault("storeBackend", StoreBackendMemory)
	v.SetDefault("storeSeed", true)
	v.SetDefault("storeFetchTimeout", 15*time.Second)

	v.SetDefault("postgrestUrl", "")
	v.SetDefault("postgrestApiKey", "")
	v.SetDefault("postgrestSchema", "public")

	v.SetDefault("geminiApiKey", "")
	v.SetDefault("geminiModel", "gemini-3-flash-preview")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Addr:            v.GetString("serverAddr"),
			DebugHost:       v.GetString("serverDebugHost"),
			ShutdownTimeout: v.GetDuration("serverShutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			Path:          v.GetString("dbPath"),
			MaxOpenConns:  v.GetInt("dbMaxOpenConns"),
			MaxIdleConns:  v.GetInt("dbMaxIdleConns"),
			ConnectWaitup: v.GetDuration("dbConnectWaitup"),
		},
		Store: StoreConfig{
			Backend:      strings.ToLower(v.GetString("storeBackend")),
			Seed:         v.GetBool("storeSeed"),
			FetchTimeout: v.GetDuration("storeFetchTimeout"),
		},
		PostgREST: PostgRESTConfig{
			URL:    v.GetString("postgrestUrl"),
			APIKey: v.GetString("postgrestApiKey"),
			Schema: v.GetString("postgrestSchema"),
		},
		Gemini: GeminiConfig{
			APIKey: v.GetString("geminiApiKey"),
			Model:  v.GetString("geminiModel"),
		},
	}
}
