package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDev  = "DEV"
	EnvTest = "TEST"
	EnvQA   = "QA"
	EnvProd = "PROD"
)

var Conf *Config

type (
	Config struct {
		AppName      string
		Env          string // DEV (local; default), TEST, QA, PROD
		Build        string
		Debug        bool
		TestMode     bool
		SecretKey    string
		RollbarToken string
		WorkDir      string

		Server     ServerConfig
		StudentAPI StudentAPIConfig
		Upload     UploadConfig
	}

	ServerConfig struct {
		Address         string
		Host            string
		DebugHost       string
		DisableReqLogs  bool
		ShutdownTimeout time.Duration
		SessionTTL      time.Duration
	}

	// StudentAPIConfig points at the student REST backend receiving applications.
	StudentAPIConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	UploadConfig struct {
		MaxSize int64 // bytes
	}
)

func init() {
	Conf = NewConfig()
}

// NewConfig loads the configuration from defaults, the optional config/.env.<env> file and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "GAU-ID-View")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "gau-jwt-secret-2024")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("debugHost", ":4000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("disableReqLogs", false)
	v.SetDefault("sessionTTL", 2*time.Hour)
	v.SetDefault("apiBaseURL", "http://localhost:5000")
	v.SetDefault("apiTimeout", 10*time.Second)
	v.SetDefault("maxUploadSize", int64(5*1024*1024))

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = EnvDev
	case EnvTest:
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
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
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      wd,
		Server: ServerConfig{
			Address:         v.GetString("serverAddress"),
			Host:            v.GetString("serverHost"),
			DebugHost:       v.GetString("debugHost"),
			DisableReqLogs:  v.GetBool("disableReqLogs"),
			ShutdownTimeout: v.GetDuration("shutdownTimeout"),
			SessionTTL:      v.GetDuration("sessionTTL"),
		},
		StudentAPI: StudentAPIConfig{
			BaseURL: strings.TrimRight(v.GetString("apiBaseURL"), "/"),
			Timeout: v.GetDuration("apiTimeout"),
		},
		Upload: UploadConfig{
			MaxSize: v.GetInt64("maxUploadSize"),
		},
	}
}
