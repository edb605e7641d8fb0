package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app       = "carbon-match"
	envPrefix = "CARBON_MATCH"
)

type Config struct {
	Server    *ServerConfig    `mapstructure:"server"`
	Metrics   *MetricsConfig   `mapstructure:"metrics"`
	Embedding *EmbeddingConfig `mapstructure:"embedding"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle-timeout"`
	CORSOrigins  []string      `mapstructure:"cors-origins"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type EmbeddingConfig struct {
	// Provider is gemini, hash or none.
	Provider  string           `mapstructure:"provider"`
	Timeout   time.Duration    `mapstructure:"timeout"`
	Dimension int              `mapstructure:"dimension"`
	RateLimit *RateLimitConfig `mapstructure:"rate-limit"`
	Breaker   *BreakerConfig   `mapstructure:"breaker"`
	Gemini    *GeminiConfig    `mapstructure:"gemini"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max-failures"`
	OpenTimeout time.Duration `mapstructure:"open-timeout"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	APIKey       string `mapstructure:"api-key"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "carbon-match scores how well a carbon removal funder and project fit together",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	setDefaults()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("embedding.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is carbon-match.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 5000)
	viper.SetDefault("server.read-timeout", 10*time.Second)
	viper.SetDefault("server.write-timeout", 30*time.Second)
	viper.SetDefault("server.idle-timeout", 60*time.Second)
	viper.SetDefault("server.cors-origins", []string{"*"})

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("embedding.provider", "gemini")
	viper.SetDefault("embedding.timeout", 10*time.Second)
	viper.SetDefault("embedding.dimension", 768)
	viper.SetDefault("embedding.rate-limit.rps", 5.0)
	viper.SetDefault("embedding.rate-limit.burst", 5)
	viper.SetDefault("embedding.breaker.max-failures", 5)
	viper.SetDefault("embedding.breaker.open-timeout", 30*time.Second)
	viper.SetDefault("embedding.gemini.api-key-file", "")
	viper.SetDefault("embedding.gemini.api-key", "")
	viper.SetDefault("embedding.gemini.model", "gemini-embedding-001")
	viper.SetDefault("embedding.gemini.max-retries", 1)
	viper.SetDefault("embedding.gemini.max-log-length", 200)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	// Every key has a default, so a missing config file is fine.
	// A file that exists but does not parse is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	return config, nil
}
