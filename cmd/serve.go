package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spigell/carbon-match/internal/logger"
	"github.com/spigell/carbon-match/internal/metrics"
	"github.com/spigell/carbon-match/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scoring API over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "", "address to listen on (default from server.host)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (default from server.port)")

	viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync() //nolint:errcheck

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the carbon-match api", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	var reg *metrics.Registry
	if config.Metrics.Enabled {
		reg = metrics.New(true)
	}

	engine := newEngine(ctx, config.Embedding, logger, reg)

	srv := server.New(server.Config{
		Host:         config.Server.Host,
		Port:         config.Server.Port,
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
		IdleTimeout:  config.Server.IdleTimeout,
		CORSOrigins:  config.Server.CORSOrigins,
		MetricsPath:  config.Metrics.Path,
	}, engine, logger, reg)

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.Fatal("serving", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

// redacted returns a copy of the config safe for logging.
func redacted(config *Config) Config {
	out := *config
	if config.Embedding != nil && config.Embedding.Gemini != nil && config.Embedding.Gemini.APIKey != "" {
		embedding := *config.Embedding
		gemini := *config.Embedding.Gemini
		gemini.APIKey = "<redacted>"
		embedding.Gemini = &gemini
		out.Embedding = &embedding
	}
	return out
}
