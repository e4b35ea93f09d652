package main

import (
	"context"
	"fmt"
	"os"

	"github.com/MarcoPoloResearchLab/lemon/internal/cli"
	"github.com/MarcoPoloResearchLab/lemon/internal/config"
	"github.com/MarcoPoloResearchLab/lemon/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "lemon",
		Short:        "Lemon social network",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}

	setupFlags(rootCmd)
	rootCmd.AddCommand(cli.NewCommands(newRuntime)...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("storage-driver", defaults.GetString("storage.driver"), "Storage driver (directory, sqlite, memory)")
	cmd.PersistentFlags().String("storage-path", defaults.GetString("storage.path"), "Data directory or SQLite database path")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("analytics-sink", defaults.GetString("analytics.sink"), "Analytics sink (log, redis, none)")
	cmd.PersistentFlags().String("analytics-redis-address", defaults.GetString("analytics.redis_address"), "Redis address for the redis analytics sink")
	cmd.PersistentFlags().String("analytics-redis-stream", defaults.GetString("analytics.redis_stream"), "Redis stream key for analytics events")
	cmd.PersistentFlags().Int("session-ttl-minutes", defaults.GetInt("auth.session_ttl_minutes"), "Session token TTL in minutes")
	cmd.PersistentFlags().Int("bcrypt-cost", defaults.GetInt("auth.bcrypt_cost"), "bcrypt cost for new passwords")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "storage.driver", "storage-driver")
	bindFlag(cmd, "storage.path", "storage-path")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "analytics.sink", "analytics-sink")
	bindFlag(cmd, "analytics.redis_address", "analytics-redis-address")
	bindFlag(cmd, "analytics.redis_stream", "analytics-redis-stream")
	bindFlag(cmd, "auth.session_ttl_minutes", "session-ttl-minutes")
	bindFlag(cmd, "auth.bcrypt_cost", "bcrypt-cost")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	return readConfigFile(viper.GetViper(), cfgFile)
}

// readConfigFile loads path into v. An empty path keeps flags, env and defaults only, while
// an explicit path must exist and parse.
func readConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

func newRuntime(_ context.Context) (*cli.Runtime, error) {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return nil, err
	}

	rt, err := cli.NewRuntime(appConfig, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	logger.Debug("runtime ready",
		zap.String("storage_driver", appConfig.StorageDriver),
		zap.String("analytics_sink", appConfig.AnalyticsSink),
		zap.Bool("sessions", appConfig.SessionsEnabled()),
	)
	return rt, nil
}
