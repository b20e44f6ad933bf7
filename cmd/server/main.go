package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openmined/simlog/internal/server"
	"github.com/openmined/simlog/internal/server/blob"
	"github.com/openmined/simlog/internal/server/session"
	"github.com/openmined/simlog/internal/utils"
	"github.com/openmined/simlog/internal/version"
)

const (
	envPrefix       = "SIMLOG"
	defaultDataPath = ".data"
)

// every key is registered so that SIMLOG_* variables reach Unmarshal
var configDefaults = map[string]any{
	"http.addr":                 server.DefaultAddr,
	"http.cert_file":            "",
	"http.key_file":             "",
	"data_path":                 defaultDataPath,
	"database":                  "",
	"registry":                  "",
	"log_file":                  "",
	"max_upload_size":           0,
	"admin.password":            "",
	"admin.bcrypt_cost":         0,
	"archive.backend":           blob.BackendLocal,
	"archive.s3.bucket_name":    "",
	"archive.s3.region":         "",
	"archive.s3.access_key":     "",
	"archive.s3.secret_key":     "",
	"archive.s3.endpoint":       "",
	"archive.s3.prefix":         "",
	"archive.s3.use_accelerate": false,
	"session.ttl":               session.DefaultTTL,
	"rate_limit.register":       server.DefaultRegisterRate,
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "simlog-server",
		Short:   "simlog server",
		Version: version.Detailed(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			verbose, _ := cmd.Flags().GetBool("verbose")
			closeLog, err := setupLogger(cfg.LogFile, verbose)
			if err != nil {
				return err
			}
			defer closeLog()

			cmd.SilenceUsage = true

			srv, err := server.New(cfg)
			if err != nil {
				return err
			}
			defer slog.Info("Bye!")
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringP("config", "f", "", "path to the server config file (yaml or json)")
	cmd.Flags().StringP("bind", "b", server.DefaultAddr, "address to bind the server")
	cmd.Flags().StringP("cert", "c", "", "path to the TLS certificate file")
	cmd.Flags().StringP("key", "k", "", "path to the TLS key file")
	cmd.Flags().StringP("data", "d", defaultDataPath, "server data directory")
	cmd.Flags().BoolP("verbose", "v", false, "enable debug logs")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*server.Config, error) {
	// a missing .env is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/simlog")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}

	v.BindPFlag("http.addr", cmd.Flags().Lookup("bind"))
	v.BindPFlag("http.cert_file", cmd.Flags().Lookup("cert"))
	v.BindPFlag("http.key_file", cmd.Flags().Lookup("key"))
	v.BindPFlag("data_path", cmd.Flags().Lookup("data"))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &server.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	return cfg, nil
}

// setupLogger logs to stderr and, when logFile is set, also to that file as JSON.
func setupLogger(logFile string, verbose bool) (func(), error) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler = tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	closeFn := func() {}
	if logFile != "" {
		f, err := utils.OpenLogFile(logFile)
		if err != nil {
			return nil, err
		}
		closeFn = func() { f.Close() }
		handler = utils.NewTeeHandler(handler, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	slog.SetDefault(slog.New(handler))
	return closeFn, nil
}
