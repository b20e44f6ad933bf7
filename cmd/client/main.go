package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openmined/simlog/internal/client/config"
	"github.com/openmined/simlog/internal/client/credentials"
	"github.com/openmined/simlog/internal/client/privilege"
	"github.com/openmined/simlog/internal/client/runner"
	"github.com/openmined/simlog/internal/simsdk"
	"github.com/openmined/simlog/internal/version"
)

const envPrefix = "SIMLOG"

var home, _ = os.UserHomeDir()

// capability raises the rights of a setuid binary for credential writes. It stays nil
// otherwise.
var capability credentials.Elevator

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simlog [flags] [command...]",
		Short: "Run a simulation and record its logs",
		Long: `simlog hashes the tracked input files of the working directory, runs the given
command and uploads the directory to the simlog server, linked to the revision it
was derived from.`,
		Example: `  simlog --coll melt ./lmp -in in.melt
  simlog --compress --dir ./run1
  simlog --update --dir ./run1`,
		Args:    cobra.ArbitraryArgs,
		Version: version.Detailed(),
		RunE: func(cmd *cobra.Command, args []string) error {
			compress, _ := cmd.Flags().GetBool("compress")
			update, _ := cmd.Flags().GetBool("update")

			switch {
			case len(args) == 0 && !compress && !update:
				return cmd.Help()
			case len(args) > 0 && (compress || update):
				return fmt.Errorf("--compress and --update take no command")
			case compress && update:
				return fmt.Errorf("--compress and --update are exclusive")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			cmd.SilenceUsage = true

			r, err := newRunner(cmd, cfg)
			if err != nil {
				return err
			}
			if err := r.Authenticate(cmd.Context()); err != nil {
				return err
			}

			opts := &runner.Options{Update: update, Command: args}
			opts.Dir, _ = cmd.Flags().GetString("dir")
			opts.Collection, _ = cmd.Flags().GetString("coll")
			opts.Name, _ = cmd.Flags().GetString("name")
			opts.Force, _ = cmd.Flags().GetBool("force")

			_, err = r.Run(cmd.Context(), opts)
			return err
		},
	}

	// everything after the first positional argument belongs to the command
	cmd.Flags().SetInterspersed(false)
	cmd.Flags().SortFlags = false
	cmd.Flags().String("coll", "", "collection of the run, defaults to the one of the last revision")
	cmd.Flags().String("name", "", "upload name, defaults to the directory name")
	cmd.Flags().Bool("force", false, "upload even when the parent revision is unknown to the server")
	cmd.Flags().Bool("update", false, "fetch the latest revision of the collection into the directory")
	cmd.Flags().BoolP("compress", "c", false, "archive and upload the directory without running a command")
	cmd.Flags().String("dir", "", "working directory, defaults to the -in argument of the command")

	cmd.PersistentFlags().StringP("server", "s", "", "simlog server url")
	cmd.PersistentFlags().StringP("user", "u", "", "user name")
	cmd.PersistentFlags().String("config", config.DefaultConfigPath, "simlog config file")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logs")

	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogger(verbose)
	}

	cmd.AddCommand(newCleanCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func main() {
	c, err := privilege.Drop()
	if err != nil {
		fmt.Fprintln(os.Stderr, red.Render("drop privileges: "+err.Error()))
		os.Exit(1)
	}
	capability = c

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogger(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	configPath := resolveConfigPath(cmd)
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", configPath, err)
		}
	}

	v.SetDefault("username", "")
	v.SetDefault("server", "")
	v.SetDefault("tracked_files", []string{})
	v.SetDefault("credentials_path", config.DefaultCredentialsPath)

	v.BindPFlag("username", cmd.Flags().Lookup("user"))
	v.BindPFlag("server", cmd.Flags().Lookup("server"))

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}
	cfg.Path = configPath
	return cfg, nil
}

func newRunner(cmd *cobra.Command, cfg *config.Config) (*runner.Runner, error) {
	api, err := simsdk.New(cfg.Server)
	if err != nil {
		return nil, err
	}
	keys := credentials.New(cfg.CredentialsPath, capability)
	return runner.New(cfg, api, keys, promptPassword, cmd.OutOrStdout()), nil
}
