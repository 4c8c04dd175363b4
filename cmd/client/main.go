package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/scriptsync/internal/client"
	"github.com/openmined/scriptsync/internal/client/config"
	"github.com/openmined/scriptsync/internal/client/workspace"
	"github.com/openmined/scriptsync/internal/utils"
	"github.com/openmined/scriptsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "SCRIPTSYNC"

var logFile io.Closer

var rootCmd = &cobra.Command{
	Use:           "scriptsync",
	Short:         "ScriptSync keeps a local script directory in step with an origin server",
	Version:       version.Detailed(),
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().SortFlags = false
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "ScriptSync config file")
	rootCmd.PersistentFlags().StringP("datadir", "d", config.DefaultDataDir, "ScriptSync data directory")
	rootCmd.PersistentFlags().StringP("server", "s", config.DefaultServerURL, "Origin server URL")
	rootCmd.PersistentFlags().IntP("workers", "w", config.DefaultWorkers, "Concurrent downloads")
	rootCmd.PersistentFlags().Bool("debug", false, "Verbose console logging")
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	setupLogger(os.Stdout, nil, slog.LevelInfo)

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

// setupLogger installs tint on the console and, when file is set, a text handler next to it
func setupLogger(stdout *os.File, file io.Writer, level slog.Level) {
	stdoutHandler := tint.NewHandler(stdout, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(stdout.Fd()),
	})
	if file == nil {
		slog.SetDefault(slog.New(stdoutHandler))
		return
	}

	fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Do not include time as it is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})
	slog.SetDefault(slog.New(utils.NewMultiLogHandler(stdoutHandler, fileHandler)))
}

// logSink is the log interceptor together with the file it writes to
type logSink struct {
	*utils.LogInterceptor
	file *os.File
}

func (s *logSink) Close() error {
	return errors.Join(s.LogInterceptor.Close(), s.file.Close())
}

// openLogFile appends to <datadir>/logs/scriptsync.log through a log interceptor
func openLogFile(dataDir string) (*logSink, error) {
	ws, err := workspace.NewWorkspace(dataDir)
	if err != nil {
		return nil, err
	}
	path := ws.LogFilePath()
	if err := utils.EnsureParent(path); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &logSink{LogInterceptor: utils.NewLogInterceptor(file), file: file}, nil
}

func loadConfig(cmd *cobra.Command) error {
	viper.SetConfigFile(resolveConfigPath(cmd))
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, ok := err.(viper.ConfigFileNotFoundError)
		if !enoent && !ok {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	flags := cmd.Flags()
	viper.BindPFlag("data_dir", flags.Lookup("datadir"))
	viper.BindPFlag("server_url", flags.Lookup("server"))
	viper.BindPFlag("workers", flags.Lookup("workers"))

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	return nil
}

// buildConfig merges file, env and flags into a validated client config
func buildConfig() (*config.Config, error) {
	cfg := &config.Config{
		Path:           viper.ConfigFileUsed(),
		DataDir:        viper.GetString("data_dir"),
		ServerURL:      viper.GetString("server_url"),
		VersionsPath:   viper.GetString("versions_path"),
		FilesPath:      viper.GetString("files_path"),
		Workers:        viper.GetInt("workers"),
		ConnectTimeout: config.Duration(viper.GetDuration("connect_timeout")),
		ReadTimeout:    config.Duration(viper.GetDuration("read_timeout")),
		Retries:        config.DefaultRetries,
		CommitPolicy:   viper.GetString("commit_policy"),
		Ignore:         viper.GetStringSlice("ignore"),
		Interval:       config.Duration(viper.GetDuration("interval")),
	}
	if viper.IsSet("retries") {
		cfg.Retries = viper.GetInt("retries")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newClient builds the client and starts file logging under its data dir
func newClient(cmd *cobra.Command) (*client.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}
	cmd.SilenceUsage = true

	level := slog.LevelInfo
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = slog.LevelDebug
	}
	if sink, err := openLogFile(cfg.DataDir); err != nil {
		setupLogger(os.Stdout, nil, level)
		slog.Warn("file logging disabled", "error", err)
	} else {
		logFile = sink
		setupLogger(os.Stdout, sink, level)
	}

	slog.Debug("config", "path", cfg.Path, "datadir", cfg.DataDir, "server", cfg.ServerURL, "workers", cfg.Workers)
	return client.New(cfg)
}
