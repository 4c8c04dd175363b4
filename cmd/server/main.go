package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/scriptsync/internal/server"
	"github.com/openmined/scriptsync/internal/server/scripts"
	"github.com/openmined/scriptsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "SCRIPTSYNC_SERVER"

func main() {
	_ = godotenv.Load()

	logger := slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	}))
	slog.SetDefault(logger)

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "scriptsync-server",
		Short:   "ScriptSync origin server",
		Version: version.Detailed(),
	}
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Publish a directory of scripts",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := buildConfig()
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
	cmd.Flags().StringP("config", "f", "", "Server config file (json or yaml)")
	cmd.Flags().StringP("bind", "b", server.DefaultAddr, "Address to bind the server")
	cmd.Flags().StringP("root", "r", ".", "Directory to publish")
	cmd.Flags().StringSlice("include", scripts.DefaultInclude, "Published glob patterns, relative to root")
	cmd.Flags().Bool("watch", true, "Watch the root for changes instead of rescanning on every request")
	cmd.Flags().String("rate", server.DefaultRateLimit, "Rate limit per client, e.g. 600-M")
	cmd.Flags().StringP("cert", "c", "", "Path to the certificate file")
	cmd.Flags().StringP("key", "k", "", "Path to the key file")
	return cmd
}

func loadConfig(cmd *cobra.Command) error {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config read '%s': %w", path, err)
		}
	}

	flags := cmd.Flags()
	viper.BindPFlag("http.addr", flags.Lookup("bind"))
	viper.BindPFlag("http.cert_file", flags.Lookup("cert"))
	viper.BindPFlag("http.key_file", flags.Lookup("key"))
	viper.BindPFlag("scripts.root_dir", flags.Lookup("root"))
	viper.BindPFlag("scripts.include", flags.Lookup("include"))
	viper.BindPFlag("scripts.watch", flags.Lookup("watch"))
	viper.BindPFlag("rate_limit", flags.Lookup("rate"))

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()
	return nil
}

func buildConfig() *server.Config {
	return &server.Config{
		Http: &server.HttpServerConfig{
			Addr:     viper.GetString("http.addr"),
			CertFile: viper.GetString("http.cert_file"),
			KeyFile:  viper.GetString("http.key_file"),
		},
		Scripts: &scripts.Config{
			RootDir:   viper.GetString("scripts.root_dir"),
			Include:   viper.GetStringSlice("scripts.include"),
			CacheSize: viper.GetInt("scripts.cache_size"),
			Watch:     viper.GetBool("scripts.watch"),
		},
		RateLimit: viper.GetString("rate_limit"),
	}
}
