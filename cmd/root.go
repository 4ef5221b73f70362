package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"forumline/internal/blob"
	"forumline/internal/config"
	"forumline/internal/forum"
	"forumline/internal/model"
	"forumline/internal/redisclient"
	"forumline/internal/storage"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	actorID string
	appCfg  config.Config
)

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:           "forumline",
	Short:         "Forumline CLI",
	Long:          "Subforums, publications and threaded discussions from the terminal.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&actorID, "as", "", "act as this user id (overrides user.id)")
}

func initConfig() {
	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/forumline")
		v.AddConfigPath("configs")
	}
	v.SetEnvPrefix("FORUMLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{
		"app.log_level", "user.id",
		"database.driver", "database.dsn", "database.migrations",
		"redis.addr", "redis.password", "redis.disabled",
		"blob.base_url", "blob.api_key",
		"openai.api_key", "openai.model", "openai.base_url",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&appCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)
		os.Exit(1)
	}

	appCfg.FillDefaults()
	if actorID != "" {
		appCfg.User.ID = actorID
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: appCfg.App.SlogLevel()})))
}

// GetConfig exposes the loaded configuration to subcommands.
func GetConfig() config.Config {
	return appCfg
}

// session bundles what most commands need and releases it on Close.
type session struct {
	cfg   config.Config
	store storage.Store
	forum *forum.Service
	close []func()
}

func (s *session) Close() {
	for i := len(s.close) - 1; i >= 0; i-- {
		s.close[i]()
	}
}

// openSession connects the store, the optional Redis snapshot tier and the
// optional image store, and builds the forum service over them.
func openSession(ctx context.Context) (*session, error) {
	cfg := GetConfig()
	store, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, store: store}
	s.close = append(s.close, func() { _ = store.Close() })

	opts := forum.Options{
		Actor: cfg.User.ID,
		Order: model.ParseCommentOrder(cfg.Thread.Order),
	}
	rdb, err := redisclient.Connect(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, snapshots stay in memory", "error", err)
	} else if rdb != nil {
		s.close = append(s.close, func() { _ = rdb.Close() })
		ttl, err := time.ParseDuration(cfg.Redis.SnapshotTTL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("invalid redis.snapshot_ttl: %w", err)
		}
		opts.Snapshots = storage.NewRedisSnapshots(rdb, ttl)
		opts.SnapshotMaxAge = ttl
	}
	timeout, err := time.ParseDuration(cfg.Blob.Timeout)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("invalid blob.timeout: %w", err)
	}
	if bc := blob.New(blob.Config{
		BaseURL:     cfg.Blob.BaseURL,
		APIKey:      cfg.Blob.APIKey,
		Bucket:      cfg.Blob.Bucket,
		WebPQuality: cfg.Blob.WebPQuality,
		Timeout:     timeout,
	}); bc != nil {
		opts.Images = bc
	}
	s.forum = forum.NewService(store, opts)
	return s, nil
}

// withSession runs fn with an open session and a bounded context.
func withSession(timeout time.Duration, fn func(ctx context.Context, s *session) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// optionalID turns an empty flag value into nil.
func optionalID(s string) *string {
	return model.StringPtr(strings.TrimSpace(s))
}
