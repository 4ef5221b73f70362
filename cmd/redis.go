package cmd

import (
	"context"
	"fmt"
	"time"

	"forumline/internal/redisclient"
	"forumline/internal/storage"

	"github.com/spf13/cobra"
)

// redisCmd groups commands for the Redis snapshot tier.
var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Inspect the Redis snapshot tier",
}

// pingCmd pings the configured Redis server.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping Redis and print PONG",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		res, err := rdb.Ping(ctx).Result()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), res)
		return nil
	},
}

var flushSnapshotCmd = &cobra.Command{
	Use:   "drop-snapshot <pub-id>",
	Short: "Remove the cached comment snapshot of a publication",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rdb := redisclient.New(cfg.Redis)
		defer rdb.Close()
		ttl, _ := time.ParseDuration(cfg.Redis.SnapshotTTL)
		if err := storage.NewRedisSnapshots(rdb, ttl).Drop(ctx, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "snapshot for %s dropped\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(redisCmd)
	redisCmd.AddCommand(pingCmd)
	redisCmd.AddCommand(flushSnapshotCmd)
}
