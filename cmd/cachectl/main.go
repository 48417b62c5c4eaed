// Command cachectl administers a running ArqBot API's response cache
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/briangreenhill/arqbot/internal/jobs"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd() *cobra.Command {
	var apiURL, token string

	root := &cobra.Command{
		Use:           "cachectl",
		Short:         "Inspect and maintain the ArqBot response cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&apiURL, "api", envOr("API_URL", "http://localhost:8080"), "base URL of the ArqBot API")
	root.PersistentFlags().StringVar(&token, "token", os.Getenv("ADMIN_TOKEN"), "admin bearer token")

	client := func() (*adminClient, error) {
		return newAdminClient(apiURL, token)
	}

	root.AddCommand(
		newStatsCmd(client),
		newDetailsCmd(client),
		newClearCmd(client),
		newRefreshCmd(client),
		newMaintenanceCmd(client),
		newEnqueueCmd(),
	)
	return root
}

type clientFunc func() (*adminClient, error)

func orNone(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func newStatsCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			res, err := c.do(cmd.Context(), "GET", "/api/cache", nil)
			if err != nil {
				return err
			}
			if res.Stats == nil {
				return fmt.Errorf("response carried no stats")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\nOldest:  %s\nNewest:  %s\nTTL:     %g days\n",
				res.Stats.Size, orNone(res.Stats.OldestEntryDate), orNone(res.Stats.NewestEntryDate), res.Stats.ExpirationDays)
			return nil
		},
	}
}

func newDetailsCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "details",
		Short: "Show the age distribution and the oldest entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			res, err := c.do(cmd.Context(), "GET", "/api/cache/stats", nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if d := res.AgeDistribution; d != nil {
				fmt.Fprintf(out, "< 1 day:  %d\n1-3 days: %d\n3-5 days: %d\n> 5 days: %d\n",
					d.LessThanOneDay, d.OneToThreeDays, d.ThreeToFiveDays, d.MoreThanFiveDays)
			}
			for _, e := range res.OldestEntries {
				fmt.Fprintf(out, "%3dd  %s\n", e.AgeInDays, e.Key)
			}
			return nil
		},
	}
}

func newClearCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			res, err := c.do(cmd.Context(), "DELETE", "/api/cache", nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
}

func newRefreshCmd(client clientFunc) *cobra.Command {
	var threshold time.Duration

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refresh entries older than a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			body := map[string]any{}
			if threshold > 0 {
				body["threshold"] = threshold.Milliseconds()
			}
			res, err := c.do(cmd.Context(), "POST", "/api/cache/refresh", body)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d refreshed)\n", res.Message, res.Refreshed)
			return nil
		},
	}
	cmd.Flags().DurationVar(&threshold, "threshold", 0, "refresh entries older than this (default 120h)")
	return cmd
}

func newMaintenanceCmd(client clientFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Run the scheduled maintenance task now",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			res, err := c.do(cmd.Context(), "GET", "/api/scheduled-tasks/cache-maintenance", nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at %s (%d refreshed)\n", res.Message, res.Timestamp, res.Refreshed)
			return nil
		},
	}
}

func newEnqueueCmd() *cobra.Command {
	var redisAddr string

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a maintenance task for the worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			task, err := jobs.NewCacheMaintenanceTask("cachectl",
				asynq.TaskID(uuid.NewString()),
				asynq.MaxRetry(3),
			)
			if err != nil {
				return err
			}

			client := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
			defer func() { _ = client.Close() }()

			info, err := client.EnqueueContext(cmd.Context(), task)
			if err != nil {
				return fmt.Errorf("enqueue: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enqueued task: id=%s queue=%s\n", info.ID, info.Queue)
			return nil
		},
	}
	cmd.Flags().StringVar(&redisAddr, "redis", envOr("REDIS_ADDR", "localhost:6379"), "redis address used by the worker")
	return cmd
}
