// Command folioctl is the operator CLI for the portfolio API: it checks
// configuration, pings backing services and inspects rate limits.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/folioapp/api/internal/config"
	"github.com/folioapp/api/internal/infra/postgres"
	"github.com/folioapp/api/internal/infra/redis"
	"github.com/folioapp/api/internal/ratelimit"
	"github.com/folioapp/api/pkg/logger"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "folioctl",
		Short:         "Operator tooling for the portfolio API",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newEnvCheckCmd(),
		newPingCmd(),
		newRateLimitCmd(),
	)
	return root
}

// newEnvCheckCmd reports configuration violations without starting the
// server. Exit code 1 when anything would be fatal in production.
func newEnvCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env-check",
		Short: "Validate environment configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			violations := cfg.Violations()
			if len(violations) == 0 {
				cmd.Println("configuration ok")
				return nil
			}
			for _, v := range violations {
				cmd.Printf("violation: %s\n", v)
			}
			return fmt.Errorf("%d configuration violation(s)", len(violations))
		},
	}
}

func newPingCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Ping configured backing services",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := logger.NewNop()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			var failed bool

			if cfg.Redis.Addr != "" {
				client, err := redis.New(&cfg.Redis, log)
				if err != nil {
					cmd.Printf("redis %s: %v\n", cfg.Redis.Addr, err)
					failed = true
				} else {
					defer client.Close()
					if err := client.Ping(ctx); err != nil {
						cmd.Printf("redis %s: %v\n", cfg.Redis.Addr, err)
						failed = true
					} else {
						cmd.Printf("redis %s: ok\n", cfg.Redis.Addr)
					}
				}
			} else {
				cmd.Println("redis: not configured")
			}

			if cfg.Database.URL != "" {
				db, err := postgres.Open(&cfg.Database, log)
				if err != nil {
					cmd.Printf("postgres: %v\n", err)
					failed = true
				} else {
					defer db.Close()
					cmd.Println("postgres: ok")
				}
			} else {
				cmd.Println("postgres: not configured")
			}

			if failed {
				return fmt.Errorf("one or more services unreachable")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "ping timeout")
	return cmd
}

func newRateLimitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Inspect and manage rate limits",
	}
	cmd.AddCommand(newRateLimitProbeCmd(), newRateLimitResetCmd())
	return cmd
}

// newRateLimitProbeCmd consumes from a policy for a key and prints the
// decision, which is useful to verify redis connectivity and limits.
func newRateLimitProbeCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "probe <policy> <key>",
		Short: "Consume from a rate-limit policy and print the result",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, ok := ratelimit.DefaultPolicies()[args[0]]
			if !ok {
				return fmt.Errorf("unknown policy %q", args[0])
			}

			limiter, closeFn, err := dialLimiter()
			if err != nil {
				return err
			}
			defer closeFn()

			for i := 0; i < count; i++ {
				res, err := limiter.Allow(cmd.Context(), policy, args[1])
				if err != nil {
					return err
				}
				cmd.Printf("allowed=%t limit=%d remaining=%d reset=%ds\n",
					res.Allowed, res.Limit, res.Remaining, res.ResetSeconds())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "number of checks to perform")
	return cmd
}

func newRateLimitResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <policy> <key>",
		Short: "Clear the rate-limit window for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, ok := ratelimit.DefaultPolicies()[args[0]]
			if !ok {
				return fmt.Errorf("unknown policy %q", args[0])
			}

			cfg := config.Load()
			if cfg.Redis.Addr == "" {
				return fmt.Errorf("redis not configured")
			}

			client, err := redis.New(&cfg.Redis, logger.NewNop())
			if err != nil {
				return err
			}
			defer client.Close()

			limiter, err := redis.NewRateLimiter(client, cfg.App.Name, logger.NewNop())
			if err != nil {
				return err
			}

			if err := limiter.Reset(cmd.Context(), policy, args[1]); err != nil {
				return err
			}
			cmd.Println("reset ok")
			return nil
		},
	}
}

// dialLimiter returns the redis-backed limiter when configured, the
// in-process limiter otherwise.
func dialLimiter() (ratelimit.Limiter, func(), error) {
	cfg := config.Load()
	log := logger.NewNop()

	if cfg.Redis.Addr == "" {
		return ratelimit.NewMemoryLimiter(), func() {}, nil
	}

	client, err := redis.New(&cfg.Redis, log)
	if err != nil {
		return nil, nil, err
	}

	limiter, err := redis.NewRateLimiter(client, cfg.App.Name, log)
	if err != nil {
		client.Close()
		return nil, nil, err
	}

	return limiter, func() { client.Close() }, nil
}
