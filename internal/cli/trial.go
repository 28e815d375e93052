package cli

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/andyarntsen-alt/jobbstart-sub001/internal/config"
	"github.com/andyarntsen-alt/jobbstart-sub001/internal/logging"
	"github.com/andyarntsen-alt/jobbstart-sub001/middleware/quota/domain"
)

func newTrialCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trial",
		Short: "Inspect or record free-trial usage",
	}
	cmd.AddCommand(
		newTrialCheckCmd(envFile),
		newTrialConsumeCmd(envFile),
	)
	return cmd
}

func newTrialCheckCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:     "check <client-ip>",
		Short:   "Print the usage recorded for a client",
		Example: `  jobbstart trial check 203.0.113.7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, *envFile, func(ctx context.Context, be *backend) error {
				u, err := be.tracker.Check(ctx, domain.ClientKey(args[0]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), u)
			})
		},
	}
}

func newTrialConsumeCmd(envFile *string) *cobra.Command {
	return &cobra.Command{
		Use:     "consume <client-ip>",
		Short:   "Record one use for a client and print the new usage",
		Example: `  jobbstart trial consume 203.0.113.7`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, *envFile, func(ctx context.Context, be *backend) error {
				key := domain.ClientKey(args[0])
				if err := be.tracker.Consume(ctx, key); err != nil {
					return err
				}
				u, err := be.tracker.Check(ctx, key)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), u)
			})
		},
	}
}

func withBackend(cmd *cobra.Command, envFile string, fn func(ctx context.Context, be *backend) error) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	if cfg.QuotaBackend() == config.BackendMemory {
		logger.Warn("memory backend is process-local, nothing is persisted")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = be.Close() }()

	return fn(ctx, be)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
