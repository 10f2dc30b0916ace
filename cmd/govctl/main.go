// Command govctl is the operator CLI for an agora deployment.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	postgresadapter "agora/contexts/governance/proposal-engine/adapters/postgres"
	"agora/internal/app/bootstrap"
	"agora/internal/platform/config"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "govctl",
		Short:         "Operate an agora governance deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(migrateCmd(), bootstrapCmd(), organizationsCmd(), recipientsCmd())
	return cmd
}

// withRuntime builds the same wiring the API uses, from the environment.
func withRuntime(cmd *cobra.Command, fn func(context.Context, *bootstrap.Runtime) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := slog.Default().With("service", cfg.ServiceName, "process", "govctl")
	rt, err := bootstrap.BuildRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the governance and share ledger tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if err := rt.Migrate(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	}
}

func bootstrapCmd() *cobra.Command {
	var path string
	var relay bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the organizations listed in a genesis YAML file",
		Long: `Create organizations from a genesis file.

Example file:
  deployer: "0x00000000000000000000000000000000000000d0"
  organizations:
    - name: Example DAO
      symbol: EXD
      members: ["0x0000000000000000000000000000000000000001"]
      quorum: 51
      initial_supply: "1000000"
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()
			orgs, err := parseGenesis(file)
			if err != nil {
				return err
			}
			return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(out, "SEQUENCE\tORGANIZATION\tLEDGER\tSHARE/MEMBER\tREMAINDER")
				for _, org := range orgs {
					result, err := rt.Governance.Handler.Registry.CreateOrganization(ctx, org)
					if err != nil {
						_ = out.Flush()
						return fmt.Errorf("create %q: %w", org.Name, err)
					}
					fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%s\n",
						result.Entry.Sequence,
						result.Organization.OrganizationID,
						result.Organization.LedgerID,
						result.SharePerMember,
						result.Remainder,
					)
				}
				if err := out.Flush(); err != nil {
					return err
				}
				if relay {
					return rt.RelayOnce(ctx)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "Genesis YAML file")
	cmd.Flags().BoolVar(&relay, "relay", false, "Publish the resulting events before exiting")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func organizationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "organizations",
		Short: "Inspect the organization registry",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List organizations in creation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				entries, err := rt.Governance.Handler.Queries.Organizations(ctx)
				if err != nil {
					return err
				}
				out := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(out, "SEQUENCE\tORGANIZATION\tLEDGER\tCREATED")
				for _, entry := range entries {
					fmt.Fprintf(out, "%d\t%s\t%s\t%s\n",
						entry.Sequence,
						entry.OrganizationID,
						entry.LedgerID,
						entry.CreatedAt.Format(time.RFC3339),
					)
				}
				return out.Flush()
			})
		},
	})
	return cmd
}

func recipientsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipients",
		Short: "Manage payout recipients",
	}
	var reason string
	block := &cobra.Command{
		Use:   "block <address>",
		Short: "Reject future treasury payouts to an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *bootstrap.Runtime) error {
				if rt.Postgres == nil {
					return fmt.Errorf("recipients block requires POSTGRES_DSN")
				}
				gateway := postgresadapter.NewPayoutGateway(rt.Postgres.DB, rt.Logger)
				if err := gateway.BlockRecipient(ctx, args[0], reason); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "blocked %s\n", args[0])
				return nil
			})
		},
	}
	block.Flags().StringVar(&reason, "reason", "", "Reason recorded with the block")
	cmd.AddCommand(block)
	return cmd
}
