// Package catalog provides the jitgroups CLI's read-only "catalog list"
// subcommand: a thin wrapper over internal/catalog for operators to inspect
// what a given subject can see, distinct from the HTTP/REST surface the
// specification excludes.
package catalog

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	internalcatalog "go.miloapis.com/jitgroups/internal/catalog"
	"go.miloapis.com/jitgroups/internal/policystore/postgres"
	"go.miloapis.com/jitgroups/internal/principal"
)

// NewCommand builds the `catalog` command group.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the policy catalog as a given subject",
	}
	cmd.AddCommand(newListCommand())
	return cmd
}

func newListCommand() *cobra.Command {
	var dsn, subjectEmail, environment string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List environments, or a single environment's systems and groups, visible to a subject",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("--dsn is required")
			}
			if subjectEmail == "" {
				return fmt.Errorf("--subject is required")
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			store, err := postgres.Open(ctx, dsn, nil)
			if err != nil {
				return fmt.Errorf("connecting to policy store: %w", err)
			}
			defer store.Close()

			subject := principal.NewSubject(principal.User(subjectEmail))
			cache := internalcatalog.NewPolicyCache(store, 0)
			cat := internalcatalog.New(cache, store, nil, subject)

			if environment == "" {
				headers, err := cat.Environments(ctx)
				if err != nil {
					return err
				}
				for _, h := range headers {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", h.Name, h.Description)
				}
				return nil
			}

			env, err := cat.Environment(environment)
			if err != nil {
				return err
			}
			if env == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "(no access to environment %q)\n", environment)
				return nil
			}
			for _, sys := range env.Systems() {
				for _, grp := range sys.Groups() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/%s/%s\t%s\n", environment, sys.Name(), grp.ID().Name, grp.Description())
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres connection string for the policy store")
	cmd.Flags().StringVar(&subjectEmail, "subject", "", "Email of the user to view the catalog as")
	cmd.Flags().StringVar(&environment, "environment", "", "Limit the listing to one environment's systems and groups")

	return cmd
}
