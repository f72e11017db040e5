// Package reconcile provides the jitgroups CLI's "reconcile" subcommand.
//
// Reconciliation needs a live CloudIdentity and ResourceManager — the cloud
// API clients the specification explicitly excludes from the core — so this
// command cannot wire a working Provisioner on its own. Embedding
// applications that do have those clients construct a *provisioner.Provisioner
// and pass it to NewCommand; the standalone binary built from cmd/jitgroups
// reports that precondition instead of silently doing nothing.
package reconcile

import (
	"fmt"

	"github.com/spf13/cobra"

	internalcatalog "go.miloapis.com/jitgroups/internal/catalog"
	"go.miloapis.com/jitgroups/internal/policystore/postgres"
	"go.miloapis.com/jitgroups/internal/principal"
	"go.miloapis.com/jitgroups/internal/provisioner"
)

// NewCommand builds the `reconcile` command. prov may be nil when called
// from the standalone CLI binary; an embedding application that has real
// cloud capabilities wired should build this command with its own
// Provisioner instead of relying on the binary's default wiring.
func NewCommand(prov *provisioner.Provisioner) *cobra.Command {
	var dsn, subjectEmail, environment string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile one environment's provisioned groups against its policy tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if prov == nil {
				return fmt.Errorf("reconcile: no Provisioner configured — this binary has no cloud identity/resource manager client wired; build a custom command with reconcile.NewCommand(prov) from an embedding application")
			}
			if dsn == "" || subjectEmail == "" || environment == "" {
				return fmt.Errorf("--dsn, --subject, and --environment are all required")
			}

			ctx := cmd.Context()

			store, err := postgres.Open(ctx, dsn, nil)
			if err != nil {
				return fmt.Errorf("connecting to policy store: %w", err)
			}
			defer store.Close()

			subject := principal.NewSubject(principal.User(subjectEmail))
			cache := internalcatalog.NewPolicyCache(store, 0)
			cat := internalcatalog.New(cache, store, prov, subject)

			env, err := cat.Environment(environment)
			if err != nil {
				return err
			}
			if env == nil {
				return fmt.Errorf("subject %s lacks RECONCILE on environment %q, or it does not exist", subjectEmail, environment)
			}

			report, err := env.Reconcile(ctx)
			if err != nil {
				return err
			}
			if report == nil {
				return fmt.Errorf("subject %s lacks RECONCILE on environment %q", subjectEmail, environment)
			}

			for _, g := range report.Groups {
				if g.Err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%v\n", g.Group, g.Status, g.Err)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", g.Group, g.Status)
				}
			}
			for _, inc := range report.Incompatibilities {
				fmt.Fprintf(cmd.OutOrStdout(), "incompatible\t%s\t%s\t%s\n", inc.ResourceID, inc.Role, inc.Description)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dsn, "dsn", "", "Postgres connection string for the policy store")
	cmd.Flags().StringVar(&subjectEmail, "subject", "", "Email of the user to reconcile as")
	cmd.Flags().StringVar(&environment, "environment", "", "Environment to reconcile")

	return cmd
}
