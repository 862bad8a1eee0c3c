package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledgerview/ledgerview/internal/view"
)

func newBalanceCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			res := a.store.Balance(cmd.Context())
			if res.Err != nil {
				return fmt.Errorf("fetching balance: %w", res.Err)
			}
			return view.WriteBalance(cmd.OutOrStdout(), res.Value)
		},
	}
}

func newIssuesCommand(opts *globalOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "issues",
		Short: "List transactions that did not succeed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			res := a.store.Issues(cmd.Context())
			if res.Err != nil {
				return fmt.Errorf("fetching issues: %w", res.Err)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res.Value)
			}
			return view.WriteIssues(cmd.OutOrStdout(), res.Value, a.loc)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print issues as JSON")

	return cmd
}

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recorded upload attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			if !a.history.Enabled() {
				return errors.New("upload history is disabled; set history.path in the config")
			}
			entries, err := a.history.Read()
			if err != nil {
				return err
			}
			return view.WriteHistory(cmd.OutOrStdout(), entries, a.loc)
		},
	}
}
