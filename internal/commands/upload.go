package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ledgerview/ledgerview/internal/upload"
	"github.com/ledgerview/ledgerview/internal/view"
)

func newUploadCommand(opts *globalOptions) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a CSV statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening statement: %w", err)
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return fmt.Errorf("reading statement: %w", err)
			}

			pub := a.publisher()
			defer pub.Close()

			st, err := a.uploader(pub).Do(cmd.Context(), &upload.File{
				Name: filepath.Base(args[0]),
				Size: info.Size(),
				Body: f,
			})
			if err != nil {
				return errors.New(st.Text)
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.Text)

			if !show {
				return nil
			}
			state := a.store.Transactions(cmd.Context())
			if err := state.Balance.Err; err != nil {
				return fmt.Errorf("fetching balance: %w", err)
			}
			if err := state.Issues.Err; err != nil {
				return fmt.Errorf("fetching issues: %w", err)
			}
			out := cmd.OutOrStdout()
			if err := view.WriteBalance(out, state.Balance.Value); err != nil {
				return err
			}
			return view.WriteIssues(out, state.Issues.Value, a.loc)
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "print balance and issues after a successful upload")

	return cmd
}
