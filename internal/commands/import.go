package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerview/ledgerview/internal/inbox"
	"github.com/ledgerview/ledgerview/internal/upload"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Upload every CSV statement in a directory",
		Long: "Uploads each .csv file in dir in name order. Accepted files are moved to\n" +
			"dir/processed unless --keep is set; failed files stay for another try.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			return runImport(cmd, a, args[0], keep)
		},
	}

	cmd.Flags().BoolVar(&keep, "keep", false, "leave uploaded files in place")

	return cmd
}

func runImport(cmd *cobra.Command, a *app, dir string, keep bool) error {
	files, err := inbox.Scan(dir)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(files) == 0 {
		fmt.Fprintf(out, "No CSV files in %s\n", dir)
		return nil
	}

	pub := a.publisher()
	defer pub.Close()
	up := a.uploader(pub)

	failed := 0
	for _, fi := range files {
		st, err := uploadPath(cmd, up, fi)
		fmt.Fprintf(out, "%s: %s\n", fi.Name, st.Text)
		if err != nil {
			failed++
			continue
		}
		if keep {
			continue
		}
		if err := inbox.MarkProcessed(dir, fi.Name); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(files))
	}
	return nil
}

func uploadPath(cmd *cobra.Command, up *upload.Uploader, fi inbox.FileInfo) (upload.Status, error) {
	f, err := os.Open(fi.Path)
	if err != nil {
		return upload.Status{Kind: upload.KindFailed, Text: err.Error()}, err
	}
	defer f.Close()
	return up.Do(cmd.Context(), &upload.File{Name: fi.Name, Size: fi.Size, Body: f})
}
