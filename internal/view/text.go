package view

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/ledgerview/ledgerview/internal/format"
	"github.com/ledgerview/ledgerview/internal/history"
	"github.com/ledgerview/ledgerview/internal/model"
)

// WriteBalance prints the balance line.
func WriteBalance(w io.Writer, b model.Balance) error {
	_, err := fmt.Fprintf(w, "Balance: %s\n", format.Currency(b.Balance))
	return err
}

// WriteIssues prints issues as an aligned table.
func WriteIssues(w io.Writer, txns []model.Transaction, loc *time.Location) error {
	if len(txns) == 0 {
		_, err := fmt.Fprintln(w, "No issues.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tDATE\tTYPE\tAMOUNT\tSTATUS\tDESCRIPTION")
	for _, r := range Rows(txns, loc) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Name, r.Date, r.Type, r.Amount, r.Status, r.Description)
	}
	return tw.Flush()
}

// WriteHistory prints upload attempts, oldest first.
func WriteHistory(w io.Writer, entries []history.Entry, loc *time.Location) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No uploads recorded.")
		return err
	}
	if loc == nil {
		loc = format.WIB
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tFILE\tSIZE\tOUTCOME\tMESSAGE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.In(loc).Format("2006-01-02 15:04:05"),
			e.File, format.Number(e.Size), e.Outcome, e.Message)
	}
	return tw.Flush()
}
