// Package view renders balance and issues for the browser and the terminal.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ledgerview/ledgerview/internal/format"
	"github.com/ledgerview/ledgerview/internal/model"
	"github.com/ledgerview/ledgerview/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// UploadPage is the data for the upload form.
type UploadPage struct {
	Message string // status text; empty renders nothing
	Failed  bool
}

// Row is one formatted issue.
type Row struct {
	Key         string
	Name        string
	Date        string
	Type        string
	Amount      string
	Status      string
	StatusClass string
	Description string
}

// TransactionsPage is the data for the balance card and issues table. Both
// come from the same store.State.
type TransactionsPage struct {
	Balance      string
	BalanceError string
	Rows         []Row
	IssuesError  string
}

// NewTransactionsPage formats st for display, with dates in loc (nil = WIB).
func NewTransactionsPage(st store.State, loc *time.Location) TransactionsPage {
	p := TransactionsPage{
		Balance: format.Currency(st.Balance.Value.Balance),
		Rows:    Rows(st.Issues.Value, loc),
	}
	if st.Balance.Err != nil {
		p.BalanceError = st.Balance.Err.Error()
	}
	if st.Issues.Err != nil {
		p.IssuesError = st.Issues.Err.Error()
	}
	return p
}

// Rows formats txns in server order.
func Rows(txns []model.Transaction, loc *time.Location) []Row {
	keys := model.Keys(txns)
	rows := make([]Row, len(txns))
	for i, t := range txns {
		label := format.Status(t.Status)
		rows[i] = Row{
			Key:         keys[i],
			Name:        t.Name,
			Date:        format.UnixDateIn(t.Timestamp, loc),
			Type:        string(t.Type),
			Amount:      format.Amount(t.Type, t.Amount),
			Status:      label.Text,
			StatusClass: label.ClassName,
			Description: t.Description,
		}
	}
	return rows
}

// RenderUpload writes the upload form page.
func RenderUpload(w io.Writer, p UploadPage) error {
	if err := pages.ExecuteTemplate(w, "upload.html", p); err != nil {
		return fmt.Errorf("rendering upload page: %w", err)
	}
	return nil
}

// RenderTransactions writes the transactions page.
func RenderTransactions(w io.Writer, p TransactionsPage) error {
	if err := pages.ExecuteTemplate(w, "transactions.html", p); err != nil {
		return fmt.Errorf("rendering transactions page: %w", err)
	}
	return nil
}
