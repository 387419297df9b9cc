package export

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"ecobud/internal/core"
	"ecobud/internal/services"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// WriteTransactionTable renders rows for a terminal
func WriteTransactionTable(w io.Writer, rows []Row) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Date", "ID", "Description", "Amount", "Currency", "Interval"})
	for _, r := range rows {
		interval := "one-off"
		if !r.OneOff {
			interval = r.StartDate + " .. " + r.EndDate
		}
		desc := r.Description
		if r.Ignore {
			desc = text.FgHiBlack.Sprint(desc + " (ignored)")
		}
		t.AppendRow(table.Row{r.Date, r.ID, desc, r.Amount, r.Currency, interval})
	}
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, Align: text.AlignRight}})
	t.Render()
}

// WriteAnalyticsTable renders the per-transaction breakdown and its total
func WriteAnalyticsTable(w io.Writer, out core.AnalyticsOutput) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("%s  %s .. %s", out.Input.Username, out.Input.StartDate, out.Input.EndDate))
	t.AppendHeader(table.Row{"Date", "Description", "Amount", "Days", "Overlap", "Period cost"})
	for _, at := range out.Transactions {
		t.AppendRow(table.Row{
			at.Transaction.Date.String(),
			Label(at.Transaction),
			at.Transaction.Amount.String(),
			at.DaysInPeriod(),
			at.OverlapDays(),
			at.PeriodCost().StringFixed(2),
		})
	}
	t.AppendSeparator()
	t.AppendFooter(table.Row{"", "", "", "", text.Bold.Sprint("Total"), text.Bold.Sprint(out.PeriodCost.StringFixed(2))})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

// WriteSyncTable renders a sync run's counters and its per-item errors
func WriteSyncTable(w io.Writer, result services.SyncResult) {
	t := newTable(w)
	t.SetTitle("sync " + result.Username)
	t.AppendHeader(table.Row{"Written", "Inserted", "Merged", "Item errors"})
	t.AppendRow(table.Row{result.Count, result.Inserted, result.Merged, len(result.Errors)})
	t.Render()

	if len(result.Errors) == 0 {
		return
	}
	errs := newTable(w)
	errs.AppendHeader(table.Row{"#", "Transaction", "Error"})
	for _, e := range result.Errors {
		errs.AppendRow(table.Row{e.Index, e.TransactionID, text.FgRed.Sprint(e.Err.Error())})
	}
	errs.Render()
}
