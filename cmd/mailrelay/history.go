package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/loykin/mailrelay/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently processed events from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, doc, err := loadConfig()
		if err != nil {
			return err
		}
		if doc.Store.Disabled {
			return errors.New("store is disabled - no history available")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ledger, err := store.Open(ctx, doc.Store)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()
		recs, err := ledger.List(ctx, viper.GetInt("limit"))
		if err != nil {
			return err
		}
		return printHistory(cmd.OutOrStdout(), recs)
	},
}

func printHistory(w io.Writer, recs []store.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "no events recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROCESSED AT\tEVENT\tSTATUS\tCODE\tRUN\tERROR")
	for _, r := range recs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ProcessedAt.Format(time.RFC3339), r.EventID, r.Status, r.StatusCode, r.RunID, r.Error)
	}
	return tw.Flush()
}
