package main

import (
	"context"
	"io"

	"github.com/loykin/mailrelay/internal/relay"
	"github.com/spf13/cobra"
)

type processOutput struct {
	RunID      string            `json:"run_id"`
	EventID    string            `json:"event_id"`
	Status     string            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	StatusCode int               `json:"status_code,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Error      string            `json:"error,omitempty"`
}

var processCmd = &cobra.Command{
	Use:   "process [event-file]",
	Short: "Run one event payload (stdin when omitted) through the relay pipeline",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, doc, err := loadConfig()
		if err != nil {
			return err
		}
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		raw, err := readInput(name, cmd.InOrStdin())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ledger, err := openLedger(ctx, doc)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()
		proc, err := buildProcessor(doc, ledger)
		if err != nil {
			return err
		}
		return runProcess(ctx, cmd.OutOrStdout(), proc, raw)
	},
}

func runProcess(ctx context.Context, w io.Writer, proc *relay.Processor, raw []byte) error {
	res, err := proc.Process(ctx, raw)
	if res == nil {
		return err
	}
	out := processOutput{
		RunID: res.RunID, EventID: res.EventID, Status: res.Status,
		StatusCode: res.StatusCode, Fields: res.Fields,
	}
	if res.Reason != nil {
		out.Reason = res.Reason.Error()
	}
	if err != nil {
		out.Error = err.Error()
	}
	if werr := writeJSON(w, out); werr != nil {
		return werr
	}
	return err
}
