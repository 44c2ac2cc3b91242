package main

import (
	"context"
	"io"

	"github.com/loykin/mailrelay/internal/config"
	"github.com/loykin/mailrelay/pkg/extract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var extractCmd = &cobra.Command{
	Use:   "extract [text-file]",
	Short: "Print the properties the configured descriptors extract from a text (stdin when omitted)",
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
		text, err := readInput(name, cmd.InOrStdin())
		if err != nil {
			return err
		}
		if viper.GetBool("values") {
			return runExtractValues(cmd.OutOrStdout(), doc, string(text))
		}
		return runExtract(cmd.Context(), cmd.OutOrStdout(), doc, string(text))
	},
}

func runExtract(ctx context.Context, w io.Writer, doc *config.ConfigDoc, text string) error {
	ds, err := doc.DescriptorSet()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	fields, err := extract.ExtractAllParallel(ctx, text, ds, doc.Parallelism)
	if err != nil {
		return err
	}
	return writeJSON(w, fields)
}

// runExtractValues prints every occurrence per target without joining.
// Duplicate targets keep the last descriptor, as in ExtractAll.
func runExtractValues(w io.Writer, doc *config.ConfigDoc, text string) error {
	ds, err := doc.DescriptorSet()
	if err != nil {
		return err
	}
	out := make(map[string][]string, len(ds))
	for _, d := range ds {
		vals, err := extract.Values(text, d)
		if err != nil {
			return err
		}
		if vals == nil {
			vals = []string{}
		}
		out[d.Target] = vals
	}
	return writeJSON(w, out)
}
