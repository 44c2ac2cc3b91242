package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:           "mailrelay",
	Short:         "Extract properties from email events and relay them as notification triggers",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	v := viper.GetViper()
	v.SetDefault("config", "./config.yaml")
	v.SetDefault("no_store", false)
	v.SetDefault("limit", 20)
	v.SetDefault("watch", false)
	v.SetDefault("values", false)

	rootCmd.PersistentFlags().String("config", v.GetString("config"), "path to the mailrelay config yaml")
	rootCmd.PersistentFlags().Bool("no-store", v.GetBool("no_store"), "disable the processed-event ledger")
	historyCmd.Flags().Int("limit", v.GetInt("limit"), "number of ledger records to show")
	extractCmd.Flags().Bool("values", v.GetBool("values"), "print every occurrence per target as a list instead of joined values")
	serveCmd.Flags().Bool("watch", v.GetBool("watch"), "reload descriptors and notify settings when the config file changes")

	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("no_store", rootCmd.PersistentFlags().Lookup("no-store"))
	_ = v.BindPFlag("limit", historyCmd.Flags().Lookup("limit"))
	_ = v.BindPFlag("values", extractCmd.Flags().Lookup("values"))
	_ = v.BindPFlag("watch", serveCmd.Flags().Lookup("watch"))

	rootCmd.AddCommand(extractCmd, processCmd, serveCmd, validateCmd, historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitHandler.LogFatalError(err, "command execution failed")
	}
}
