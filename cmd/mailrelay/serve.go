package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/loykin/mailrelay/internal/common"
	"github.com/loykin/mailrelay/internal/config"
	"github.com/loykin/mailrelay/internal/server"
	"github.com/loykin/mailrelay/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept email events over HTTP and relay them",
	RunE: func(cmd *cobra.Command, args []string) error {
		v, doc, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ledger, err := openLedger(ctx, doc)
		if err != nil {
			return err
		}
		defer func() { _ = ledger.Close() }()
		proc, err := buildProcessor(doc, ledger)
		if err != nil {
			return err
		}
		addr, path := doc.ServerAddr()
		srv := server.New(proc, path)

		if viper.GetBool("watch") && v.ConfigFileUsed() != "" {
			watchConfig(v, srv, ledger)
		}
		return srv.ListenAndServe(ctx, addr)
	},
}

// watchConfig rebuilds the processor on config changes. Store, server and
// logging settings need a restart.
func watchConfig(v *viper.Viper, srv *server.Server, ledger *store.Store) {
	logger := common.GetLogger().WithComponent("serve")
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		doc, err := config.FromViper(v)
		if err != nil {
			logger.Error("config reload failed", "file", e.Name, "error", err)
			return
		}
		proc, err := buildProcessor(doc, ledger)
		if err != nil {
			logger.Error("config reload rejected", "file", e.Name, "error", err)
			return
		}
		srv.SetProcessor(proc)
		logger.Info("config reloaded", "file", e.Name)
	})
	v.WatchConfig()
}
