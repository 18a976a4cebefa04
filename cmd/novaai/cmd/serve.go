package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abdul34602/novaaipro1/internal/activity"
	"github.com/abdul34602/novaaipro1/internal/api"
	"github.com/abdul34602/novaaipro1/internal/attach"
	"github.com/abdul34602/novaaipro1/internal/chat"
	"github.com/abdul34602/novaaipro1/internal/config"
	"github.com/abdul34602/novaaipro1/internal/events"
	"github.com/abdul34602/novaaipro1/internal/gateway"
	"github.com/abdul34602/novaaipro1/internal/persona"
	"github.com/abdul34602/novaaipro1/internal/storage"
)

var (
	addr     string
	inMemory bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the NovaAI API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			log.SetLevel(log.DebugLevel)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.Addr = addr
		}
		if cfg.APIKey == "" {
			log.Warn("No API key configured; remote model calls will fail", "env", "GEMINI_API_KEY")
		}

		var store storage.ChatStore
		if inMemory {
			store = storage.NewMemoryStore()
			log.Info("Using in-memory session store")
		} else {
			store, err = storage.NewDefaultSQLiteStore()
			if err != nil {
				return err
			}
		}
		defer store.Close()

		settings := config.NewSettingsStore(cfg)
		sink := activity.NewLog()
		broker := events.NewBroker[chat.SessionUpdate]()
		defer broker.Shutdown()

		registry := persona.NewRegistry(store)
		gw := gateway.New(cfg, settings, sink)
		runner := chat.NewRunner(store, gw, registry, broker)

		server := api.NewServer(api.Deps{
			Config:   cfg,
			Settings: settings,
			Store:    store,
			Runner:   runner,
			Personas: registry,
			Ingestor: attach.NewIngestor(cfg.AttachmentLimit),
			Activity: sink,
			Broker:   broker,
		})

		done := make(chan os.Signal, 1)
		signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.Addr)
		}()
		log.Info("NovaAI backend active", "addr", cfg.Addr)

		select {
		case err := <-errCh:
			return err
		case <-done:
			log.Info("Shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.Stop(ctx)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&inMemory, "memory", false, "use the in-memory session store")
	rootCmd.AddCommand(serveCmd)
}
