package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pedezap/pedezap/internal/config"
	"github.com/pedezap/pedezap/internal/convstate"
	"github.com/pedezap/pedezap/internal/domain"
	"github.com/pedezap/pedezap/internal/gateway"
	"github.com/pedezap/pedezap/internal/intent"
	"github.com/pedezap/pedezap/internal/llm"
	"github.com/pedezap/pedezap/internal/logging"
	"github.com/pedezap/pedezap/internal/routing"
	"github.com/pedezap/pedezap/internal/session"
	"github.com/pedezap/pedezap/internal/store"
	"github.com/pedezap/pedezap/internal/transport/whatsapp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the PedeZap server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			// the --log-level flag wins over the config file
			if logLevel == "" {
				log = logging.New(nil, cfg.Logging.Level)
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			db, err := store.Open(cfg.Store.Path, log)
			if err != nil {
				return fmt.Errorf("opening database: %w", err)
			}
			defer db.Close()

			tenants := store.NewTenantStore(db)
			catalog := store.NewCatalogStore(db)
			orders := store.NewOrderStore(db)

			client, err := llm.New(cfg.AI.Provider, cfg.AI.APIKey, cfg.AI.Model)
			if err != nil {
				return fmt.Errorf("initializing AI provider: %w", err)
			}
			classifier := intent.NewClassifier(client, cfg.AI.MaxTokens, log)
			log.Info().Str("provider", client.Name()).Str("model", cfg.AI.Model).Msg("AI provider ready")

			if err := os.MkdirAll(cfg.WhatsApp.SessionDir, 0o755); err != nil {
				return fmt.Errorf("creating session directory: %w", err)
			}
			manager := session.NewManager(func(tenantID string) (domain.Transport, error) {
				return whatsapp.New(tenantID, cfg.WhatsApp.SessionDir, log), nil
			}, log)

			router := routing.NewRouter(manager, tenants, catalog, orders, classifier, convstate.NewStore(), log)
			manager.OnInbound(router.HandleInbound)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			defer manager.StopAll(context.Background())

			srv := gateway.New(cfg.Server, manager, orders, log)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override server port")

	return cmd
}
