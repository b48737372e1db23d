package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkale/sitewalk/internal/channel"
	discordadapter "github.com/mkale/sitewalk/internal/channel/discord"
	slackadapter "github.com/mkale/sitewalk/internal/channel/slack"
	"github.com/mkale/sitewalk/internal/config"
	"github.com/mkale/sitewalk/internal/db"
	"github.com/mkale/sitewalk/internal/deferred"
	"github.com/mkale/sitewalk/internal/digest"
	"github.com/mkale/sitewalk/internal/flow"
	"github.com/mkale/sitewalk/internal/gateway"
	"github.com/mkale/sitewalk/internal/httpapi"
	"github.com/mkale/sitewalk/internal/session"
	"github.com/mkale/sitewalk/internal/storage"
	"github.com/mkale/sitewalk/internal/store"
	"github.com/mkale/sitewalk/internal/tools"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Sitewalk assistant",
		Long:  "Connects to the configured chat platforms, listens for inspector messages, and serves the operations API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to Sitewalk config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Connect(cfg.DB)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}
	st, err := store.New(gormDB)
	if err != nil {
		return err
	}

	sessions, err := session.NewBadgerStore(session.BadgerStoreOpts{
		Path: cfg.Session.Path,
		TTL:  time.Duration(cfg.Session.TTLMinutes) * time.Minute,
	})
	if err != nil {
		return err
	}
	defer sessions.Close()

	mode, err := deferred.ParseMode(cfg.Writes.Mode)
	if err != nil {
		return err
	}
	coord, err := deferred.NewCoordinator(deferred.CoordinatorOpts{Store: st, Mode: mode})
	if err != nil {
		return err
	}
	machine, err := flow.NewMachine(flow.MachineOpts{Store: st, Coordinator: coord})
	if err != nil {
		return err
	}
	dispatcher, err := tools.NewDispatcher(tools.DispatcherOpts{
		Sessions: sessions,
		Machine:  machine,
		Store:    st,
	})
	if err != nil {
		return err
	}
	gw, err := gateway.New(gateway.GatewayOpts{
		APIKey:     cfg.OpenAI.APIKey,
		Model:      cfg.OpenAI.Model,
		Dispatcher: dispatcher,
	})
	if err != nil {
		return err
	}

	var objects storage.ObjectStore
	if cfg.GCS.Bucket != "" {
		objects, err = storage.NewGCS(ctx, storage.GCSOpts{
			Bucket:          cfg.GCS.Bucket,
			CredentialsFile: cfg.GCS.CredentialsFile,
		})
		if err != nil {
			return err
		}
	} else {
		log.Printf("serve: no gcs bucket configured, media uploads stay in memory")
		objects = storage.NewMemory()
	}
	defer objects.Close()

	adapters, err := buildAdapters(cfg)
	if err != nil {
		return err
	}

	router, err := channel.NewRouter(channel.RouterOpts{
		Adapters:   adapters,
		Runner:     gw,
		Dispatcher: dispatcher,
		Objects:    objects,
	})
	if err != nil {
		return err
	}
	defer router.Close()

	if cfg.Digest.Cron != "" {
		dg, err := digest.New(digest.Opts{
			DB:        gormDB,
			Sender:    adapters[0],
			ChannelID: cfg.Digest.Channel,
			Spec:      cfg.Digest.Cron,
		})
		if err != nil {
			return err
		}
		if err := dg.Start(ctx); err != nil {
			return err
		}
		defer dg.Stop()
	}

	errc := make(chan error, 2)
	go func() {
		errc <- httpapi.Start(ctx, httpapi.StartOpts{
			DB:   gormDB,
			Port: cfg.HTTP.Port,
			Out:  cmd.OutOrStdout(),
		})
	}()
	go func() {
		errc <- router.Run(ctx)
	}()

	fmt.Fprintln(cmd.OutOrStdout(), "Sitewalk assistant running. Press Ctrl-C to stop.")

	select {
	case <-ctx.Done():
		return nil
	case err := <-errc:
		if err != nil && ctx.Err() == nil {
			return err
		}
		return nil
	}
}

// buildAdapters creates one adapter per configured platform. The digest
// sender uses the first adapter, so Slack wins when both are configured.
func buildAdapters(cfg *config.Config) ([]channel.Adapter, error) {
	var adapters []channel.Adapter
	if cfg.Slack.BotToken != "" {
		sa, err := slackadapter.New(slackadapter.AdapterOpts{
			AppToken: cfg.Slack.AppToken,
			BotToken: cfg.Slack.BotToken,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, sa)
	}
	if cfg.Discord.BotToken != "" {
		da, err := discordadapter.New(discordadapter.AdapterOpts{
			BotToken: cfg.Discord.BotToken,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, da)
	}
	if len(adapters) == 0 {
		return nil, fmt.Errorf("serve: no chat platform configured")
	}
	return adapters, nil
}
