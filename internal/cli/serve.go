package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mnemoshq/mnemos/internal/compose"
	"github.com/mnemoshq/mnemos/internal/distill"
	"github.com/mnemoshq/mnemos/internal/server"
	"github.com/mnemoshq/mnemos/internal/store"
	"github.com/mnemoshq/mnemos/internal/usage"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service and the distillation scheduler",
		Run:   runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Listen port (default from config)")
	cmd.Flags().Bool("no-scheduler", false, "Disable the nightly distillation scheduler")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	s, idx, embedder := openStore(cfg)
	defer s.Close()

	indexed, err := s.ReindexLTM(cmd.Context())
	if err != nil {
		exitErr("reindex", err)
	}
	log.Info("semantic index rebuilt", "records", indexed)

	session, err := store.NewRistrettoSessionStore(cfg.Memory.SessionCacheMB, cfg.Memory.STMTTL, cfg.Memory.STMMaxSize)
	if err != nil {
		exitErr("session store", err)
	}
	defer session.Close()

	engine := distill.NewEngine(s, embedder, cfg.Distill, cfg.Memory, log)
	composer := compose.New(cfg.Context, s, session, idx, embedder, log)
	meter := usage.NewMeter(s, cfg.Quota)

	srv := server.New(cfg, server.Deps{
		Store:    s,
		Session:  session,
		Index:    idx,
		Embedder: embedder,
		Composer: composer,
		Engine:   engine,
		Meter:    meter,
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if noSched, _ := cmd.Flags().GetBool("no-scheduler"); !noSched {
		go distill.NewScheduler(engine, cfg.Distill.ScheduleHourUTC, log).Start(ctx)
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Listen("0.0.0.0:" + cfg.Port)
	}()

	select {
	case err := <-errc:
		if err != nil {
			exitErr("serve", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		if err := srv.Shutdown(); err != nil {
			log.Error("shutdown", "error", err)
		}
	}
}
