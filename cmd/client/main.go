package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dobble-client/internal/bridge"
	"dobble-client/internal/cards"
	"dobble-client/internal/config"
	"dobble-client/internal/console"
	"dobble-client/internal/history"
	"dobble-client/internal/session"
)

func main() {
	envFile := flag.String("env", ".env", "optional env file with DOBBLE_* settings")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dobble:", err)
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(cfg.Level()).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("client stopped")
		os.Exit(1)
	}
	logger.Info().Msg("Graceful shutdown complete.")
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	deck, err := cards.Generate(cfg.SymbolsPerCard)
	if err != nil {
		return err
	}
	logger.Debug().Int("cards", deck.Count()).Int("symbols", deck.SymbolCount()).Msg("card set available")

	var store *history.Store
	if cfg.HistoryDSN != "" {
		if store, err = history.Open(cfg.HistoryDSN, logger); err != nil {
			return err
		}
		defer store.Close()
	}

	sess, err := session.Dial(ctx, cfg.Session(), logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	params := sess.Params()
	if params.SymbolsPerCard != cfg.SymbolsPerCard {
		logger.Warn().
			Int("configured", cfg.SymbolsPerCard).
			Int("negotiated", params.SymbolsPerCard).
			Msg("server uses a different card size")
	}

	// Subscribe everything before the receive loop starts so no event is
	// missed. Consumers drain until the session closes its stream, so they
	// get contexts that outlive the shutdown signal.
	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()
	drainCtx := context.WithoutCancel(gctx)

	if store != nil {
		matchID, err := store.BeginMatch(ctx, history.MatchInfo{
			ServerAddr:     cfg.Addr,
			Username:       cfg.Username,
			PlayerID:       params.PlayerID,
			SymbolsPerCard: params.SymbolsPerCard,
			PlayerCount:    params.PlayerCount,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("match history disabled")
		} else {
			sub := sess.Subscribe()
			g.Go(func() error { return store.Follow(drainCtx, matchID, sub) })
		}
	}

	if cfg.BridgeAddr != "" {
		b := bridge.New(sess, logger)
		sub := sess.Subscribe()
		g.Go(func() error { return b.Pump(drainCtx, sub) })
		g.Go(func() error { return b.Serve(gctx, cfg.BridgeAddr) })
	}

	term := console.New(sess, os.Stdout, logger)
	watch := sess.Subscribe()
	g.Go(func() error { return term.Watch(drainCtx, watch) })
	g.Go(func() error {
		err := term.Run(gctx, os.Stdin)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	fmt.Fprint(os.Stdout, console.Render(sess.Snapshot(), params.PlayerID))
	fmt.Fprintln(os.Stdout, `type "help" for commands`)

	g.Go(func() error {
		defer cancel()
		return sess.Run(context.Background())
	})

	// Shutdown: on a signal or a failed task, tell the server we are done.
	g.Go(func() error {
		<-gctx.Done()
		if sess.Phase() == session.Active {
			logger.Info().Msg("Shutdown signal received, finishing game")
		}
		return sess.Finish()
	})

	return g.Wait()
}
