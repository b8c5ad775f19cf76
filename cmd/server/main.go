package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/quip-bot/internal/bot"
	"github.com/DoyleJ11/quip-bot/internal/config"
	"github.com/DoyleJ11/quip-bot/internal/prompts"
	"github.com/DoyleJ11/quip-bot/internal/registry"
	"github.com/DoyleJ11/quip-bot/internal/transport"
	"github.com/DoyleJ11/quip-bot/internal/transport/gateway"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("bad configuration", zap.Error(err))
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	reg := registry.New(registry.RandomIDs)
	src := prompts.NewFileSource(cfg.PromptDir, rng)

	updates := make(chan transport.Update, 64)
	gw := gateway.New(log.Named("gateway"), cfg.BotUsername, updates)

	opts := bot.Options{
		AsyncMatchTTL:   cfg.AsyncMatchTTL,
		DefaultLanguage: cfg.DefaultLanguage,
		Rand:            rng,
	}
	if cfg.ShellExecEnabled {
		opts.Shell = bot.NewBashRunner()
	}
	b := bot.New(reg, src, gw, log.Named("bot"), opts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, updates)

	server := http.Server{
		Addr:    cfg.Addr,
		Handler: gw.Routes(),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		cancel()
		server.Close()
	}()

	log.Info("listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server closed", zap.Error(err))
	}
}
