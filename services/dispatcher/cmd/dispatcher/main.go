package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/mailhive/mailhive/internal/crypt"
	"github.com/mailhive/mailhive/internal/dispatch"
	"github.com/mailhive/mailhive/internal/render"
	"github.com/mailhive/mailhive/internal/store"
	"github.com/mailhive/mailhive/pkg/config"
	"github.com/mailhive/mailhive/pkg/db"
	"github.com/mailhive/mailhive/pkg/logx"
	"github.com/mailhive/mailhive/pkg/redlock"
	"github.com/mailhive/mailhive/pkg/rmq"
	"github.com/mailhive/mailhive/services/dispatcher/worker"
)

func main() {
	logx.Init()
	defer logx.Sync()

	config.MustLoadDispatcher()
	cfg := config.Dispatcher

	sqlDB, err := db.Open(cfg.DBDSN)
	if err != nil {
		logx.L().Fatalw("db_open_error", "error", err)
	}
	defer sqlDB.Close()

	pub, err := rmq.NewPublisher(cfg.RMQURL, cfg.NotifyQueue)
	if err != nil {
		logx.L().Fatalw("rmq_init_error", "error", err)
	}
	defer pub.Close()

	rc, err := redlock.NewClient(cfg.RedisAddr)
	if err != nil {
		logx.L().Fatalw("redis_init_error", "error", err)
	}
	defer rc.Close()

	prep := &dispatch.Preparer{
		Renderer:         render.TemplateRenderer{},
		Key:              crypt.DeriveKey(cfg.SecretKey),
		Override:         cfg.OverrideRecipients,
		MessageIDEnabled: cfg.MessageIDEnabled,
		MessageIDDomain:  cfg.MessageIDDomain,
	}
	d := dispatch.New(
		store.New(sqlDB),
		prep,
		dispatch.SMTPSender{},
		redlock.New(rc, cfg.LockKey, cfg.LockTTL),
		dispatch.NewRMQNotifier(pub),
		cfg,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := worker.New(d, cfg.DispatchInterval)
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logx.L().Fatalw("dispatcher_error", "error", err)
	}
}
