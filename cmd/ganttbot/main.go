package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"gantt-tracker/internal/bot"
	"gantt-tracker/internal/config"
	"gantt-tracker/internal/logging"
	"gantt-tracker/internal/metrics"
	"gantt-tracker/internal/repository"
	"gantt-tracker/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	master, err := repository.NewMasterDB(cfg.MasterDatabaseURL, log)
	if err != nil {
		log.Fatalf("master db: %v", err)
	}
	defer repository.Close(master)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	projects := service.NewProjectService(repository.NewProjectRepository(master), cfg.ProjectsDir, log)
	defer func() {
		if err := projects.Close(); err != nil {
			log.WithError(err).Warn("close project stores")
		}
	}()
	views := service.NewViewService(m)
	svc := bot.Services{
		Users:     service.NewUserService(repository.NewUserRepository(master), cfg.AdminTelegramIDs),
		Projects:  projects,
		Sessions:  service.NewSessionService(repository.NewSessionRepository(master), projects),
		Tasks:     service.NewTaskService(service.TaskOptionsFromConfig(cfg), log, m),
		Members:   service.NewMemberService(log),
		Resources: service.NewResourceService(log),
		Views:     views,
		Reminders: service.NewReminderService(views),
	}

	telegramBot, err := bot.New(cfg.TelegramToken, svc, log, m)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local, log)
	if cfg.DigestTime != "" || cfg.ReportInterval > 0 {
		id, err := scheduler.ScheduleDigest(cfg.DigestTime, cfg.ReportInterval, 30*time.Second, func(jobCtx context.Context) error {
			err := telegramBot.SendDigests(jobCtx)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		if err != nil {
			log.Fatalf("schedule digests: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		log.WithField("next", scheduler.Next(id)).Info("digest scheduled")
	}

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.WithField("addr", cfg.MetricsAddr).Info("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info("gantt bot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Info("shutdown complete")
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return mux
}
