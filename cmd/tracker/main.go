package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/neosam/haushalt-sub000/internal/config"
	"github.com/neosam/haushalt-sub000/internal/consequence"
	"github.com/neosam/haushalt-sub000/internal/notify"
	"github.com/neosam/haushalt-sub000/internal/recurrence"
	"github.com/neosam/haushalt-sub000/internal/repository"
	"github.com/neosam/haushalt-sub000/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	taskRepo := repository.NewTaskRepository(db)
	completionRepo := repository.NewCompletionRepository(db)
	periodRepo := repository.NewPeriodResultRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	pointsRepo := repository.NewPointsRepository(db)

	dispatcher := consequence.Chain{consequence.NewPoints(pointsRepo)}
	var telegram *notify.Telegram
	if cfg.TelegramToken != "" {
		telegram, err = notify.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		dispatcher = append(dispatcher, telegram)
	}

	statsSvc := service.NewStatisticsService(taskRepo, completionRepo, periodRepo, statsRepo)
	finalizerSvc := service.NewFinalizerService(taskRepo, completionRepo, periodRepo, dispatcher)
	reminderSvc := service.NewReminderService(taskRepo, statsSvc)

	scheduler := service.NewSchedulerService(cfg.Location)

	if _, err := scheduler.ScheduleDaily(cfg.FinalizeAt, job("finalize", func(jobCtx context.Context) error {
		report, err := finalizerSvc.FinalizeLapsed(jobCtx, cfg.Today(time.Now()))
		log.Printf("[info] finalize lapsed periods: %s", report)
		return err
	})); err != nil {
		log.Fatalf("schedule finalizer: %v", err)
	}

	if _, err := scheduler.ScheduleWeekly(time.Monday, cfg.StatsAt, job("weekly stats", func(jobCtx context.Context) error {
		lastWeek := recurrence.AddDays(cfg.Today(time.Now()), -7)
		return forEachHousehold(jobCtx, taskRepo, func(householdID string) error {
			_, err := statsSvc.CalculateWeekly(jobCtx, householdID, lastWeek)
			return err
		})
	})); err != nil {
		log.Fatalf("schedule weekly stats: %v", err)
	}

	if _, err := scheduler.ScheduleMonthly(cfg.StatsAt, job("monthly stats", func(jobCtx context.Context) error {
		lastMonth := recurrence.AddDays(cfg.Today(time.Now()), -1)
		return forEachHousehold(jobCtx, taskRepo, func(householdID string) error {
			_, err := statsSvc.CalculateMonthly(jobCtx, householdID, lastMonth)
			return err
		})
	})); err != nil {
		log.Fatalf("schedule monthly stats: %v", err)
	}

	if cfg.DigestAt != "" && telegram != nil {
		if _, err := scheduler.ScheduleDaily(cfg.DigestAt, job("digest", func(jobCtx context.Context) error {
			today := cfg.Today(time.Now())
			return forEachHousehold(jobCtx, taskRepo, func(householdID string) error {
				digest, err := reminderSvc.DailyDigest(jobCtx, householdID, today)
				if err != nil {
					return err
				}
				return telegram.SendText(digest)
			})
		})); err != nil {
			log.Fatalf("schedule digest: %v", err)
		}
	}

	scheduler.Start()
	defer scheduler.Stop()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[error] metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Printf("[info] metrics listening on %s", cfg.MetricsAddr)
	}

	log.Printf("[info] tracker started, %d jobs scheduled", scheduler.Entries())
	<-ctx.Done()
	log.Println("Shutdown complete.")
}

// job adapts fn to a cron callback with a timeout and error logging.
func job(name string, fn func(ctx context.Context) error) func() {
	return func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := fn(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[error] %s: %v", name, err)
		}
	}
}

func forEachHousehold(ctx context.Context, tasks *repository.TaskRepository, fn func(householdID string) error) error {
	households, err := tasks.ListHouseholds(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range households {
		if err := fn(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
