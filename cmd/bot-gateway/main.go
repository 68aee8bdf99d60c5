package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tg-gate-bot/internal/adapters/bot"
	"tg-gate-bot/internal/adapters/session"
	"tg-gate-bot/internal/adapters/store"
	"tg-gate-bot/internal/adapters/telegram"
	"tg-gate-bot/internal/domain"
	"tg-gate-bot/internal/infra/config"
	"tg-gate-bot/internal/infra/db"
	httpinfra "tg-gate-bot/internal/infra/http"
	"tg-gate-bot/internal/infra/log"
	"tg-gate-bot/internal/infra/metrics"
	"tg-gate-bot/internal/infra/queue"
	"tg-gate-bot/internal/usecase/broadcast"
	"tg-gate-bot/internal/usecase/catalog"
	"tg-gate-bot/internal/usecase/channels"
	"tg-gate-bot/internal/usecase/delivery"
	"tg-gate-bot/internal/usecase/gate"
	"tg-gate-bot/internal/usecase/users"
	"tg-gate-bot/internal/usecase/workflow"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv, "bot-gateway")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	admins, err := domain.ParseAdminIDs(cfg.Telegram.AdminIDs)
	if err != nil {
		logger.Fatal().Err(err).Msg("некорректный ADMIN_IDS")
	}
	if len(admins) == 0 {
		logger.Warn().Msg("ADMIN_IDS пуст, админ-панель недоступна")
	}

	docs, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("не удалось открыть хранилище")
	}
	defer closeStore()

	var (
		sessions domain.SessionStore
		jobs     domain.BroadcastQueue
	)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к Redis")
		}
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
		jobs = queue.NewRedisBroadcastQueue(rdb, cfg.Queues.Broadcast)
	} else {
		logger.Info().Msg("REDIS_ADDR не задан, сессии и очередь рассылок в памяти")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
		jobs = queue.NewMemoryBroadcastQueue(16)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	transport := telegram.NewTransport(botAPI, logger)

	registry, err := channels.NewRegistry(ctx, docs, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось загрузить каналы")
	}
	catalogService, err := catalog.NewService(ctx, docs, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось загрузить каталог")
	}
	usersService, err := users.NewService(ctx, docs, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось загрузить пользователей")
	}

	gateService := gate.NewService(transport, registry, admins, logger)
	deliveryService := delivery.NewService(gateService, catalogService, sessions, transport, cfg.Limits.PageSize, logger)
	engine := workflow.NewEngine(catalogService, registry, jobs, sessions, transport, admins, logger)
	dispatcher := broadcast.NewDispatcher(transport, usersService, float64(cfg.Limits.BroadcastRPS), logger)
	worker := broadcast.NewWorker(jobs, dispatcher, transport, logger)
	h := bot.NewHandler(transport, logger, gateService, usersService, deliveryService, engine, cfg.Telegram.NotificationID)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	handle := func(update tgbotapi.Update) {
		updCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bot.UpdateTimeout)
		defer cancel()
		h.HandleUpdate(updCtx, update)
	}

	if cfg.MetricsAddr != "" {
		metrics.StartServer(ctx, logger, cfg.MetricsAddr)
	}
	server := httpinfra.NewServer(logger)
	if cfg.Telegram.WebhookURL != "" {
		server.Router.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
			var update tgbotapi.Update
			if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			handle(update)
			w.WriteHeader(http.StatusOK)
		})
		wh, err := tgbotapi.NewWebhook(cfg.Telegram.WebhookURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("некорректный TG_WEBHOOK_URL")
		}
		if _, err := botAPI.Request(wh); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить вебхук")
		}
		logger.Info().Str("url", cfg.Telegram.WebhookURL).Msg("вебхук установлен")
	} else {
		if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("не удалось снять вебхук")
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			poll(ctx, botAPI, handle, logger)
		}()
	}

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
			stop()
		}
	}()

	logger.Info().Str("bot", botAPI.Self.UserName).Int("admins", len(admins)).Msg("бот-гейтвей запущен")
	<-ctx.Done()
	logger.Info().Msg("остановка бота")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	wg.Wait()
}

// poll читает апдейты long polling'ом, пока не отменён ctx.
func poll(ctx context.Context, botAPI *tgbotapi.BotAPI, handle func(tgbotapi.Update), logger zerolog.Logger) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botAPI.GetUpdatesChan(u)
	logger.Info().Msg("long polling запущен")

	var inflight sync.WaitGroup
	defer inflight.Wait()
	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				handle(update)
			}()
		}
	}
}

// openStore выбирает хранилище коллекций по STORE_DRIVER.
func openStore(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*store.Documents, func(), error) {
	switch cfg.Store.Driver {
	case "file", "":
		backend, err := store.NewFileBackend(cfg.Store.Dir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("dir", cfg.Store.Dir).Msg("хранилище: файлы JSON")
		return store.New(backend, "file"), func() {}, nil
	case "sqlite":
		backend, err := store.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("path", cfg.Store.SQLitePath).Msg("хранилище: SQLite")
		return store.New(backend, "sqlite"), func() { _ = backend.Close() }, nil
	case "postgres":
		pool, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, err
		}
		backend, err := store.NewPostgresBackend(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info().Msg("хранилище: Postgres")
		return store.New(backend, "postgres"), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("неизвестный STORE_DRIVER %q", cfg.Store.Driver)
	}
}
