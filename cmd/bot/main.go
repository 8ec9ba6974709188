package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chess-puzzle-bot/internal/adapters/bot"
	"chess-puzzle-bot/internal/adapters/render"
	"chess-puzzle-bot/internal/adapters/repo"
	"chess-puzzle-bot/internal/adapters/telegram"
	"chess-puzzle-bot/internal/domain"
	"chess-puzzle-bot/internal/infra/cache"
	"chess-puzzle-bot/internal/infra/config"
	"chess-puzzle-bot/internal/infra/db"
	httpinfra "chess-puzzle-bot/internal/infra/http"
	"chess-puzzle-bot/internal/infra/log"
	"chess-puzzle-bot/internal/infra/metrics"
	"chess-puzzle-bot/internal/infra/queue"
	"chess-puzzle-bot/internal/usecase/broadcast"
	"chess-puzzle-bot/internal/usecase/catalog"
	"chess-puzzle-bot/internal/usecase/delivery"
	"chess-puzzle-bot/internal/usecase/registry"
	"chess-puzzle-bot/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	token, err := cfg.ResolveToken()
	if err != nil {
		logger.Fatal().Err(err).Msg("нет токена бота")
	}

	store, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	reg, err := registry.Open(ctx, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть реестр чатов")
	}

	cat, err := catalog.Load(cfg.Puzzles.Dataset, reg)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Puzzles.Dataset).Msg("не удалось загрузить задачи")
	}
	logger.Info().Int("puzzles", cat.Len()).Int("unposted", len(cat.Unposted())).Msg("каталог загружен")

	policy, err := catalog.ParsePolicy(cfg.Schedule.Policy)
	if err != nil {
		logger.Fatal().Err(err).Msg("неверная политика рассылки")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}
	var dayLock domain.Cache = cache.NewMemory()
	if redisClient != nil {
		dayLock = cache.NewRedis(redisClient, "chess-puzzle-bot:")
	}
	jobs, closeQueue := openQueue(cfg, redisClient, logger)
	defer closeQueue()

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	botAPI.Debug = cfg.AppEnv == "dev"
	logger.Info().Str("username", botAPI.Self.UserName).Msg("бот авторизован")

	messenger := telegram.NewMessenger(botAPI, logger)
	if err := messenger.SetCommands(bot.Commands()); err != nil {
		logger.Warn().Err(err).Msg("не удалось зарегистрировать команды")
	}

	renderer := render.NewBoard(cfg.Render.Dir, cfg.Render.Size, logger)
	deliveryService := delivery.NewService(reg, renderer, messenger, cfg.Puzzles.BaseURL, logger)
	worker := delivery.NewWorker(jobs, cat, deliveryService, logger)

	loc, err := schedule.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("неверный часовой пояс")
	}
	broadcastService := broadcast.NewService(cat, reg, jobs, dayLock, policy, loc, logger)
	scheduler, err := schedule.New(broadcastService, cfg.Schedule.DailyTime, loc, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("неверное расписание")
	}

	handler := bot.NewHandler(messenger, reg, cat, deliveryService, cfg.Schedule.DailyTime, logger)

	server := httpinfra.NewServer(logger)
	if cfg.Telegram.Mode == "webhook" {
		server.Router.Post("/bot/webhook", bot.WebhookHandler(handler, cfg.Telegram.WebhookSecret))
	}
	go func() {
		if err := server.Start(cfg.HTTPAddr); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	go worker.Run(ctx)
	go scheduler.Run(ctx)

	switch cfg.Telegram.Mode {
	case "webhook":
		setWebhook(botAPI, cfg.Telegram.WebhookURL, cfg.Telegram.WebhookSecret, logger)
		<-ctx.Done()
	default:
		poll(ctx, botAPI, handler, logger)
	}

	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (domain.RegistryStore, func()) {
	if cfg.Registry.Backend != "postgres" {
		logger.Info().Str("path", cfg.Registry.File).Msg("реестр в файле")
		return repo.NewFileStore(cfg.Registry.File), func() {}
	}
	pool, err := db.Connect(ctx, cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	pg := repo.NewPostgres(pool)
	if err := pg.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("не удалось подготовить схему")
	}
	logger.Info().Msg("реестр в Postgres")
	return pg, pool.Close
}

func openQueue(cfg config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) (domain.DeliveryQueue, func()) {
	switch cfg.Queue.Backend {
	case "redis":
		if redisClient == nil {
			logger.Fatal().Msg("QUEUE_BACKEND=redis требует REDIS_ADDR")
		}
		return queue.NewRedisDeliveryQueue(redisClient, cfg.Queue.Key), func() {}
	case "rabbitmq":
		q, err := queue.NewRabbitDeliveryQueue(cfg.Queue.RabbitURL, cfg.Queue.Key)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к RabbitMQ")
		}
		return q, func() { _ = q.Close() }
	default:
		return queue.NewMemoryDeliveryQueue(256), func() {}
	}
}

// setWebhook вызывает setWebhook напрямую: WebhookConfig в tgbotapi v5.5.1 не знает secret_token.
func setWebhook(api *tgbotapi.BotAPI, url, secret string, logger zerolog.Logger) {
	if url == "" {
		logger.Fatal().Msg("TG_MODE=webhook требует TG_WEBHOOK_URL")
	}
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		logger.Fatal().Err(err).Msg("неверный TG_WEBHOOK_URL")
	}
	params := tgbotapi.Params{"url": wh.URL.String()}
	params.AddNonEmpty("secret_token", secret)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		logger.Fatal().Err(err).Msg("не удалось установить вебхук")
	}
	logger.Info().Str("url", url).Msg("вебхук установлен")
}

func poll(ctx context.Context, api *tgbotapi.BotAPI, handler *bot.Handler, logger zerolog.Logger) {
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn().Err(err).Msg("не удалось снять вебхук")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)
	logger.Info().Msg("получаем апдейты long polling")
	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			handler.HandleUpdate(ctx, upd)
		}
	}
}
