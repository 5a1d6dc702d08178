package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Yanlebed/htode-sub000/app/config"
	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/db/redis"
	"github.com/Yanlebed/htode-sub000/app/flows"
	"github.com/Yanlebed/htode-sub000/app/handlers"
	"github.com/Yanlebed/htode-sub000/app/identity"
	"github.com/Yanlebed/htode-sub000/app/messaging"
	"github.com/Yanlebed/htode-sub000/app/models"
	"github.com/Yanlebed/htode-sub000/app/state"
	"github.com/Yanlebed/htode-sub000/app/tasks"
	"github.com/Yanlebed/htode-sub000/app/util"
	"github.com/Yanlebed/htode-sub000/app/workers"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

func main() {
	done := make(chan struct{}, 1)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	_ = godotenv.Load()
	env := util.Env("ENV", "dev")
	dataDogClient, err := statsd.New(util.Env("STATSD_ADDRESS", "127.0.0.1:8125"), statsd.WithNamespace("htode."))
	if err != nil && env == "production" {
		log.Fatalf("error creating DataDog client: %v", err)
	}

	config.CONFIG = &config.Config{
		BotName:                util.Env("BOT_NAME", "htode"),
		DataDogClient:          dataDogClient,
		Environment:            env,
		GalleryBaseURL:         util.Env("GALLERY_BASE_URL", "https://htode.app"),
		NotifierWorkerInterval: time.Minute,
		Postgres: config.Postgres{
			Host:     util.Env("DB_HOST", "localhost"),
			Port:     util.Env("DB_PORT", "5432"),
			User:     util.Env("DB_USER"),
			Password: util.Env("DB_PASSWORD"),
			Database: util.Env("DB_NAME", "htode"),
			SSLMode:  util.Env("DB_SSLMODE", "disable"),
		},
		Redis: config.Redis{
			Host:     util.Env("REDIS_HOST", "localhost"),
			Port:     util.Env("REDIS_PORT", "6379"),
			Password: util.Env("REDIS_PASSWORD", ""),
		},
		SupportChatID:        util.Env("SUPPORT_CHAT_ID"),
		TelegramBotToken:     util.Env("TELEGRAM_BOT_TOKEN"),
		TwilioAccountSID:     util.Env("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      util.Env("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: util.Env("TWILIO_WHATSAPP_NUMBER"),
		ViberAuthToken:       util.Env("VIBER_AUTH_TOKEN"),
		WebhookBaseURL:       util.Env("WEBHOOK_BASE_URL"),
	}

	if config.CONFIG.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{
			DisableTimestamp: true,
		})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
			DisableColors: false,
		})
		log.SetLevel(log.TraceLevel)
	}
	_ = dataDogClient.Count("main.start", 1, []string{"env:" + env}, 1)

	redis.RedisClient = redis.NewClient(config.CONFIG.Redis)
	store := postgres.NewClient(config.CONFIG.Postgres, redis.RedisClient)
	postgres.DB = store

	telegramBot, err := telego.NewBot(config.CONFIG.TelegramBotToken)
	util.Assert(err == nil, "creating telegram bot failed", err)

	registry := messaging.NewRegistry(
		messaging.NewTelegramMessenger(telegramBot),
		messaging.NewViberMessenger(config.CONFIG.ViberAuthToken, config.CONFIG.BotName),
		messaging.NewWhatsAppMessenger(config.CONFIG.TwilioAccountSID, config.CONFIG.TwilioAuthToken, config.CONFIG.TwilioWhatsAppNumber),
	)
	resolver := identity.NewResolver(store)
	service := messaging.NewService(store, registry)
	sender := messaging.NewSender(resolver, registry, service)

	dispatcher := tasks.NewDispatcher(4, 256)
	notifier := workers.NewNotifier(store, service, redis.RedisClient)
	notifier.RegisterJobs(dispatcher)
	dispatcher.Register("support_request", func(ctx context.Context, job tasks.Job) error {
		log.Infof("support request %s: %v", job.ID, job.Args)
		if config.CONFIG.SupportChatID != "" {
			payload, _ := json.Marshal(job.Args)
			sender.SafeSendMessage(ctx, config.CONFIG.SupportChatID, models.PlatformTelegram, "🆘 "+string(payload))
		}
		return nil
	})

	states := state.NewManager(redis.RedisClient)
	library := flows.NewLibrary(states, sender, store)
	library.Register(flows.PropertySearchFlow(), "пошук", "search")
	library.Register(flows.SubscriptionFlow(), "підписк", "subscriptions")
	library.Register(flows.SupportFlow(dispatcher), "підтримк", "support", "допомог")

	inbound := handlers.NewInbound(store, library, sender)

	healthWorker := workers.NewWorker("health", config.CONFIG.NotifierWorkerInterval, func() {
		if err := redis.RedisClient.Ping(context.Background()).Err(); err != nil {
			log.Errorf("redis health check failed: %v", err)
			return
		}
		_ = config.CONFIG.DataDogClient.Gauge("health.ok", 1, []string{}, 1)
	})
	go healthWorker.Start()

	rtr := router.New()
	rtr.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		_, _ = ctx.WriteString("ok")
	})
	rtr.POST("/webhook/telegram", telegramWebhook(inbound))
	rtr.POST("/webhook/viber", viberWebhook(inbound))
	rtr.POST("/webhook/whatsapp", whatsappWebhook(inbound))
	rtr.POST("/internal/ads/{id}/notify", notifyWebhook(dispatcher))

	server := &fasthttp.Server{
		Handler: fasthttp.TimeoutHandler(rtr.Handler, time.Second*30, "Request timeout"),
	}

	go TearDown(sigs, done, server, dispatcher, healthWorker)

	address := util.Env("BACKEND_LISTEN_ADDRESS", ":8080")
	log.Infof("%s listening on %s", config.CONFIG.BotName, address)
	go func() {
		err := server.ListenAndServe(address)
		util.Assert(err == nil, "ListenAndServe:", err)
	}()

	<-done
	log.Info("Done")
}

// telegramWebhook lifts the chat id and text (or callback data) out
// of a Bot API update and hands it to the unified handler.
func telegramWebhook(inbound *handlers.Inbound) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		update := telego.Update{}
		if err := json.Unmarshal(ctx.PostBody(), &update); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)

		var userID, text string
		switch {
		case update.Message != nil:
			userID = strconv.FormatInt(update.Message.Chat.ID, 10)
			text = update.Message.Text
		case update.CallbackQuery != nil:
			userID = strconv.FormatInt(update.CallbackQuery.From.ID, 10)
			text = update.CallbackQuery.Data
		default:
			return
		}
		go inbound.HandleMessage(context.Background(), models.PlatformTelegram, userID, text)
	}
}

type viberEvent struct {
	Event  string `json:"event"`
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

func viberWebhook(inbound *handlers.Inbound) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		event := viberEvent{}
		if err := json.Unmarshal(ctx.PostBody(), &event); err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusOK)
		if event.Event != "message" || event.Sender.ID == "" {
			return
		}
		go inbound.HandleMessage(context.Background(), models.PlatformViber, event.Sender.ID, event.Message.Text)
	}
}

func whatsappWebhook(inbound *handlers.Inbound) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		from := string(ctx.PostArgs().Peek("From"))
		body := string(ctx.PostArgs().Peek("Body"))
		ctx.SetStatusCode(fasthttp.StatusOK)
		if from == "" {
			return
		}
		go inbound.HandleMessage(context.Background(), models.PlatformWhatsApp, from, body)
	}
}

// notifyWebhook lets the scraper signal a freshly stored ad.
func notifyWebhook(dispatcher *tasks.Dispatcher) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		adID := ctx.UserValue("id")
		id, ok := adID.(string)
		if !ok {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}
		if _, err := dispatcher.Enqueue("notify_matching_users", map[string]any{"ad_id": id}); err != nil {
			log.Errorf("enqueue notify for ad %s: %v", id, err)
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetStatusCode(fasthttp.StatusAccepted)
	}
}

func TearDown(sigs chan os.Signal, done chan struct{}, server *fasthttp.Server, dispatcher *tasks.Dispatcher, healthWorker *workers.Worker) {
	<-sigs
	log.Infof("%s shutting down", config.CONFIG.BotName)
	healthWorker.StopWorker()
	dispatcher.Stop()
	if err := server.Shutdown(); err != nil {
		log.Errorf("TearDown: server shutdown: %v", err)
	}
	done <- struct{}{}
}
