package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
	"supportdesk/internal/infrastructure"
	"supportdesk/internal/interfaces"
	"supportdesk/internal/interfaces/http"
	"supportdesk/internal/repository"
	"supportdesk/internal/usecases"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := infrastructure.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	metrics := infrastructure.NewMetrics(prometheus.DefaultRegisterer)

	// Repositories
	eventRepo := repository.NewEventRepository(pgClient.Pool)
	channelRepo := repository.NewChannelRepository(pgClient.Pool)
	tenantManager := repository.NewTenantManager(pgClient.Pool)
	clientRepo := repository.NewClientRepository(pgClient.Pool)
	convRepo := repository.NewConversationRepository(pgClient.Pool)
	userRepo := repository.NewUserRepository(pgClient.Pool)

	channelCache := infrastructure.NewChannelCache(channelRepo)

	// Usecases & services
	authUsecase := usecases.NewAuthUsecase(userRepo, cfg.JWTSecret)
	if err := authUsecase.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Warn().Err(err).Msg("failed to ensure admin user")
	}

	var decider interfaces.DecisionService
	if cfg.DecisionAPIKey != "" {
		decider = infrastructure.NewDecisionClient(cfg.DecisionAPIKey, cfg.DecisionBaseURL, cfg.DecisionModel, log)
		log.Info().Str("model", cfg.DecisionModel).Msg("using model decision service")
	} else {
		decider = usecases.NewStubDecisionService()
		log.Warn().Msg("DECISION_API_KEY not set, using rule-based decision stub")
	}

	telegramClient := infrastructure.NewTelegramClient(cfg.TelegramBotToken)

	parsers := usecases.NewParserRegistry(
		usecases.NewTelegramParser(),
		usecases.NewWidgetParser(),
		usecases.NewWebhookParser(),
	)
	steps := usecases.NewStepDispatcher(
		usecases.NewAnswerStep(),
		usecases.NewClarificationStep(),
		usecases.NewHandoffStep(),
	)
	delivery := usecases.NewIntentDispatcher(
		usecases.NewTelegramDeliveryAdapter(telegramClient),
		usecases.NewWebhookDeliveryAdapter(),
		usecases.NewWidgetDeliveryAdapter(log),
	)

	dispatcher := usecases.NewEventDispatcher(eventRepo, metrics, log)
	dispatcher.Register(entities.EventUserMessage,
		usecases.NewUserMessageHandler(tenantManager, convRepo, channelRepo, parsers, decider, steps, delivery, log))
	dispatcher.Register(entities.EventOperatorMessage,
		usecases.NewOperatorMessageHandler(tenantManager, convRepo, channelRepo, delivery, log))

	// Both trigger sources feed the same dispatcher; the event store's
	// acquire step makes double delivery harmless.
	listener := infrastructure.NewEventListener(pgClient.Pool, dispatcher, log)
	go listener.Run(ctx)

	poller := usecases.NewEventPoller(eventRepo, dispatcher, metrics, log)
	go poller.Run(ctx)

	clientService := usecases.NewClientService(clientRepo, log)
	pipeline := usecases.NewInboundPipeline(channelCache, parsers, clientService, convRepo, eventRepo, metrics, log)
	operatorService := usecases.NewOperatorService(convRepo, eventRepo, log)

	// HTTP server
	middleware := http.NewMiddleware(cfg.JWTSecret)
	r := gin.Default()
	http.SetupRoutes(r, pipeline, authUsecase, operatorService, tenantManager, channelRepo, convRepo, eventRepo, channelCache, middleware, log)

	srv := &nethttp.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
}
