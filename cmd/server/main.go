package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"livepoll/internal/app"
	"livepoll/internal/config"
	"livepoll/internal/model"
	"livepoll/internal/service"
	"livepoll/internal/transport/rest"
	"livepoll/internal/transport/ws"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backends, err := app.Connect(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect backends")
	}

	// Session store with write-behind persistence
	clock := clockwork.NewRealClock()
	store := service.NewSessionStore(backends.Codes, clock)
	var persister *service.Persister
	if backends.SessionRepo != nil {
		persister = service.NewPersister(backends.SessionRepo, 5*time.Second)
		restoreSessions(ctx, store, backends)
		store.SetSaver(persister)
	}
	if cfg.StrictRating {
		store.SetRatingBounds(&model.RatingBounds{Min: cfg.RatingMin, Max: cfg.RatingMax})
	}
	seedSessions(ctx, store, cfg.SeedFile)

	if cfg.StrictPresenter && cfg.UsesDefaultSecret() {
		log.Warn().Msg("strict presenter mode with the built-in JWT secret, set JWT_SECRET")
	}
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.PresenterTokenTTL, clock)
	sessionSvc := service.NewSessionService(store, tokens, cfg.StrictPresenter)

	// Rooms and the session protocol
	wsHub := ws.NewHub()
	wsHub.SetPublisher(backends.Publisher)
	protocol := ws.NewProtocol(store, wsHub, tokens, cfg.StrictPresenter, cfg.DispatchQueue)

	wsConfig := ws.DefaultConnectionConfig()
	wsConfig.MaxMessageSize = cfg.WSMaxMessageSize
	wsConfig.SendBuffer = cfg.WSSendBuffer
	wsHandler := ws.NewHandler(wsHub, protocol, wsConfig)

	// REST authoring is serialized with participant messages
	sessionSvc.SetBroadcaster(wsHub)
	sessionSvc.SetDispatcher(protocol)

	bg := startWorkers(protocol, persister)

	router := rest.NewRouter(&rest.Container{
		SessionService: sessionSvc,
		WSHandler:      wsHandler,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Bool("strict_presenter", cfg.StrictPresenter).
			Bool("strict_rating", cfg.StrictRating).
			Int("sessions", store.Count()).
			Msg("server starting")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// Stop dispatch, then let the persister write what is left
	bg.stop()
	backends.Close(shutdownCtx)

	log.Info().Msg("server exited")
}

func setupLogging(cfg *config.Config) {
	if strings.EqualFold(cfg.LogFormat, "json") {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func restoreSessions(ctx context.Context, store *service.SessionStore, backends *app.Backends) {
	listCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	sessions, err := backends.SessionRepo.List(listCtx)
	if err != nil {
		log.Error().Err(err).Msg("failed to restore sessions")
		return
	}
	n := store.Restore(sessions)
	for _, s := range sessions {
		if _, err := backends.Codes.Reserve(listCtx, s.Code); err != nil {
			log.Warn().Err(err).Str("code", s.Code).Msg("failed to reserve restored session code")
		}
	}
	log.Info().Int("sessions", n).Msg("sessions restored")
}

func seedSessions(ctx context.Context, store *service.SessionStore, path string) {
	seed, err := config.LoadSeed(path)
	if err != nil {
		log.Fatal().Err(err).Str("file", path).Msg("failed to load seed")
	}
	for _, s := range seed.Sessions {
		sess, err := store.SeedSession(ctx, s.Code, s.ModelQuestions())
		if err != nil {
			log.Fatal().Err(err).Str("code", s.Code).Msg("failed to seed session")
		}
		log.Info().Str("code", sess.Code).Str("session_id", sess.ID).Msg("seed session ready")
	}
}
