package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"quizbuzz-service/internal/app"
	"quizbuzz-service/internal/auth"
	"quizbuzz-service/internal/config"
	"quizbuzz-service/internal/domain"
	"quizbuzz-service/internal/infra/memory"
	"quizbuzz-service/internal/infra/postgres"
	redisinfra "quizbuzz-service/internal/infra/redis"
	transport "quizbuzz-service/internal/transport/http"
)

const demoRoomID = "demo-room"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, found, err := config.LoadOptional(configPath)
	if err != nil {
		return err
	}
	if !found {
		log.Printf("config %s not found, using defaults and environment", configPath)
	}

	tokens, err := tokensFor(cfg)
	if err != nil {
		return err
	}
	if cfg.Admin.APIKey == "" {
		log.Printf("warning: admin.apiKey is empty, host API calls will be rejected")
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		store  app.Store
		loader memory.QuestionLoader
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := postgres.NewStore(pool)
		store, loader = pg, pg
	} else {
		demo := memory.NewStore()
		if err := seedDemo(demo, tokens); err != nil {
			return err
		}
		store, loader = demo, demo
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,

			ContextTimeoutEnabled: true,
		})
		defer redisClient.Close()
	}

	questionTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var questions app.QuestionRepository
	var sessions app.SessionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, questionTTL)
		sessions = redisinfra.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute))
	} else {
		questions = memory.NewQuestionRepository(loader, questionTTL)
		sessions = memory.NewSessionStore()
	}

	var opts []app.Option
	if cfg.Quiz.SampleSize > 0 {
		opts = append(opts, app.WithSampleSize(cfg.Quiz.SampleSize))
	}
	hub := transport.NewHub()
	engine := app.NewEngine(app.Deps{
		Sessions:  sessions,
		Store:     store,
		Questions: questions,
		Tokens:    tokens,
		Sender:    hub,
	}, opts...)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(engine, hub, cfg.Admin.APIKey),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// seedDemo fills an in-memory store with one room, the sample questions and
// a few players, logging a join token for each player.
func seedDemo(store *memory.Store, tokens *auth.Tokens) error {
	store.AddRoom(domain.Room{ID: demoRoomID, Title: "Demo room", MaxPlayers: 10, Status: domain.RoomCreated})
	for _, q := range sampleQuestions() {
		store.AddQuestion(q)
	}
	for _, nickname := range sampleNicknames {
		userID, sessionID := "user-"+nickname, "session-"+nickname
		store.AddSession(sessionID, userID)
		if _, err := store.AddParticipant(demoRoomID, userID, nickname); err != nil {
			return err
		}
		token, err := tokens.Issue(sessionID, demoRoomID)
		if err != nil {
			return err
		}
		log.Printf("demo player %s in room %s: token %s", nickname, demoRoomID, token)
	}
	return nil
}
