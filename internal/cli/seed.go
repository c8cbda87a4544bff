package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"quizbuzz-service/internal/auth"
	"quizbuzz-service/internal/config"
	"quizbuzz-service/internal/domain"
	"quizbuzz-service/internal/infra/postgres"
)

// NewSeedCmd creates a room with the sample question pool and a few players,
// then prints a join token per player.
func NewSeedCmd(configPath *string) *cobra.Command {
	var (
		title      string
		maxPlayers int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo room, questions and players in PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			tokens, err := tokensFor(cfg)
			if err != nil {
				return err
			}
			pool, err := pgxpool.Connect(cmd.Context(), cfg.Postgres.URL)
			if err != nil {
				return err
			}
			defer pool.Close()
			return seed(cmd.Context(), cmd.OutOrStdout(), postgres.NewStore(pool), tokens, cfg, title, maxPlayers)
		},
	}
	cmd.Flags().StringVar(&title, "title", "Demo room", "room title")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 10, "room capacity")
	return cmd
}

func seed(ctx context.Context, out io.Writer, store *postgres.Store, tokens *auth.Tokens, cfg config.Config, title string, maxPlayers int) error {
	room, err := store.CreateRoom(ctx, title, maxPlayers)
	if err != nil {
		return err
	}
	for _, q := range sampleQuestions() {
		if _, err := store.CreateQuestion(ctx, withFreshIDs(q)); err != nil {
			return err
		}
	}
	fmt.Fprintf(out, "room %s (%s)\n", room.ID, room.Status)
	for _, nickname := range sampleNicknames {
		userID, sessionID, err := store.CreateUserSession(ctx, nickname, tokenTTL(cfg))
		if err != nil {
			return err
		}
		if _, err := store.AddParticipant(ctx, room.ID, userID, nickname); err != nil {
			return err
		}
		token, err := tokens.Issue(sessionID, room.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\n", nickname, token)
	}
	return nil
}

// withFreshIDs rekeys a sample question so the pool can be seeded more than once.
func withFreshIDs(q domain.Question) domain.Question {
	out := q
	out.ID = uuid.NewString()
	out.Choices = make([]domain.Choice, len(q.Choices))
	for i, c := range q.Choices {
		id := uuid.NewString()
		if c.ID == q.CorrectChoiceID {
			out.CorrectChoiceID = id
		}
		out.Choices[i] = domain.Choice{ID: id, Value: c.Value}
	}
	return out
}
