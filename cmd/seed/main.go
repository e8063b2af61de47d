package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"livepoll/internal/config"
	"livepoll/internal/repository"
	"livepoll/internal/service"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	mongoURI string
	dbName   string
	timeout  time.Duration
	seedFile string
	dryRun   bool
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Manage stored livepoll sessions",
	Long: `Write sessions described in a YAML seed file into MongoDB, or list
the sessions already stored there. Without --file the built-in sample
session (code ABC123) is used.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Store the seed sessions that do not exist yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, err := config.LoadSeed(seedFile)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		var repo repository.SessionRepo
		if !dryRun {
			db, disconnect, err := connect(ctx)
			if err != nil {
				return err
			}
			defer disconnect()
			if err := repository.EnsureIndexes(ctx, db); err != nil {
				return fmt.Errorf("failed to create indexes: %w", err)
			}
			repo = repository.NewSessionRepo(db)
		}

		store := service.NewSessionStore(nil, nil)
		for _, s := range seed.Sessions {
			if repo != nil {
				existing, err := repo.GetByCode(ctx, s.Code)
				if err != nil {
					return fmt.Errorf("failed to look up %s: %w", s.Code, err)
				}
				if existing != nil {
					log.Info().Str("code", existing.Code).Str("session_id", existing.ID).Msg("session exists, skipping")
					continue
				}
			}

			sess, err := store.SeedSession(ctx, s.Code, s.ModelQuestions())
			if err != nil {
				return fmt.Errorf("session %s: %w", s.Code, err)
			}
			if repo == nil {
				log.Info().Str("code", sess.Code).Int("questions", len(sess.Questions)).Msg("dry run, not stored")
				continue
			}
			if err := repo.Save(ctx, sess); err != nil {
				return fmt.Errorf("failed to store %s: %w", s.Code, err)
			}
			log.Info().Str("code", sess.Code).Str("session_id", sess.ID).Msg("session stored")
		}
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		db, disconnect, err := connect(ctx)
		if err != nil {
			return err
		}
		defer disconnect()

		sessions, err := repository.NewSessionRepo(db).List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tID\tQUESTIONS\tCURRENT\tCREATED")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.Code, s.ID, len(s.Questions), s.CurrentQuestionID, s.CreatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

func connect(ctx context.Context) (*mongo.Database, func(), error) {
	if mongoURI == "" {
		return nil, nil, fmt.Errorf("no MongoDB URI: set MONGO_URI or --mongo-uri")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client.Database(dbName), func() { client.Disconnect(context.Background()) }, nil
}

func init() {
	cfg := config.Load()

	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", cfg.MongoURI, "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&dbName, "db", cfg.MongoDB, "MongoDB database name")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall operation timeout")

	applyCmd.Flags().StringVarP(&seedFile, "file", "f", cfg.SeedFile, "Seed YAML file (default: built-in sample)")
	applyCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the seed without writing to MongoDB")

	rootCmd.AddCommand(applyCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
