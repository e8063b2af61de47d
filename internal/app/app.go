package app

import (
	"context"
	"fmt"
	"livepoll/internal/cache"
	"livepoll/internal/config"
	"livepoll/internal/events"
	"livepoll/internal/repository"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Backends bundles the external systems the server talks to. Each one is
// optional; a disabled backend is replaced by an in-process stand-in.
type Backends struct {
	Mongo       *mongo.Client
	SessionRepo repository.SessionRepo // nil when Mongo is disabled
	Redis       *redis.Client
	Codes       cache.CodeRegistry
	Publisher   events.Publisher
}

// Connect dials every configured backend
func Connect(ctx context.Context, cfg *config.Config) (*Backends, error) {
	b := &Backends{
		Codes:     cache.NewMemoryCodeRegistry(),
		Publisher: events.NewNopPublisher(),
	}

	if cfg.MongoURI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			client.Disconnect(ctx)
			return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
		}

		db := client.Database(cfg.MongoDB)
		if err := repository.EnsureIndexes(pingCtx, db); err != nil {
			log.Warn().Err(err).Msg("failed to create session indexes")
		}
		b.Mongo = client
		b.SessionRepo = repository.NewSessionRepo(db)
		log.Info().Str("database", cfg.MongoDB).Msg("connected to MongoDB")
	} else {
		log.Warn().Msg("MONGO_URI not set, sessions are kept in memory only")
	}

	if cfg.RedisURI != "" {
		opts, err := redis.ParseURL(cfg.RedisURI)
		if err != nil {
			// plain host:port like the compose files use
			opts = &redis.Options{Addr: cfg.RedisURI}
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			b.Close(ctx)
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		b.Redis = rdb
		b.Codes = cache.NewCodeRegistry(rdb, cfg.CodeTTL)
		log.Info().Str("addr", opts.Addr).Msg("connected to Redis")
	}

	if cfg.NATSURL != "" {
		natsCfg := events.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		natsCfg.SubjectPrefix = cfg.NATSSubjectPrefix
		pub, err := events.NewNATSPublisher(natsCfg)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.Publisher = pub
		log.Info().Str("url", cfg.NATSURL).Str("prefix", natsCfg.SubjectPrefix).Msg("mirroring room events to NATS")
	}

	return b, nil
}

// Close releases every connected backend
func (b *Backends) Close(ctx context.Context) {
	if b.Publisher != nil {
		b.Publisher.Close()
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close Redis client")
		}
	}
	if b.Mongo != nil {
		if err := b.Mongo.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to disconnect MongoDB")
		}
	}
}
