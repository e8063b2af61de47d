package service

import (
	"context"
	"livepoll/internal/model"
	"livepoll/internal/repository"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Persister writes session copies to the repository in the background. Saves
// of the same session made before the next flush are coalesced into the
// latest one, so the mutation path never waits on the database.
type Persister struct {
	repo    repository.SessionRepo
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*model.Session
	notify  chan struct{}
	done    chan struct{}
}

// NewPersister creates a persister for repo
func NewPersister(repo repository.SessionRepo, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Persister{
		repo:    repo,
		timeout: timeout,
		pending: make(map[string]*model.Session),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Save queues a session for writing (implements SessionSaver)
func (p *Persister) Save(session *model.Session) {
	p.mu.Lock()
	p.pending[session.ID] = session
	p.mu.Unlock()

	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run flushes queued sessions until ctx is cancelled, then flushes once more
func (p *Persister) Run(ctx context.Context) {
	defer close(p.done)
	log.Info().Msg("session persister started")

	for {
		select {
		case <-ctx.Done():
			p.Flush(context.Background())
			log.Info().Msg("session persister stopped")
			return
		case <-p.notify:
			p.Flush(ctx)
		}
	}
}

// Done is closed once Run has returned
func (p *Persister) Done() <-chan struct{} {
	return p.done
}

// Flush writes every queued session
func (p *Persister) Flush(ctx context.Context) {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[string]*model.Session)
	p.mu.Unlock()

	for id, sess := range batch {
		saveCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.repo.Save(saveCtx, sess)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("session_id", id).Msg("failed to persist session")
		}
	}
}
