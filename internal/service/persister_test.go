package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"livepoll/internal/model"
)

type fakeSessionRepo struct {
	mu      sync.Mutex
	saved   map[string]*model.Session
	saves   int
	failFor string
	written chan string
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		saved:   make(map[string]*model.Session),
		written: make(chan string, 100),
	}
}

func (r *fakeSessionRepo) Save(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if s.ID == r.failFor {
		return errors.New("write failed")
	}
	r.saved[s.ID] = s
	r.written <- s.ID
	return nil
}

func (r *fakeSessionRepo) GetByCode(_ context.Context, code string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.saved {
		if s.Code == model.NormalizeCode(code) {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) List(context.Context) ([]*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Session, 0, len(r.saved))
	for _, s := range r.saved {
		out = append(out, s)
	}
	return out, nil
}

func (r *fakeSessionRepo) get(id string) *model.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saved[id]
}

func TestPersisterFlushCoalesces(t *testing.T) {
	repo := newFakeSessionRepo()
	p := NewPersister(repo, time.Second)

	p.Save(&model.Session{ID: "s1", Code: "A", CurrentQuestionID: "q1"})
	p.Save(&model.Session{ID: "s1", Code: "A", CurrentQuestionID: "q2"})
	p.Save(&model.Session{ID: "s2", Code: "B"})
	p.Flush(context.Background())

	if repo.saves != 2 {
		t.Errorf("saves = %d, want 2", repo.saves)
	}
	if got := repo.get("s1").CurrentQuestionID; got != "q2" {
		t.Errorf("s1 stored with current question %q, want latest q2", got)
	}
}

func TestPersisterRunWritesInBackground(t *testing.T) {
	repo := newFakeSessionRepo()
	p := NewPersister(repo, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go p.Run(ctx)

	p.Save(&model.Session{ID: "s1", Code: "A"})
	select {
	case id := <-repo.written:
		if id != "s1" {
			t.Errorf("wrote %s, want s1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("session was not persisted")
	}

	cancel()
	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("persister did not stop")
	}
}

func TestPersisterFinalFlushOnStop(t *testing.T) {
	repo := newFakeSessionRepo()
	p := NewPersister(repo, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Save(&model.Session{ID: "late", Code: "L"})
	p.Run(ctx)

	if repo.get("late") == nil {
		t.Error("pending session was not flushed on stop")
	}
}

func TestPersisterErrorDoesNotBlockOthers(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.failFor = "bad"
	p := NewPersister(repo, time.Second)

	p.Save(&model.Session{ID: "bad"})
	p.Save(&model.Session{ID: "good"})
	p.Flush(context.Background())

	if repo.get("good") == nil {
		t.Error("good session not stored")
	}
}

func TestStoreWithPersister(t *testing.T) {
	repo := newFakeSessionRepo()
	p := NewPersister(repo, time.Second)
	store, _, sess := newTestStore(t)
	store.SetSaver(p)

	mustActivate(t, store, sess.ID, "q1")
	mustVote(t, store, sess.ID, "q1", `"D"`)
	p.Flush(context.Background())

	stored := repo.get(sess.ID)
	if stored == nil {
		t.Fatal("session not persisted")
	}
	if stored.Question("q1").Results.Counts["D"] != 1 || stored.CurrentQuestionID != "q1" {
		t.Errorf("stored state = %+v", stored.Question("q1"))
	}
}
