package repository

import (
	"context"
	"testing"

	"livepoll/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func storedSession(id, code string) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "code", Value: code},
		{Key: "presenterId", Value: "channel-from-last-run"},
		{Key: "currentQuestionId", Value: "q2"},
		{Key: "questions", Value: bson.A{
			bson.D{
				{Key: "id", Value: "q1"},
				{Key: "type", Value: "wordcloud"},
				{Key: "title", Value: "Words"},
				{Key: "active", Value: false},
				{Key: "results", Value: bson.D{}},
			},
			bson.D{
				{Key: "id", Value: "q2"},
				{Key: "type", Value: "rating"},
				{Key: "title", Value: "Rate"},
				{Key: "active", Value: true},
				{Key: "items", Value: bson.A{"X", "Y"}},
				{Key: "results", Value: bson.D{
					{Key: "counts", Value: bson.D{{Key: "X", Value: int32(1)}}},
				}},
			},
		}},
	}
}

func TestSessionRepo(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "livepoll.sessions"

	mt.Run("GetByCode restores decoded session", func(mt *mtest.T) {
		repo := NewSessionRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, storedSession("s1", "ABC123")))

		sess, err := repo.GetByCode(context.Background(), "abc123")
		if err != nil {
			mt.Fatalf("GetByCode: %v", err)
		}
		if sess == nil || sess.ID != "s1" {
			mt.Fatalf("session = %+v", sess)
		}
		if sess.PresenterChannelID != "" {
			mt.Error("presenter binding should be dropped on load")
		}
		if words := sess.Question("q1").Results.Words; words == nil || len(words) != 0 {
			mt.Errorf("wordcloud words = %#v, want empty", words)
		}
		rating := sess.Question("q2").Results
		if rating.Counts["X"] != 1 || rating.Counts["Y"] != 0 || rating.Sums == nil {
			mt.Errorf("rating results = %+v", rating)
		}
	})

	mt.Run("GetByCode missing", func(mt *mtest.T) {
		repo := NewSessionRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		sess, err := repo.GetByCode(context.Background(), "NOPE")
		if err != nil || sess != nil {
			mt.Errorf("GetByCode = %+v, %v; want nil, nil", sess, err)
		}
	})

	mt.Run("Save upserts", func(mt *mtest.T) {
		repo := NewSessionRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 0}))

		err := repo.Save(context.Background(), &model.Session{ID: "s1", Code: "ABC123"})
		if err != nil {
			mt.Errorf("Save: %v", err)
		}
	})

	mt.Run("List", func(mt *mtest.T) {
		repo := NewSessionRepo(mt.DB)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, storedSession("s1", "ABC123")),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch, storedSession("s2", "XYZ789")),
		)

		sessions, err := repo.List(context.Background())
		if err != nil {
			mt.Fatalf("List: %v", err)
		}
		if len(sessions) != 2 || sessions[1].Code != "XYZ789" {
			mt.Fatalf("sessions = %+v", sessions)
		}
		for _, s := range sessions {
			if s.PresenterChannelID != "" || s.Question("q1").Results.Words == nil {
				mt.Errorf("session %s not restored: %+v", s.ID, s)
			}
		}
	})
}
