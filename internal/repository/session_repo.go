package repository

import (
	"context"
	"livepoll/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepo interface {
	Save(ctx context.Context, session *model.Session) error
	GetByCode(ctx context.Context, code string) (*model.Session, error)
	List(ctx context.Context) ([]*model.Session, error)
}

type sessionRepo struct {
	collection *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepo {
	return &sessionRepo{
		collection: db.Collection("sessions"),
	}
}

// EnsureIndexes creates the unique index on the join code
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("sessions").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "code", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *sessionRepo) Save(ctx context.Context, session *model.Session) error {
	// Replace the whole document, creating it on first save
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.ID}, session, options.Replace().SetUpsert(true))
	return err
}

func (r *sessionRepo) GetByCode(ctx context.Context, code string) (*model.Session, error) {
	var session model.Session
	err := r.collection.FindOne(ctx, bson.M{"code": model.NormalizeCode(code)}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil // Session not found
		}
		return nil, err
	}
	restore(&session)
	return &session, nil
}

func (r *sessionRepo) List(ctx context.Context) ([]*model.Session, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.Session
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	for _, s := range sessions {
		restore(s)
	}
	return sessions, nil
}

// restore fills result collections that BSON omitted when empty. Presenter
// bindings refer to channels of a previous process and are dropped.
func restore(s *model.Session) {
	s.PresenterChannelID = ""
	for _, q := range s.Questions {
		q.EnsureResults()
	}
}
