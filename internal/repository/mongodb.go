package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/m2tx/margin_agent/internal/model"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const DefaultCollection = "transcripts"

var errEmptySessionID = errors.New("repository: transcript session id is required")

// MongoTranscriptRepository implements TranscriptRepository using MongoDB.
type MongoTranscriptRepository struct {
	collection *mongo.Collection
}

// NewMongoTranscriptRepository creates a new MongoTranscriptRepository.
// collectionName defaults to "transcripts" if empty.
func NewMongoTranscriptRepository(db *mongo.Database, collectionName string) *MongoTranscriptRepository {
	if collectionName == "" {
		collectionName = DefaultCollection
	}
	return &MongoTranscriptRepository{
		collection: db.Collection(collectionName),
	}
}

// EnsureIndexes creates the project/time index used to browse transcripts.
func (r *MongoTranscriptRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "project_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("repository: create transcript index: %w", err)
	}
	return nil
}

func (r *MongoTranscriptRepository) Save(ctx context.Context, transcript *model.Transcript) error {
	if transcript == nil || transcript.SessionID == "" {
		return errEmptySessionID
	}

	filter := bson.M{"_id": transcript.SessionID}
	opts := options.Replace().SetUpsert(true)

	_, err := r.collection.ReplaceOne(ctx, filter, transcript, opts)
	if err != nil {
		return fmt.Errorf("repository: upsert transcript %q: %w", transcript.SessionID, err)
	}

	return nil
}

func (r *MongoTranscriptRepository) Load(ctx context.Context, sessionID string) (*model.Transcript, error) {
	filter := bson.M{"_id": sessionID}

	var doc model.Transcript
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: find transcript %q: %w", sessionID, err)
	}

	return &doc, nil
}

func (r *MongoTranscriptRepository) Delete(ctx context.Context, sessionID string) error {
	filter := bson.M{"_id": sessionID}

	_, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("repository: delete transcript %q: %w", sessionID, err)
	}

	return nil
}
