package mongo

import (
	"alcyxob/coach-progression/internal/domain"
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AssignmentChangeFeed streams committed assignment documents from a MongoDB
// change stream. Change streams need a replica set or sharded cluster.
type AssignmentChangeFeed struct {
	collection *mongo.Collection
}

func NewAssignmentChangeFeed(db *mongo.Database) *AssignmentChangeFeed {
	return &AssignmentChangeFeed{
		collection: db.Collection(assignmentCollectionName),
	}
}

type assignmentChangeEvent struct {
	OperationType string                          `bson:"operationType"`
	FullDocument  *domain.ClientWorkoutAssignment `bson:"fullDocument"`
}

// Watch blocks, calling emit with the full document of every insert, replace
// or update of the client's assignments, until ctx is done or the stream fails.
// A cancelled ctx returns nil.
func (f *AssignmentChangeFeed) Watch(ctx context.Context, clientID primitive.ObjectID, emit func(*domain.ClientWorkoutAssignment)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "operationType", Value: bson.M{"$in": bson.A{"insert", "replace", "update"}}},
			{Key: "fullDocument.clientId", Value: clientID},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	stream, err := f.collection.Watch(ctx, pipeline, opts)
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var event assignmentChangeEvent
		if err := stream.Decode(&event); err != nil {
			return fmt.Errorf("decode change event: %w", err)
		}
		if event.FullDocument == nil {
			// the document was deleted before the lookup ran
			continue
		}
		emit(event.FullDocument)
	}

	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
		return fmt.Errorf("change stream: %w", err)
	}
	return nil
}
