package mongo

import (
	"alcyxob/coach-progression/internal/domain"
	"alcyxob/coach-progression/internal/repository"
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const assignmentCollectionName = "assignments"

// mongoAssignmentRepository implements repository.AssignmentRepository
type mongoAssignmentRepository struct {
	collection *mongo.Collection
}

// NewMongoAssignmentRepository creates a new Assignment repository backed by MongoDB.
func NewMongoAssignmentRepository(db *mongo.Database) repository.AssignmentRepository {
	return &mongoAssignmentRepository{
		collection: db.Collection(assignmentCollectionName),
	}
}

// Insert stores a new assignment. The version is persisted as given (0 for new assignments).
func (r *mongoAssignmentRepository) Insert(ctx context.Context, assignment *domain.ClientWorkoutAssignment) (primitive.ObjectID, error) {
	if assignment.ClientID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("assignment requires clientId")
	}

	assignment.ID = primitive.NewObjectID()
	if assignment.LastModifiedAt.IsZero() {
		assignment.LastModifiedAt = time.Now().UTC()
	}

	result, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted assignment ID")
	}
	return insertedID, nil
}

// FetchActive retrieves the active assignment of a client.
func (r *mongoAssignmentRepository) FetchActive(ctx context.Context, clientID primitive.ObjectID) (*domain.ClientWorkoutAssignment, error) {
	var assignment domain.ClientWorkoutAssignment
	filter := bson.M{"clientId": clientID, "isActive": true}
	// Newest first in case an interrupted replacement left two active records behind
	findOptions := options.FindOne().SetSort(bson.D{{Key: "startDate", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// GetByID retrieves an assignment by its ID.
func (r *mongoAssignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ClientWorkoutAssignment, error) {
	var assignment domain.ClientWorkoutAssignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &assignment, nil
}

// Update sets the given fields and bumps the version. Used for lifecycle
// changes (deactivation) that are not engine commands.
func (r *mongoAssignmentRepository) Update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	if id == primitive.NilObjectID {
		return errors.New("assignment ID is required for update")
	}

	set := bson.M{"lastModifiedAt": time.Now().UTC()}
	for k, v := range fields {
		if k == "_id" || k == "version" {
			continue
		}
		set[k] = v
	}
	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ReplaceIfVersion swaps in the whole document when the stored version is still expectedVersion.
func (r *mongoAssignmentRepository) ReplaceIfVersion(ctx context.Context, assignment *domain.ClientWorkoutAssignment, expectedVersion int64) error {
	if assignment.ID == primitive.NilObjectID {
		return errors.New("assignment ID is required for replace")
	}

	filter := bson.M{"_id": assignment.ID, "version": expectedVersion}
	result, err := r.collection.ReplaceOne(ctx, filter, assignment)
	if err != nil {
		return err
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either the document is gone or someone else won the race.
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": assignment.ID})
	if err != nil {
		return err
	}
	if count == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrStaleVersion
}

// EnsureAssignmentIndexes creates necessary indexes for the assignments collection.
func EnsureAssignmentIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// At most one active assignment per client
			Keys: bson.D{{Key: "clientId", Value: 1}},
			Options: options.Index().
				SetName("one_active_per_client").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{
			Keys:    bson.D{{Key: "clientId", Value: 1}, {Key: "startDate", Value: -1}},
			Options: options.Index(),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		log.Warnf("failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
