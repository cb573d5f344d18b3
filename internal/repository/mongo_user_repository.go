package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ancsystem/anc-notifier/internal/database"
	"github.com/ancsystem/anc-notifier/internal/model"
)

// MongoUserRepository reads the users directory from a MongoDB collection
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a repository over the named collection
func NewMongoUserRepository(m *database.Mongo, collection string) *MongoUserRepository {
	return &MongoUserRepository{coll: m.DB.Collection(collection)}
}

// FindFirstByName returns one user matching firstname and surname exactly, and
// role when role is non-empty.
func (r *MongoUserRepository) FindFirstByName(ctx context.Context, firstname, surname, role string) (*model.User, error) {
	filter := bson.D{
		{Key: "firstname", Value: firstname},
		{Key: "surname", Value: surname},
	}
	if role != "" {
		filter = append(filter, bson.E{Key: "role", Value: role})
	}

	var user model.User
	err := r.coll.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by name: %w", err)
	}
	return &user, nil
}

// Create inserts a user document
func (r *MongoUserRepository) Create(ctx context.Context, user *model.User) error {
	if user.Firstname == "" || user.Surname == "" {
		return fmt.Errorf("user needs firstname and surname: %w", ErrInvalidInput)
	}
	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
