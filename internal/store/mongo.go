package store

import (
	"context"
	"errors"
	"time"

	"github.com/userauth/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// MongoUserStore persists users as documents in a MongoDB collection
// with a unique index on email.
type MongoUserStore struct {
	coll *mongo.Collection
}

type userDocument struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
}

func NewMongoUserStore(client *mongo.Client, database string) *MongoUserStore {
	return &MongoUserStore{coll: client.Database(database).Collection(usersCollection)}
}

// EnsureIndexes creates the unique email index. It must succeed before
// the store handles traffic; the index is what makes duplicate
// registrations lose the race.
func (s *MongoUserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *MongoUserStore) GetByID(ctx context.Context, id string) (types.User, error) {
	var doc userDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

func (s *MongoUserStore) GetByEmail(ctx context.Context, email string) (types.User, error) {
	var doc userDocument
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return doc.toUser(), nil
}

func (s *MongoUserStore) Create(ctx context.Context, user types.User) (types.User, error) {
	user.CreatedAt = time.Now()

	_, err := s.coll.InsertOne(ctx, userDocument{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return types.User{}, ErrDuplicateEmail
		}
		return types.User{}, err
	}
	return user, nil
}

func (d userDocument) toUser() types.User {
	return types.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}
