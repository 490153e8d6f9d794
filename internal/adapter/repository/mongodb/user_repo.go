package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/wanderlust/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ErrUserNotFound is returned when an owner id has no user record.
var ErrUserNotFound = errors.New("user not found")

// UserRepository reads the users collection shared with the user service.
type UserRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewUserRepository(db *mongo.Database, log *logger.Logger) *UserRepository {
	return &UserRepository{
		collection: db.Collection(userCollectionName),
		logger:     log.Named("UserRepository"),
	}
}

// GetEmailByID returns the email address of the user with the given hex id.
func (r *UserRepository) GetEmailByID(ctx context.Context, userID string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		r.logger.Warn("GetEmailByID: invalid user id", zap.String("user_id", userID))
		return "", fmt.Errorf("%w: invalid id %q", ErrUserNotFound, userID)
	}

	var doc userDocument
	opts := options.FindOne().SetProjection(bson.M{"username": 1, "email": 1})
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Info("GetEmailByID: user not found", zap.String("user_id", userID))
			return "", ErrUserNotFound
		}
		r.logger.Error("GetEmailByID: failed to find user", zap.Error(err), zap.String("user_id", userID))
		return "", fmt.Errorf("db findone failed: %w", err)
	}
	return doc.Email, nil
}
