package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dropworks/drop-admin/internal/models"
)

// adminsCollection is the fixed collection holding administrator accounts.
const adminsCollection = "admins"

// AdminStore reads and mutates administrator accounts.
type AdminStore struct {
	coll *mongo.Collection
}

// GetByEmail returns the admin with the given email, or ErrNotFound.
func (a *AdminStore) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin

	err := a.coll.FindOne(ctx, bson.M{"email": email}).Decode(&admin)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}

	return &admin, nil
}

// UpdateLastLogin stamps the account's last_login_at field.
func (a *AdminStore) UpdateLastLogin(ctx context.Context, id bson.ObjectID) error {
	_, err := a.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

// ExistsByEmail reports whether an account with the given email exists.
func (a *AdminStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	count, err := a.coll.CountDocuments(ctx, bson.M{"email": email})
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	return count > 0, nil
}

// Create inserts a new admin account.
func (a *AdminStore) Create(ctx context.Context, admin *models.Admin) error {
	now := time.Now().UTC()
	admin.CreatedAt = &now

	result, err := a.coll.InsertOne(ctx, admin)
	if err != nil {
		return fmt.Errorf("insert admin: %w", err)
	}

	if id, ok := result.InsertedID.(bson.ObjectID); ok {
		admin.ID = id
	}

	return nil
}
