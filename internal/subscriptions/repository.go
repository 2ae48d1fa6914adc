package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "subscriptions"

// ErrNotFound is returned when no subscription matches the lookup.
var ErrNotFound = errors.New("subscription not found")

// Repository persists subscription records in the user database.
type Repository struct {
	coll *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{coll: db.Collection(collectionName)}
}

func (r *Repository) Insert(ctx context.Context, sub *Subscription) error {
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	res, err := r.coll.InsertOne(ctx, sub)
	if err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		sub.ID = oid
	}
	return nil
}

// MostRecentByUser returns the newest subscription record for the user.
func (r *Repository) MostRecentByUser(ctx context.Context, userID string) (*Subscription, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

// ActiveByUser returns an active-status record for the user, if any.
func (r *Repository) ActiveByUser(ctx context.Context, userID string) (*Subscription, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "status": StatusActive})
}

// MostRecentCancelledByUser returns the newest cancelled record for the user.
func (r *Repository) MostRecentCancelledByUser(ctx context.Context, userID string) (*Subscription, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "status": StatusCancelled})
}

// ByStripeID looks a record up by its provider subscription id.
func (r *Repository) ByStripeID(ctx context.Context, stripeID string) (*Subscription, error) {
	return r.findOne(ctx, bson.M{"stripe_subscription_id": stripeID})
}

// HasUnexpiredAccess reports whether the user holds an active or cancelled
// subscription whose period has not ended.
func (r *Repository) HasUnexpiredAccess(ctx context.Context, userID string, now time.Time) (bool, error) {
	filter := bson.M{
		"user_id": userID,
		"$or": bson.A{
			bson.M{"status": StatusActive, "ends_at": bson.M{"$gt": now}},
			bson.M{"status": StatusCancelled, "ends_at": bson.M{"$gt": now}},
		},
	}
	count, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("count subscriptions: %w", err)
	}
	return count > 0, nil
}

// UpdateFields applies a partial update to the record with the given id.
func (r *Repository) UpdateFields(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateFieldsByStripeID applies a partial update keyed by the provider id.
func (r *Repository) UpdateFieldsByStripeID(ctx context.Context, stripeID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	if _, err := r.coll.UpdateOne(ctx, bson.M{"stripe_subscription_id": stripeID}, bson.M{"$set": fields}); err != nil {
		return fmt.Errorf("update subscription by stripe id: %w", err)
	}
	return nil
}

func (r *Repository) findOne(ctx context.Context, filter bson.M) (*Subscription, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var sub Subscription
	err := r.coll.FindOne(ctx, filter, opts).Decode(&sub)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find subscription: %w", err)
	}
	return &sub, nil
}
