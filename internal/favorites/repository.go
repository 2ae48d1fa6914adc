package favorites

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const collectionName = "favorites"

// Repository persists favorites in the user database.
type Repository struct {
	coll *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{coll: db.Collection(collectionName)}
}

func (r *Repository) Insert(ctx context.Context, userID, listingID string) (*Favorite, error) {
	fav := &Favorite{
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, fav); err != nil {
		return nil, fmt.Errorf("insert favorite: %w", err)
	}
	return fav, nil
}

func (r *Repository) Exists(ctx context.Context, userID, listingID string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"user_id": userID, "listing_id": listingID})
	if err != nil {
		return false, fmt.Errorf("count favorites: %w", err)
	}
	return count > 0, nil
}

// Delete removes the favorite if present. Deleting a favorite that does not
// exist is not an error.
func (r *Repository) Delete(ctx context.Context, userID, listingID string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID, "listing_id": listingID}); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// ListingIDs returns every saved listing id for the user.
func (r *Repository) ListingIDs(ctx context.Context, userID string) ([]string, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("find favorites: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []Favorite
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode favorites: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ListingID)
	}
	return ids, nil
}
