package listings

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned when no collection holds the listing.
var ErrNotFound = errors.New("listing not found")

// Store abstracts the crawler database. Each scraped source lands in its own
// collection, so queries fan out across all of them.
type Store interface {
	CollectionNames(ctx context.Context) ([]string, error)
	Find(ctx context.Context, collection string, filter bson.M) ([]Listing, error)
	FindByID(ctx context.Context, collection string, id ID) (*Listing, error)
}

type mongoStore struct {
	db *mongo.Database
}

// NewMongoStore wraps the crawler database handle.
func NewMongoStore(db *mongo.Database) Store {
	return &mongoStore{db: db}
}

func (s *mongoStore) CollectionNames(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func (s *mongoStore) Find(ctx context.Context, collection string, filter bson.M) ([]Listing, error) {
	cursor, err := s.db.Collection(collection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var results []Listing
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("decode listings from %s: %w", collection, err)
	}
	return results, nil
}

func (s *mongoStore) FindByID(ctx context.Context, collection string, id ID) (*Listing, error) {
	var listing Listing
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id.BinaryValue()}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find listing in %s: %w", collection, err)
	}
	return &listing, nil
}
