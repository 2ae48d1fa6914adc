package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nochance19900208-source/Real-Estate/pkg/config"
)

// Client wraps the shared Mongo connection and the two databases the service
// reads from: the crawler database holding scraped listing collections and the
// user database holding accounts, favorites, and subscriptions.
type Client struct {
	conn    *mongo.Client
	crawler *mongo.Database
	users   *mongo.Database
}

// Pinger exposes the health check surface.
type Pinger interface {
	Ping(ctx context.Context) error
}

// New connects to Mongo using the provided configuration and verifies the
// connection with a primary ping.
func New(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	if cfg.CrawlerDB == "" || cfg.UserDB == "" {
		return nil, fmt.Errorf("crawler and user database names are required")
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI()).
		SetConnectTimeout(cfg.ConnectTimeout)

	conn, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}

	if err := conn.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = conn.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Client{
		conn:    conn,
		crawler: conn.Database(cfg.CrawlerDB),
		users:   conn.Database(cfg.UserDB),
	}, nil
}

// CrawlerDB returns the handle for the scraped listing collections.
func (c *Client) CrawlerDB() *mongo.Database {
	return c.crawler
}

// UserDB returns the handle for account data.
func (c *Client) UserDB() *mongo.Database {
	return c.users
}

// Ping verifies the connection against the primary.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("mongo client not initialized")
	}
	return c.conn.Ping(ctx, readpref.Primary())
}

// Close disconnects from the cluster.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Disconnect(ctx)
}
