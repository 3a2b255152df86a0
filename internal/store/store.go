// Package store implements persistence for drop-admin on top of MongoDB.
// A Store is created once at startup, pinged, and closed on shutdown; the
// handle is injected into every component that needs it.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/dropworks/drop-admin/internal/config"
	"github.com/dropworks/drop-admin/internal/logger"
)

const pingTimeout = 5 * time.Second

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store wraps the MongoDB client and database handle.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB and verifies the connection with a ping.
func New(ctx context.Context, cfg config.MongoConfig, log logger.Logger) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		// Best-effort cleanup of the half-open client.
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("Connected to MongoDB", logger.String("database", cfg.Database))

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}
	return nil
}

// Records returns the record store over the given database.
func (s *Store) Records() *RecordStore {
	return &RecordStore{db: s.db}
}

// Admins returns the admin account store.
func (s *Store) Admins() *AdminStore {
	return &AdminStore{coll: s.db.Collection(adminsCollection)}
}
