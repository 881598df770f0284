// Package mongostore serves the data service contract from a MongoDB
// deployment. Rows are owner-scoped the same way the hosted tables are.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
)

const (
	sessionsCollection = "feeding_sessions"
	profilesCollection = "user_profiles"
)

// Config holds the connection settings.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Store holds the MongoDB client and collections.
type Store struct {
	client   *mongo.Client
	sessions *mongo.Collection
	profiles *mongo.Collection
	timeout  time.Duration
}

// Open connects to MongoDB, verifies the deployment answers and ensures
// the owner/start_time index exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri is not configured")
	}
	if cfg.Database == "" {
		cfg.Database = "feedlog"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = backend.DefaultTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout).
		SetConnectTimeout(cfg.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, classify("connecting to mongo", err)
	}

	db := client.Database(cfg.Database)
	s := &Store{
		client:   client,
		sessions: db.Collection(sessionsCollection),
		profiles: db.Collection(profilesCollection),
		timeout:  cfg.Timeout,
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, classify("pinging mongo", err)
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "start_time", Value: -1},
		},
	})
	if err != nil {
		return classify("creating feeding_sessions index", err)
	}
	return nil
}

// Service exposes the store through the backend contract.
func (s *Store) Service() *backend.Service {
	return &backend.Service{
		Kind:     backend.KindMongo,
		Sessions: &SessionTable{s: s},
		Profiles: &ProfileTable{s: s},
		Auth:     backend.StaticAuthenticator{},
		Close:    s.client.Disconnect,
	}
}

// Drop removes the database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.sessions.Database().Drop(ctx)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// classify maps driver errors onto domain error classes.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrIntegrity, err)
	case mongo.IsTimeout(err), backend.IsTimeout(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTimeout, err)
	case mongo.IsNetworkError(err), backend.IsConnectionError(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrConnectivity, err)
	}
	if isAuthError(err) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrPermission, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// isAuthError reports server error code 13 (Unauthorized).
func isAuthError(err error) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(13)
}
