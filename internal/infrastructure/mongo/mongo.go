// Package mongo is the document-database credential store.
package mongo

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"studytube/backend/internal/infrastructure/connect"
)

const (
	usersCollection = "users"
	emailIndexName  = "email_1"
)

// Options tunes the client and bootstrap.
type Options struct {
	Database               string
	AppName                string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ServerSelectionTimeout time.Duration
	Retry                  connect.Policy
}

// Database holds the connected client and the selected database.
type Database struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials uri and pings the primary, retrying per opts.Retry.
func Connect(ctx context.Context, uri string, opts Options, logger *slog.Logger) (*Database, error) {
	clientOpts := options.Client().ApplyURI(uri)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	clientOpts.SetMinPoolSize(opts.MinPoolSize)
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}

	var client *mongo.Client
	err := connect.Do(ctx, logger, "mongodb", opts.Retry, func(ctx context.Context) error {
		c, err := mongo.Connect(clientOpts)
		if err != nil {
			return err
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.WithoutCancel(ctx))
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}

	return &Database{Client: client, DB: client.Database(opts.Database)}, nil
}

// Users returns the users collection.
func (d *Database) Users() *mongo.Collection {
	return d.DB.Collection(usersCollection)
}

// EnsureIndexes creates the unique email index the store relies on.
func (d *Database) EnsureIndexes(ctx context.Context) error {
	_, err := d.Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(emailIndexName),
	})
	if err != nil {
		return oops.Code("DB_INDEX_FAILED").With("index", emailIndexName).Wrap(err)
	}
	return nil
}

// Ping checks that the primary is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.Client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (d *Database) Close(ctx context.Context) error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Disconnect(ctx)
}
