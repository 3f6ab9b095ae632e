// Package mongodb reads and writes GridFS buckets in MongoDB.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/sagarc03/gridfetch"
)

const chunksIndexName = "files_id_1_n_1"

// Database is a MongoDB client bound to one deployment.
type Database struct {
	client *mongo.Client
}

// Connect dials uri and checks that the server it reached is a writable
// primary. timeout bounds both connection setup and server selection.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*Database, error) {
	opts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		opts.SetConnectTimeout(timeout).SetServerSelectionTimeout(timeout)
	}
	if err := opts.Validate(); err != nil {
		return nil, gridfetch.NewConnectError(gridfetch.ReasonBadArguments, fmt.Errorf("parse mongodb uri: %w", err))
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, gridfetch.NewConnectError(gridfetch.ReasonBadArguments, fmt.Errorf("connect mongodb: %w", err))
	}

	var hello struct {
		IsWritablePrimary bool `bson:"isWritablePrimary"`
	}
	cmd := bson.D{{Key: "hello", Value: 1}}
	err = client.Database("admin").
		RunCommand(ctx, cmd, options.RunCmd().SetReadPreference(readpref.Nearest())).
		Decode(&hello)
	if err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		ce := gridfetch.ClassifyConnectError("", fmt.Errorf("hello: %w", err))
		if ce.Reason == gridfetch.ReasonUnknown {
			ce.Reason = gridfetch.ReasonConnectFailure
		}
		return nil, ce
	}
	if !hello.IsWritablePrimary {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, gridfetch.NewConnectError(gridfetch.ReasonNotPrimary, errors.New("mongodb server is not a writable primary"))
	}

	return &Database{client: client}, nil
}

// Ping verifies the primary is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

func (d *Database) files(ns gridfetch.Namespace) *mongo.Collection {
	return d.client.Database(ns.Database).Collection(ns.FilesCollection())
}

func (d *Database) chunks(ns gridfetch.Namespace) *mongo.Collection {
	return d.client.Database(ns.Database).Collection(ns.ChunksCollection())
}

// Migrate creates the standard GridFS indexes for ns.
func (d *Database) Migrate(ctx context.Context, ns gridfetch.Namespace) error {
	_, err := d.files(ns).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "filename", Value: 1}, {Key: "uploadDate", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("migrate %s: files index: %w", ns, err)
	}

	_, err = d.chunks(ns).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "files_id", Value: 1}, {Key: "n", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(chunksIndexName),
	})
	if err != nil {
		return fmt.Errorf("migrate %s: chunks index: %w", ns, err)
	}
	return nil
}

// Validate checks that the unique chunk index exists for ns.
func (d *Database) Validate(ctx context.Context, ns gridfetch.Namespace) error {
	specs, err := d.chunks(ns).Indexes().ListSpecifications(ctx)
	if err != nil {
		return fmt.Errorf("validate %s: list indexes: %w", ns, err)
	}

	for _, spec := range specs {
		if spec.Name == chunksIndexName && spec.Unique != nil && *spec.Unique {
			return nil
		}
	}
	return fmt.Errorf("validate %s: unique index %s missing on %s", ns, chunksIndexName, ns.ChunksCollection())
}
