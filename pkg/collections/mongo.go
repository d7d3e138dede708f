package collections

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// codeNamespaceExists is returned by the create command when the collection already exists.
const codeNamespaceExists = 48

func isNamespaceExists(err error) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && ce.Code == codeNamespaceExists
}

// Mongo stores each tenant collection as a MongoDB collection in the master database.
type Mongo struct {
	db  *mongo.Database
	log *zap.SugaredLogger
}

func NewMongo(db *mongo.Database, log *zap.SugaredLogger) *Mongo {
	return &Mongo{db: db, log: log}
}

func (m *Mongo) EnsureCollection(ctx context.Context, name string) error {
	exists, err := m.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	// Another creator may win between the check and the create.
	if err := m.db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExists(err) {
			return nil
		}
		return fmt.Errorf("create collection %q: %w", name, err)
	}
	m.log.Infow("collection created", "collection", name)
	return nil
}

func (m *Mongo) DropCollection(ctx context.Context, name string) error {
	// Drop ignores "ns not found".
	if err := m.db.Collection(name).Drop(ctx); err != nil {
		return fmt.Errorf("drop collection %q: %w", name, err)
	}
	return nil
}

func (m *Mongo) CopyAndRetarget(ctx context.Context, oldName, newName string) error {
	exists, err := m.Exists(ctx, oldName)
	if err != nil {
		return err
	}
	if !exists {
		m.log.Infow("nothing to migrate", "from", oldName, "to", newName)
		return nil
	}
	// $out runs entirely on the server and replaces newName atomically once the stage completes.
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{}}},
		{{Key: "$out", Value: newName}},
	}
	cur, err := m.db.Collection(oldName).Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("copy %q to %q: %w", oldName, newName, err)
	}
	for cur.Next(ctx) {
	}
	err = cur.Err()
	_ = cur.Close(ctx)
	if err != nil {
		return fmt.Errorf("copy %q to %q: %w", oldName, newName, err)
	}
	return m.DropCollection(ctx, oldName)
}

func (m *Mongo) Exists(ctx context.Context, name string) (bool, error) {
	names, err := m.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return false, fmt.Errorf("list collections: %w", err)
	}
	return len(names) > 0, nil
}
