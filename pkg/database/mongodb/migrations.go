package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/supporttools/GoDBAdmin/pkg/database/common"
)

const ledgerCollection = "migrations"

// EnsureMigrationLedger creates the migrations collection with a unique
// index on name. Both operations are idempotent.
func (d *Driver) EnsureMigrationLedger(ctx context.Context) error {
	_, err := d.db.Collection(ledgerCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create migrations ledger: %w", err)
	}
	return nil
}

// MigrationApplied reports whether the named migration is recorded.
func (d *Driver) MigrationApplied(ctx context.Context, name string) (bool, error) {
	count, err := d.db.Collection(ledgerCollection).CountDocuments(ctx,
		bson.M{"name": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ExecuteMigration replays a migration body given as an extended-JSON
// array of database command documents. MongoDB offers no cross-statement
// atomicity here; commands run in order and the first failure aborts.
func (d *Driver) ExecuteMigration(ctx context.Context, body string) error {
	var commands []bson.D
	if err := bson.UnmarshalExtJSON([]byte(body), false, &commands); err != nil {
		// A single command document is also accepted.
		var single bson.D
		if err2 := bson.UnmarshalExtJSON([]byte(body), false, &single); err2 != nil {
			return fmt.Errorf("migration body is not a command document or array: %w", err)
		}
		commands = []bson.D{single}
	}

	for i, command := range commands {
		if err := d.db.RunCommand(ctx, command).Err(); err != nil {
			return fmt.Errorf("migration command %d failed: %w", i+1, err)
		}
	}
	return nil
}

// ApplyMigration runs the body, then inserts the ledger record. There is
// no cross-command transaction on this path, so the record is written last
// and a failure before it leaves the migration retryable. The unique index
// turns a duplicate insert into a no-op.
func (d *Driver) ApplyMigration(ctx context.Context, name, body string) error {
	if err := d.ExecuteMigration(ctx, body); err != nil {
		return err
	}

	_, err := d.db.Collection(ledgerCollection).InsertOne(ctx, bson.M{
		"name":       name,
		"applied_at": time.Now().UTC(),
		"content":    body,
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return nil
}

// AppliedMigrations lists ledger records in application order.
func (d *Driver) AppliedMigrations(ctx context.Context) ([]common.MigrationRecord, error) {
	cursor, err := d.db.Collection(ledgerCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "applied_at", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []common.MigrationRecord
	for cursor.Next(ctx) {
		var doc struct {
			Name      string    `bson:"name"`
			AppliedAt time.Time `bson:"applied_at"`
			Content   string    `bson:"content"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		records = append(records, common.MigrationRecord{
			Name:      doc.Name,
			AppliedAt: doc.AppliedAt,
			Content:   doc.Content,
		})
	}
	return records, cursor.Err()
}
