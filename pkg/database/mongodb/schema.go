package mongodb

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/supporttools/GoDBAdmin/pkg/snapshot"
)

// sampleSize bounds the documents inspected when inferring field shape.
const sampleSize = 100

// ListDatabases returns the server's databases, excluding the internals.
func (d *Driver) ListDatabases(ctx context.Context) ([]string, error) {
	names, err := d.client.ListDatabaseNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}

	var out []string
	for _, name := range names {
		if name == "admin" || name == "config" || name == "local" {
			continue
		}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// ListTables returns the collection names in name order.
func (d *Driver) ListTables(ctx context.Context) ([]string, error) {
	names, err := d.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// TableExists reports whether the named collection exists.
func (d *Driver) TableExists(ctx context.Context, table string) (bool, error) {
	names, err := d.db.ListCollectionNames(ctx, bson.M{"name": table})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// ColumnExists reports whether any document in the collection carries the
// field.
func (d *Driver) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	count, err := d.db.Collection(table).CountDocuments(ctx,
		bson.M{column: bson.M{"$exists": true}},
		options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetColumns infers field metadata by sampling documents. Documents have
// no schema, so the type reported for a field is the one observed in the
// sample; nullability means the field was absent from some document.
func (d *Driver) GetColumns(ctx context.Context, table string) ([]snapshot.Column, error) {
	exists, err := d.TableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %q does not exist", table)
	}

	cursor, err := d.db.Collection(table).Find(ctx, bson.M{},
		options.Find().SetLimit(sampleSize))
	if err != nil {
		return nil, fmt.Errorf("failed to sample %s: %w", table, err)
	}
	defer cursor.Close(ctx)

	type fieldInfo struct {
		dataType string
		seen     int
	}
	fields := make(map[string]*fieldInfo)
	total := 0

	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		total++
		for name, value := range doc {
			info, ok := fields[name]
			if !ok {
				info = &fieldInfo{dataType: bsonTypeName(value)}
				fields[name] = info
			}
			info.seen++
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	columns := make([]snapshot.Column, 0, len(names))
	for i, name := range names {
		info := fields[name]
		columns = append(columns, snapshot.Column{
			Name:     name,
			DataType: info.dataType,
			Nullable: info.seen < total,
			Position: i + 1,
		})
	}
	return columns, nil
}

func bsonTypeName(value interface{}) string {
	switch value.(type) {
	case string:
		return "string"
	case int32, int64:
		return "int"
	case float64:
		return "double"
	case bool:
		return "bool"
	case bson.M, bson.D:
		return "object"
	case bson.A:
		return "array"
	case bson.ObjectID:
		return "objectId"
	case bson.DateTime:
		return "date"
	case nil:
		return "null"
	}
	return "mixed"
}

// CountRecords returns the document count of a collection.
func (d *Driver) CountRecords(ctx context.Context, table string) (int64, error) {
	count, err := d.db.Collection(table).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count documents of %s: %w", table, err)
	}
	return count, nil
}

// SnapshotState captures per-collection inferred fields and counts.
func (d *Driver) SnapshotState(ctx context.Context) (*snapshot.State, error) {
	state := snapshot.NewState(d.dbName)

	collections, err := d.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	for _, coll := range collections {
		columns, err := d.GetColumns(ctx, coll)
		if err != nil {
			return nil, err
		}
		count, err := d.CountRecords(ctx, coll)
		if err != nil {
			return nil, err
		}
		state.Tables[coll] = snapshot.Table{Name: coll, Columns: columns, RowCount: count}
	}
	return state, nil
}

// RenameCollection renames a collection via the admin renameCollection
// command.
func (d *Driver) RenameCollection(ctx context.Context, from, to string) error {
	err := d.client.Database("admin").RunCommand(ctx, bson.D{
		{Key: "renameCollection", Value: d.dbName + "." + from},
		{Key: "to", Value: d.dbName + "." + to},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to rename collection %s: %w", from, err)
	}
	return nil
}

// DropCollection drops a collection.
func (d *Driver) DropCollection(ctx context.Context, name string) error {
	if err := d.db.Collection(name).Drop(ctx); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	return nil
}

// RemoveField unsets a field on every document of a collection.
func (d *Driver) RemoveField(ctx context.Context, collection, field string) (int64, error) {
	res, err := d.db.Collection(collection).UpdateMany(ctx,
		bson.M{field: bson.M{"$exists": true}},
		bson.M{"$unset": bson.M{field: ""}})
	if err != nil {
		return 0, fmt.Errorf("failed to remove field %s.%s: %w", collection, field, err)
	}
	return res.ModifiedCount, nil
}

// CreateIndex creates an index on the collection.
func (d *Driver) CreateIndex(ctx context.Context, collection string, keys []string, unique bool) (string, error) {
	doc := bson.D{}
	for _, key := range keys {
		doc = append(doc, bson.E{Key: key, Value: 1})
	}
	name, err := d.db.Collection(collection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    doc,
		Options: options.Index().SetUnique(unique),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create index on %s: %w", collection, err)
	}
	return name, nil
}
