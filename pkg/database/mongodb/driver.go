// Package mongodb implements the MongoDB backend driver.
package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
)

// Driver is a live handle on one MongoDB database.
type Driver struct {
	client  *mongo.Client
	db      *mongo.Database
	profile config.ConnectionProfile
	dbName  string
	uri     string
	tools   *common.ToolLocator
}

func init() {
	common.RegisterOpener(config.BackendMongoDB, func(ctx context.Context, profile config.ConnectionProfile, dbOverride string, tools *common.ToolLocator) (common.Driver, error) {
		return Open(ctx, profile, dbOverride, tools)
	})
}

// Open connects to the database named in the URI path, or dbOverride when
// given.
func Open(ctx context.Context, profile config.ConnectionProfile, dbOverride string, tools *common.ToolLocator) (*Driver, error) {
	dbName, err := databaseFromURI(profile.MongoDBURI)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindConfiguration, err,
			fmt.Sprintf("profile %q has an unusable mongodb_uri", profile.Name))
	}
	if dbOverride == "" {
		dbOverride = profile.Database
	}
	if dbOverride != "" {
		dbName = dbOverride
	}

	client, err := mongo.Connect(options.Client().ApplyURI(profile.MongoDBURI))
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindConnection, err, "failed to connect to MongoDB")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, dberrors.Classify(err).WithContext("project", profile.Name).
			WithSuggestions("check that mongod is reachable and the credentials are correct")
	}

	if tools == nil {
		tools = common.NewToolLocator()
	}

	return &Driver{
		client:  client,
		db:      client.Database(dbName),
		profile: profile,
		dbName:  dbName,
		uri:     profile.MongoDBURI,
		tools:   tools,
	}, nil
}

func databaseFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return "", fmt.Errorf("URI names no database")
	}
	return name, nil
}

// Type returns the backend discriminator.
func (d *Driver) Type() config.Backend { return config.BackendMongoDB }

// Profile returns the originating connection profile.
func (d *Driver) Profile() config.ConnectionProfile { return d.profile }

// DatabaseName returns the database this handle is bound to.
func (d *Driver) DatabaseName() string { return d.dbName }

// Close disconnects the client. Idempotent.
func (d *Driver) Close(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	err := d.client.Disconnect(ctx)
	d.client = nil
	return err
}

// Ping verifies the connection.
func (d *Driver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

// Query executes a database command given as an extended-JSON document,
// e.g. {"find": "users", "filter": {"age": {"$gt": 21}}}. Cursor-bearing
// replies are flattened into the uniform row set.
func (d *Driver) Query(ctx context.Context, stmt string, params ...interface{}) (*common.Result, error) {
	var command bson.D
	if err := bson.UnmarshalExtJSON([]byte(stmt), false, &command); err != nil {
		return nil, dberrors.Wrap(dberrors.KindValidation, err, "query must be an extended-JSON command document").
			WithSuggestions(`example: {"find": "users", "filter": {"active": true}}`)
	}

	var reply bson.M
	if err := d.db.RunCommand(ctx, command).Decode(&reply); err != nil {
		return nil, dberrors.Classify(err)
	}

	result := &common.Result{}
	if cursor, ok := reply["cursor"].(bson.M); ok {
		if batch, ok := cursor["firstBatch"].(bson.A); ok {
			for _, doc := range batch {
				result.Rows = append(result.Rows, toRow(doc))
			}
		}
	} else if n, ok := reply["n"]; ok {
		result.Affected = toInt64(n)
	}
	if result.Affected == 0 {
		result.Affected = int64(len(result.Rows))
	}
	result.Columns = columnsOf(result.Rows)
	return result, nil
}

// Exec executes a command document, returning the reported count.
func (d *Driver) Exec(ctx context.Context, stmt string, params ...interface{}) (int64, error) {
	res, err := d.Query(ctx, stmt, params...)
	if err != nil {
		return 0, err
	}
	return res.Affected, nil
}

func toRow(doc interface{}) map[string]interface{} {
	row := make(map[string]interface{})
	if m, ok := doc.(bson.M); ok {
		for k, v := range m {
			row[k] = v
		}
		return row
	}
	if pairs, ok := doc.(bson.D); ok {
		for _, kv := range pairs {
			row[kv.Key] = kv.Value
		}
	}
	return row
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

// columnsOf returns the sorted union of keys across the rows.
func columnsOf(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}
	return cols
}
