// Package postgres implements the PostgreSQL backend driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pkg/errors"

	"github.com/supporttools/GoDBAdmin/pkg/config"
	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
)

// Driver is a live handle on one PostgreSQL database.
type Driver struct {
	db      *sql.DB
	profile config.ConnectionProfile
	dbName  string
	conn    connParams
	tools   *common.ToolLocator

	// serverMajor caches the server's major version for the tool gate.
	serverMajor int
}

// connParams carries the parsed pieces of the connection URI. The password
// never appears on a child process command line; it travels via PGPASSWORD.
type connParams struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

func init() {
	common.RegisterOpener(config.BackendPostgres, func(ctx context.Context, profile config.ConnectionProfile, dbOverride string, tools *common.ToolLocator) (common.Driver, error) {
		return Open(ctx, profile, dbOverride, tools)
	})
}

// Open connects to the database named in the profile URI, or dbOverride
// when given.
func Open(ctx context.Context, profile config.ConnectionProfile, dbOverride string, tools *common.ToolLocator) (*Driver, error) {
	conn, err := parseURI(profile.PostgresURI)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindConfiguration, err,
			fmt.Sprintf("profile %q has an unusable postgres_uri", profile.Name))
	}
	if dbOverride == "" {
		dbOverride = profile.Database
	}
	if dbOverride != "" {
		conn.Database = dbOverride
	}

	db, err := sql.Open("postgres", conn.DSN())
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindConnection, err, "failed to open PostgreSQL connection")
	}

	// Command work is sequential; a small pool with a short idle timeout
	// lets the process exit promptly.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(30 * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dberrors.Classify(err).WithContext("project", profile.Name).
			WithSuggestions("check that the server is reachable and the credentials are correct")
	}

	if tools == nil {
		tools = common.NewToolLocator()
	}

	return &Driver{
		db:      db,
		profile: profile,
		dbName:  conn.Database,
		conn:    conn,
		tools:   tools,
	}, nil
}

// parseURI splits a postgresql:// URI into its connection parameters.
func parseURI(uri string) (connParams, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return connParams{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return connParams{}, fmt.Errorf("unexpected scheme %q", u.Scheme)
	}

	params := connParams{
		Host:     u.Hostname(),
		Port:     u.Port(),
		Database: strings.TrimPrefix(u.Path, "/"),
		SSLMode:  u.Query().Get("sslmode"),
	}
	if params.Port == "" {
		params.Port = "5432"
	}
	if u.User != nil {
		params.User = u.User.Username()
		params.Password, _ = u.User.Password()
	}
	if params.Database == "" {
		return connParams{}, errors.New("URI names no database")
	}
	return params, nil
}

// DSN renders the params as a libpq URI.
func (c connParams) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		if c.Password != "" {
			u.User = url.UserPassword(c.User, c.Password)
		} else {
			u.User = url.User(c.User)
		}
	}
	q := url.Values{}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	q.Set("sslmode", sslMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Type returns the backend discriminator.
func (d *Driver) Type() config.Backend { return config.BackendPostgres }

// Profile returns the originating connection profile.
func (d *Driver) Profile() config.ConnectionProfile { return d.profile }

// DatabaseName returns the database this handle is bound to.
func (d *Driver) DatabaseName() string { return d.dbName }

// Close releases the pool. Idempotent.
func (d *Driver) Close(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	return err
}

// Ping verifies the connection.
func (d *Driver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// ServerMajorVersion reports the server's major version, cached after the
// first call.
func (d *Driver) ServerMajorVersion(ctx context.Context) (int, error) {
	if d.serverMajor != 0 {
		return d.serverMajor, nil
	}
	var versionNum int
	// server_version_num is e.g. 160002 for 16.2.
	if err := d.db.QueryRowContext(ctx, "SHOW server_version_num").Scan(&versionNum); err != nil {
		return 0, fmt.Errorf("failed to read server version: %w", err)
	}
	d.serverMajor = versionNum / 10000
	return d.serverMajor, nil
}

// readKeywords are top-level keywords treated as row-returning statements.
var readKeywords = map[string]bool{
	"SELECT": true, "WITH": true, "SHOW": true, "EXPLAIN": true,
	"VALUES": true, "TABLE": true,
}

// Query executes an arbitrary SQL statement. Row-returning statements come
// back as a row set; everything else reports the affected count.
func (d *Driver) Query(ctx context.Context, stmt string, params ...interface{}) (*common.Result, error) {
	keyword := strings.ToUpper(firstWord(stmt))
	if readKeywords[keyword] {
		return d.queryRows(ctx, stmt, params...)
	}

	// RETURNING clauses produce rows from writes.
	if strings.Contains(strings.ToUpper(stmt), "RETURNING") {
		return d.queryRows(ctx, stmt, params...)
	}

	affected, err := d.Exec(ctx, stmt, params...)
	if err != nil {
		return nil, err
	}
	return &common.Result{Affected: affected}, nil
}

func (d *Driver) queryRows(ctx context.Context, stmt string, params ...interface{}) (*common.Result, error) {
	rows, err := d.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, dberrors.Classify(err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &common.Result{Columns: cols}
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(map[string]interface{}, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	result.Affected = int64(len(result.Rows))
	return result, nil
}

// Exec executes a statement that returns no rows.
func (d *Driver) Exec(ctx context.Context, stmt string, params ...interface{}) (int64, error) {
	res, err := d.db.ExecContext(ctx, stmt, params...)
	if err != nil {
		return 0, dberrors.Classify(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		// DDL statements report no affected count.
		return 0, nil
	}
	return affected, nil
}

func firstWord(stmt string) string {
	fields := strings.Fields(strings.TrimSpace(stmt))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
