// Package tempbackup manages the encrypted per-operation backup store:
// time-bounded snapshots taken before destructive commands.
package tempbackup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/supporttools/GoDBAdmin/pkg/database/common"
	"github.com/supporttools/GoDBAdmin/pkg/dberrors"
	"github.com/supporttools/GoDBAdmin/pkg/encryption"
	"github.com/supporttools/GoDBAdmin/pkg/logging"
)

// DefaultDir is the store location under the working directory.
const DefaultDir = ".db_temp_backups"

// Retention is how long an entry survives after its file mtime. The
// 4-hour window is an invariant, not a tunable.
const Retention = 4 * time.Hour

// Store is the on-disk temp-backup store.
type Store struct {
	Dir string

	cron *cron.Cron

	// now is swapped in tests.
	now func() time.Time
}

// Entry describes one stored temp backup.
type Entry struct {
	Name       string
	Path       string
	KeyPath    string
	SizeBytes  int64
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Restorable bool
}

// ExpiresIn reports the remaining lifetime, floored at zero.
func (e Entry) ExpiresIn(now time.Time) time.Duration {
	remaining := e.ExpiresAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NewStore returns a store rooted at dir (DefaultDir when empty).
func NewStore(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{Dir: dir, now: time.Now}
}

// ensureDir creates the store directory and its .gitignore on first use.
// The .gitignore ignores everything except itself so a snapshot of
// operator data never lands in version control.
func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.Dir, 0o700); err != nil {
		return dberrors.Wrap(dberrors.KindFileSystem, err, "cannot create temp-backup directory")
	}
	gitignore := filepath.Join(s.Dir, ".gitignore")
	if _, err := os.Stat(gitignore); os.IsNotExist(err) {
		content := "*\n!.gitignore\n"
		if err := os.WriteFile(gitignore, []byte(content), 0o644); err != nil {
			return dberrors.Wrap(dberrors.KindFileSystem, err, "cannot write temp-backup .gitignore")
		}
	}
	return nil
}

// slug lowercases and strips a name down to filesystem-safe characters.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// entryName builds temp_<project>_<operation>_<timestamp> with the colons
// of the ISO timestamp escaped for the filesystem.
func entryName(project, operation string, at time.Time) string {
	stamp := strings.ReplaceAll(at.UTC().Format("2006-01-02T15:04:05Z"), ":", "-")
	return fmt.Sprintf("temp_%s_%s_%s", slug(project), slug(operation), stamp)
}

// Create dumps the database through the driver, encrypts the dump, and
// persists ciphertext plus key. Expired entries are evicted first.
func (s *Store) Create(ctx context.Context, drv common.Driver, project, operation string) (*Entry, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	if _, err := s.CleanupExpired(); err != nil {
		logging.Logger.Warnf("Temp-backup eviction failed: %v", err)
	}

	var dump bytes.Buffer
	if err := drv.DumpTo(ctx, &dump); err != nil {
		return nil, dberrors.Classify(err).WithContext("operation", operation)
	}

	key, err := encryption.GenerateKey()
	if err != nil {
		return nil, err
	}
	ciphertext, err := encryption.Encrypt(dump.Bytes(), key)
	if err != nil {
		return nil, err
	}

	createdAt := s.now()
	name := entryName(project, operation, createdAt)
	path := filepath.Join(s.Dir, name+".sql")
	keyPath := path + ".key"

	// Ciphertext first, key second: an interrupted write leaves a
	// non-restorable entry rather than an orphaned key.
	if err := os.WriteFile(path, ciphertext, 0o600); err != nil {
		return nil, dberrors.Wrap(dberrors.KindFileSystem, err, "cannot write temp backup")
	}
	if err := encryption.WriteKeyFile(keyPath, key); err != nil {
		os.Remove(path)
		return nil, dberrors.Wrap(dberrors.KindFileSystem, err, "cannot write temp-backup key")
	}

	return &Entry{
		Name:       name,
		Path:       path,
		KeyPath:    keyPath,
		SizeBytes:  int64(len(ciphertext)),
		CreatedAt:  createdAt,
		ExpiresAt:  createdAt.Add(Retention),
		Restorable: true,
	}, nil
}

// List enumerates the stored entries, oldest first. Expired entries are
// evicted before listing.
func (s *Store) List() ([]Entry, error) {
	if _, err := s.CleanupExpired(); err != nil {
		logging.Logger.Warnf("Temp-backup eviction failed: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.sql"))
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		keyPath := path + ".key"
		_, keyErr := os.Stat(keyPath)

		entries = append(entries, Entry{
			Name:       strings.TrimSuffix(filepath.Base(path), ".sql"),
			Path:       path,
			KeyPath:    keyPath,
			SizeBytes:  info.Size(),
			CreatedAt:  info.ModTime(),
			ExpiresAt:  info.ModTime().Add(Retention),
			Restorable: keyErr == nil,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

// Get returns the named entry, or an error listing what exists.
func (s *Store) Get(name string) (*Entry, error) {
	entries, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Name == name {
			return &entries[i], nil
		}
	}

	available := make([]string, 0, len(entries))
	for _, e := range entries {
		available = append(available, e.Name)
	}
	err2 := dberrors.Newf(dberrors.KindValidation, "no temp backup named %q", name)
	if len(available) > 0 {
		err2 = err2.WithSuggestions("available: " + strings.Join(available, ", "))
	}
	return nil, err2
}

// CleanupExpired deletes every entry whose file mtime is older than the
// retention window, removing ciphertext and key together. Returns how
// many entries were evicted.
func (s *Store) CleanupExpired() (int, error) {
	matches, err := filepath.Glob(filepath.Join(s.Dir, "*.sql"))
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-Retention)
	evicted := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			logging.Logger.Warnf("Cannot evict %s: %v", path, err)
			continue
		}
		os.Remove(path + ".key")
		evicted++
		logging.Logger.Debugf("Evicted expired temp backup %s", filepath.Base(path))
	}
	return evicted, nil
}

// Evict removes the named entry regardless of age.
func (s *Store) Evict(name string) error {
	entry, err := s.Get(name)
	if err != nil {
		return err
	}
	if err := os.Remove(entry.Path); err != nil {
		return dberrors.Wrap(dberrors.KindFileSystem, err, "cannot remove temp backup")
	}
	os.Remove(entry.KeyPath)
	return nil
}

// Restore decrypts the named entry and replays it through the driver's
// restore tool. A missing key makes the entry non-restorable and the
// target is never touched.
func (s *Store) Restore(ctx context.Context, drv common.Driver, name string) error {
	entry, err := s.Get(name)
	if err != nil {
		return err
	}
	if !entry.Restorable {
		return dberrors.Newf(dberrors.KindFileSystem,
			"temp backup %q has no key file and cannot be restored", name)
	}

	key, err := encryption.ReadKeyFile(entry.KeyPath)
	if err != nil {
		return dberrors.Wrap(dberrors.KindFileSystem, err, "cannot read temp-backup key")
	}
	ciphertext, err := os.ReadFile(entry.Path)
	if err != nil {
		return dberrors.Wrap(dberrors.KindFileSystem, err, "cannot read temp backup")
	}
	plaintext, err := encryption.Decrypt(ciphertext, key)
	if err != nil {
		return dberrors.Wrap(dberrors.KindValidation, err, "temp-backup decryption failed")
	}

	return drv.RestoreFrom(ctx, bytes.NewReader(plaintext))
}

// StartEvictionTimer begins the hourly background eviction sweep. Stop it
// via the returned function before process exit.
func (s *Store) StartEvictionTimer() func() {
	s.cron = cron.New()
	s.cron.AddFunc("@hourly", func() {
		if n, err := s.CleanupExpired(); err != nil {
			logging.Logger.Warnf("Scheduled temp-backup eviction failed: %v", err)
		} else if n > 0 {
			logging.Logger.Infof("Evicted %d expired temp backups", n)
		}
	})
	s.cron.Start()
	return func() { s.cron.Stop() }
}
