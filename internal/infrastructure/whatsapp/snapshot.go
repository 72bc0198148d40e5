package whatsapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Sidecar files SQLite may leave next to the device database.
var sidecars = []string{"-wal", "-shm", "-journal"}

// snapshot copies the live database into a standalone file and returns its bytes.
// VACUUM INTO produces a consistent copy even while the client keeps writing.
func snapshot(ctx context.Context, db *sql.DB, dbPath string) ([]byte, error) {
	tmp := filepath.Join(filepath.Dir(dbPath), "."+filepath.Base(dbPath)+".snapshot")
	_ = os.Remove(tmp)
	defer os.Remove(tmp)

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", tmp); err != nil {
		return nil, fmt.Errorf("vacuum into snapshot: %w", err)
	}
	blob, err := os.ReadFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return blob, nil
}

// restore replaces the device database with blob. A nil blob removes it, so the
// next client starts without an identity.
func restore(dbPath string, blob []byte) error {
	for _, suffix := range append([]string{""}, sidecars...) {
		if err := os.Remove(dbPath + suffix); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", dbPath+suffix, err)
		}
	}
	if blob == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return fmt.Errorf("create device db dir: %w", err)
	}
	if err := os.WriteFile(dbPath, blob, 0o600); err != nil {
		return fmt.Errorf("write device db: %w", err)
	}
	return nil
}

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// RemoveDeviceDB deletes the local device database and its sidecars. It must not
// run while a client holds the database open.
func RemoveDeviceDB(dbPath string) error {
	return restore(dbPath, nil)
}
