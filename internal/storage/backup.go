package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dpshade/prompt-vault/internal/errors"
	"github.com/dpshade/prompt-vault/internal/models"
)

// DefaultBackupName returns the suggested backup file name for day
func DefaultBackupName(day time.Time) string {
	return fmt.Sprintf("prompt_vault_backup_%s.db", day.Format("2006-01-02"))
}

// Backup copies the live database to dest. dest is written through a
// temporary file and renamed into place, so a failed backup leaves neither
// the live file nor an existing dest modified.
func (s *Storage) Backup(ctx context.Context, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dest == "" {
		return errors.InvalidInputError("backup destination is empty")
	}
	if sameFile(s.path, dest) {
		return errors.InvalidInputError("backup destination is the live database")
	}

	if err := copyFileAtomic(s.path, dest); err != nil {
		return errors.IOError("Backup", err).WithContext("dest", dest)
	}
	log.WithFields(log.Fields{"source": s.path, "dest": dest}).Info("database backed up")
	return nil
}

// Restore replaces the live database with src. src must be a readable vault
// with a prompts table. The copy lands in a temporary file beside the live
// database and is renamed over it only once complete.
func (s *Storage) Restore(ctx context.Context, src string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if sameFile(s.path, src) {
		return errors.InvalidInputError("restore source is the live database")
	}

	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileNotFoundError(src, err)
		}
		return errors.IOError("Restore", err).WithContext("source", src)
	}
	if info.IsDir() {
		return errors.InvalidInputError(fmt.Sprintf("restore source is a directory: %s", src))
	}

	if err := verifyVault(ctx, src); err != nil {
		return err
	}

	if err := copyFileAtomic(src, s.path); err != nil {
		return errors.IOError("Restore", err).WithContext("source", src)
	}
	log.WithFields(log.Fields{"source": src, "dest": s.path}).Info("database restored")

	// Backups made before the settings table existed get the defaults.
	return s.InitLibrary(ctx)
}

// verifyVault checks that path is an SQLite file holding a prompts table
func verifyVault(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return errors.CorruptedError(path, err)
	}
	defer db.Close()

	var name string
	err = db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='prompts'").Scan(&name)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.CorruptedError(path, fmt.Errorf("no prompts table"))
	}
	if err != nil {
		return errors.CorruptedError(path, err)
	}
	return nil
}

// copyFileAtomic copies src to dst via a synced temporary file in dst's
// directory followed by a rename
func copyFileAtomic(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".prompt-vault-*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = io.Copy(tmp, in); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// IsVault reports whether path names this vault's database file, however
// the path is spelled
func (s *Storage) IsVault(path string) bool {
	return filepath.Clean(path) == filepath.Clean(s.path) || sameFile(s.path, path)
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// ReadVault returns every prompt stored in the vault file at path without
// modifying it
func ReadVault(ctx context.Context, path string) ([]*models.Prompt, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFoundError(path, err)
		}
		return nil, errors.IOError("Read vault", err).WithContext("path", path)
	}
	if err := verifyVault(ctx, path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, classify("read vault", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx,
		"SELECT "+promptColumns+" FROM prompts ORDER BY last_used DESC, id DESC")
	if err != nil {
		return nil, classify("read vault", err)
	}
	defer rows.Close()

	var prompts []*models.Prompt
	for rows.Next() {
		p, err := scanPrompt(rows)
		if err != nil {
			return nil, classify("read vault", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("read vault", err)
	}
	return prompts, nil
}
