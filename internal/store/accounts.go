package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"goac/internal/logging"
)

// ErrNotFound is returned when an account or peer does not exist.
var ErrNotFound = errors.New("store: not found")

// Account is an own identity: the key pair plus Autocrypt policy.
type Account struct {
	Addr          string
	Name          string
	SecretKey     string // armored
	PublicKey     string // base64 keydata as sent on the wire
	PreferEncrypt string
	Enabled       bool
	CreatedAt     time.Time
}

// UpsertAccount inserts or replaces an account.
func (s *Store) UpsertAccount(a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`INSERT INTO accounts
		(addr, name, secret_key, public_key, prefer_encrypt, enabled, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(addr) DO UPDATE SET
			name = excluded.name,
			secret_key = excluded.secret_key,
			public_key = excluded.public_key,
			prefer_encrypt = excluded.prefer_encrypt,
			enabled = excluded.enabled`,
		a.Addr, a.Name, a.SecretKey, a.PublicKey, a.PreferEncrypt,
		boolInt(a.Enabled), a.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: upsert account %s: %w", a.Addr, err)
	}
	logging.Store("upserted account %s", a.Addr)
	return nil
}

// GetAccount looks up an account by address.
func (s *Store) GetAccount(addr string) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT addr, name, secret_key, public_key,
		prefer_encrypt, enabled, created_at FROM accounts WHERE addr = ?`, addr)
	return scanAccount(row)
}

// ListAccounts returns all accounts ordered by address.
func (s *Store) ListAccounts() ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT addr, name, secret_key, public_key,
		prefer_encrypt, enabled, created_at FROM accounts ORDER BY addr`)
	if err != nil {
		return nil, fmt.Errorf("store: list accounts: %w", err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetAccountEnabled toggles Autocrypt processing for an account.
func (s *Store) SetAccountEnabled(addr string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE accounts SET enabled = ? WHERE addr = ?`,
		boolInt(enabled), addr)
	if err != nil {
		return fmt.Errorf("store: set enabled for %s: %w", addr, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAccount removes an account.
func (s *Store) DeleteAccount(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM accounts WHERE addr = ?`, addr)
	if err != nil {
		return fmt.Errorf("store: delete account %s: %w", addr, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	var enabled int
	var created int64
	err := row.Scan(&a.Addr, &a.Name, &a.SecretKey, &a.PublicKey,
		&a.PreferEncrypt, &enabled, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrNotFound
	}
	if err != nil {
		return Account{}, fmt.Errorf("store: scan account: %w", err)
	}
	a.Enabled = enabled != 0
	a.CreatedAt = tsOrZero(created)
	return a, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
