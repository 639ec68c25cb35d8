package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"goac/internal/logging"
)

// Peer is the remembered Autocrypt state for one remote address.
//
// Keydata/AutocryptTimestamp come from direct Autocrypt headers;
// GossipKeydata/GossipTimestamp from Autocrypt-Gossip. LastSeen tracks the
// newest mail seen from the peer regardless of headers. State is the
// bookkeeping value the recommendation rules read.
type Peer struct {
	Addr               string
	Keydata            string
	PreferEncrypt      string
	LastSeen           time.Time
	AutocryptTimestamp time.Time
	GossipKeydata      string
	GossipTimestamp    time.Time
	State              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// UpsertPeer writes the full peer row.
func (s *Store) UpsertPeer(p Peer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	_, err := s.db.Exec(`INSERT INTO peers
		(addr, keydata, prefer_encrypt, last_seen, autocrypt_timestamp,
		 gossip_keydata, gossip_timestamp, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(addr) DO UPDATE SET
			keydata = excluded.keydata,
			prefer_encrypt = excluded.prefer_encrypt,
			last_seen = excluded.last_seen,
			autocrypt_timestamp = excluded.autocrypt_timestamp,
			gossip_keydata = excluded.gossip_keydata,
			gossip_timestamp = excluded.gossip_timestamp,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		p.Addr, p.Keydata, p.PreferEncrypt,
		secOrZero(p.LastSeen), secOrZero(p.AutocryptTimestamp),
		p.GossipKeydata, secOrZero(p.GossipTimestamp),
		p.State, p.CreatedAt.Unix(), p.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("store: upsert peer %s: %w", p.Addr, err)
	}
	logging.PeersDebug("upserted peer %s (state=%s)", p.Addr, p.State)
	return nil
}

// GetPeer looks up a peer by address.
func (s *Store) GetPeer(addr string) (Peer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT addr, keydata, prefer_encrypt, last_seen,
		autocrypt_timestamp, gossip_keydata, gossip_timestamp, state,
		created_at, updated_at FROM peers WHERE addr = ?`, addr)
	return scanPeer(row)
}

// ListPeers returns all peers ordered by address.
func (s *Store) ListPeers() ([]Peer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT addr, keydata, prefer_encrypt, last_seen,
		autocrypt_timestamp, gossip_keydata, gossip_timestamp, state,
		created_at, updated_at FROM peers ORDER BY addr`)
	if err != nil {
		return nil, fmt.Errorf("store: list peers: %w", err)
	}
	defer rows.Close()

	var out []Peer
	for rows.Next() {
		p, err := scanPeer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePeer forgets a peer entirely.
func (s *Store) DeletePeer(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM peers WHERE addr = ?`, addr)
	if err != nil {
		return fmt.Errorf("store: delete peer %s: %w", addr, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetOrNewPeer returns the stored peer or a zero-valued one for addr.
func (s *Store) GetOrNewPeer(addr string) (Peer, error) {
	p, err := s.GetPeer(addr)
	if errors.Is(err, ErrNotFound) {
		return Peer{Addr: addr, State: "nothing", PreferEncrypt: "nopreference"}, nil
	}
	return p, err
}

func scanPeer(row rowScanner) (Peer, error) {
	var p Peer
	var lastSeen, acTS, gossipTS, created, updated int64
	err := row.Scan(&p.Addr, &p.Keydata, &p.PreferEncrypt, &lastSeen,
		&acTS, &p.GossipKeydata, &gossipTS, &p.State, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Peer{}, ErrNotFound
	}
	if err != nil {
		return Peer{}, fmt.Errorf("store: scan peer: %w", err)
	}
	p.LastSeen = tsOrZero(lastSeen)
	p.AutocryptTimestamp = tsOrZero(acTS)
	p.GossipTimestamp = tsOrZero(gossipTS)
	p.CreatedAt = tsOrZero(created)
	p.UpdatedAt = tsOrZero(updated)
	return p, nil
}
