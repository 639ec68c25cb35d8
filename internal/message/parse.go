package message

import (
	"errors"
	"fmt"
	netmail "net/mail"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"golang.org/x/sync/errgroup"

	"goac/internal/account"
	"goac/internal/header"
	"goac/internal/logging"
	"goac/internal/mail"
	"goac/internal/peer"
	"goac/internal/pgp"
	"goac/internal/store"
)

// Kind classifies what ParseAny found.
type Kind int

const (
	KindPlain Kind = iota // no Autocrypt headers at all
	KindAutocrypt
	KindGossip // Autocrypt-Gossip keys were imported from the encrypted part
	KindSetup
)

// ErrNoAccount is returned when no recipient of a message matches one of
// our accounts.
var ErrNoAccount = errors.New("message: no account matches any recipient")

// ErrSetupCodeRequired is returned when a setup message arrives and no
// code was supplied.
var ErrSetupCodeRequired = errors.New("message: setup message requires a setup code")

// Result is the outcome of parsing an inbound message.
type Result struct {
	Kind           Kind
	From           string
	Plaintext      []byte
	GossipImported int

	// Account is set when a setup message installed an identity.
	Account store.Account
}

// effectiveDate returns the message's Date header, or now when absent or
// unparseable. Peer-state updates key off this.
func effectiveDate(in *mail.Incoming) time.Time {
	if raw := in.Header("Date"); raw != "" {
		if d, err := netmail.ParseDate(raw); err == nil {
			return d
		}
	}
	return time.Now()
}

// ownKeyring finds the first of our accounts among the recipients and
// returns its decryption keyring.
func ownKeyring(s *store.Store, in *mail.Incoming) (store.Account, openpgp.EntityList, error) {
	for _, addr := range in.To() {
		acct, err := s.GetAccount(addr)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return store.Account{}, nil, err
		}
		ring, err := account.Keyring(acct)
		if err != nil {
			return store.Account{}, nil, err
		}
		logging.MessageDebug("decrypting as %s", addr)
		return acct, ring, nil
	}
	return store.Account{}, nil, ErrNoAccount
}

// Decrypt decrypts a raw PGP/MIME message with whichever of our accounts
// it was addressed to.
func Decrypt(s *store.Store, raw []byte) ([]byte, error) {
	in, err := mail.Parse(raw)
	if err != nil {
		return nil, err
	}
	return decryptIncoming(s, in)
}

func decryptIncoming(s *store.Store, in *mail.Incoming) ([]byte, error) {
	if !in.IsEncrypted() {
		return nil, mail.ErrNotEncrypted
	}
	_, ring, err := ownKeyring(s, in)
	if err != nil {
		return nil, err
	}
	ciphertext, err := in.EncryptedPayload()
	if err != nil {
		return nil, err
	}
	return pgp.Decrypt(ciphertext, ring)
}

// Parse handles a message carrying an Autocrypt header: the sender's key
// is folded into the peer store, the body decrypted, and any gossip
// headers inside the encrypted part imported as well.
func Parse(s *store.Store, raw []byte) (*Result, error) {
	timer := logging.StartTimer(logging.CategoryMessage, "parse")
	defer timer.Stop()

	in, err := mail.Parse(raw)
	if err != nil {
		return nil, err
	}
	attrs, err := header.Single(in.Headers(header.Name))
	if err != nil {
		return nil, err
	}
	effective := effectiveDate(in)

	p, err := s.GetOrNewPeer(attrs.Addr)
	if err != nil {
		return nil, err
	}
	peer.ApplyHeader(&p, attrs, effective)
	if err := s.UpsertPeer(p); err != nil {
		return nil, err
	}

	res := &Result{Kind: KindAutocrypt, From: attrs.Addr}
	plaintext, err := decryptIncoming(s, in)
	if err != nil {
		return nil, err
	}
	res.Plaintext = plaintext

	n, err := importGossip(s, plaintext, effective)
	if err != nil {
		return nil, err
	}
	res.GossipImported = n
	if n > 0 {
		res.Kind = KindGossip
	}
	logging.Message("parsed mail from %s (gossip keys: %d)", attrs.Addr, n)
	return res, nil
}

// importGossip scans a decrypted part for Autocrypt-Gossip headers and
// imports each key. Key parsing is fanned out; store writes serialize
// behind the store's own lock.
func importGossip(s *store.Store, plaintext []byte, effective time.Time) (int, error) {
	inner, err := mail.Parse(plaintext)
	if err != nil {
		// Decrypted part may be a bare body without headers.
		return 0, nil
	}
	values := inner.Headers(header.GossipName)
	if len(values) == 0 {
		return 0, nil
	}
	attrs, err := header.ParseAll(values)
	if err != nil {
		return 0, fmt.Errorf("message: gossip headers: %w", err)
	}

	var g errgroup.Group
	for _, a := range attrs {
		a := a
		g.Go(func() error {
			if _, err := pgp.ParseKeydata(a.Keydata); err != nil {
				return fmt.Errorf("message: gossip key for %s: %w", a.Addr, err)
			}
			p, err := s.GetOrNewPeer(a.Addr)
			if err != nil {
				return err
			}
			peer.ApplyGossip(&p, a, effective)
			return s.UpsertPeer(p)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(attrs), nil
}

// ParseAny dispatches an inbound message: setup message, Autocrypt mail,
// or plain mail (which still updates peer bookkeeping).
func ParseAny(s *store.Store, raw []byte, setupCode string) (*Result, error) {
	in, err := mail.Parse(raw)
	if err != nil {
		return nil, err
	}

	if in.Header(header.SetupName) == header.SetupVersion {
		logging.Message("inbound mail is a setup message")
		if setupCode == "" {
			return nil, ErrSetupCodeRequired
		}
		return parseSetup(s, in, setupCode)
	}

	if len(in.Headers(header.Name)) > 0 {
		return Parse(s, raw)
	}

	// No direct Autocrypt header. The encrypted part may still carry
	// gossip keys.
	res := &Result{Kind: KindPlain, From: in.From()}
	if in.IsEncrypted() {
		if plaintext, err := decryptIncoming(s, in); err == nil {
			res.Plaintext = plaintext
			n, err := importGossip(s, plaintext, effectiveDate(in))
			if err != nil {
				return nil, err
			}
			res.GossipImported = n
			if n > 0 {
				res.Kind = KindGossip
				logging.Message("gossip-only mail from %s (keys: %d)", res.From, n)
			}
		}
	}
	if res.Kind == KindPlain && res.From != "" {
		// Record the sighting so the recommendation can degrade for peers
		// that stopped sending keys.
		p, err := s.GetOrNewPeer(res.From)
		if err != nil {
			return nil, err
		}
		peer.ApplyNoHeader(&p, effectiveDate(in))
		if err := s.UpsertPeer(p); err != nil {
			return nil, err
		}
	}
	return res, nil
}
