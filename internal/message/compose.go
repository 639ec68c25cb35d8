// Package message is the high-level pipeline tying headers, crypto, MIME
// and the peer store together: composing Autocrypt mail and parsing
// whatever arrives.
package message

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"

	"goac/internal/account"
	"goac/internal/header"
	"goac/internal/logging"
	"goac/internal/mail"
	"goac/internal/peer"
	"goac/internal/pgp"
	"goac/internal/store"
)

// NoKeyError reports a recipient goac has no key for.
type NoKeyError struct {
	Addr string
}

func (e *NoKeyError) Error() string {
	return fmt.Sprintf("message: no encryption key for %s", e.Addr)
}

// ErrAccountDisabled is returned when composing from a disabled account.
var ErrAccountDisabled = errors.New("message: account has Autocrypt disabled")

// ComposeOpts carries the optional knobs of Compose.
type ComposeOpts struct {
	Date      time.Time
	MessageID string
	Boundary  string

	// Gossip attaches Autocrypt-Gossip headers for all recipients inside
	// the encrypted part. Only meaningful with more than one recipient.
	Gossip bool
}

// Compose builds a signed, encrypted Autocrypt email from one of our
// accounts to the given recipients. Every recipient must have a usable
// key in the peer store.
func Compose(s *store.Store, from string, to []string, subject, body string, opts ComposeOpts) (*mail.Message, error) {
	timer := logging.StartTimer(logging.CategoryMessage, "compose")
	defer timer.Stop()

	acct, err := s.GetAccount(from)
	if err != nil {
		return nil, err
	}
	if !acct.Enabled {
		return nil, ErrAccountDisabled
	}
	signerRing, err := account.Keyring(acct)
	if err != nil {
		return nil, err
	}

	var recipients openpgp.EntityList
	peers := make(map[string]store.Peer, len(to))
	for _, addr := range to {
		p, err := s.GetOrNewPeer(addr)
		if err != nil {
			return nil, err
		}
		kd := peer.EncryptionKeydata(p)
		if kd == "" {
			return nil, &NoKeyError{Addr: addr}
		}
		ring, err := pgp.ParseKeydata(kd)
		if err != nil {
			return nil, fmt.Errorf("message: key for %s: %w", addr, err)
		}
		recipients = append(recipients, ring...)
		peers[addr] = p
	}
	// Encrypt to ourselves too, so we can read our own sent mail.
	ownRing, err := pgp.ParseKeydata(acct.PublicKey)
	if err != nil {
		return nil, err
	}
	recipients = append(recipients, ownRing...)

	inner := mail.NewText(body)
	if opts.Gossip && len(to) > 1 {
		attachGossip(inner, peers)
	}

	ciphertext, err := pgp.SignEncrypt([]byte(inner.String()), signerRing[0], recipients)
	if err != nil {
		return nil, err
	}

	m := mail.NewEncrypted(ciphertext, opts.Boundary)
	mail.Stamp(m, from, to, subject, opts.Date, opts.MessageID)

	folded := header.Wrap(acct.PublicKey, header.MaxLineLen, "\n ")
	m.Add(header.Name, header.New(from, folded, acct.PreferEncrypt))

	logging.Message("composed mail from %s to %s (gossip=%v)",
		from, strings.Join(to, ", "), opts.Gossip)
	return m, nil
}

// attachGossip adds one Autocrypt-Gossip header per keyed recipient to
// the plaintext part.
func attachGossip(inner *mail.Message, peers map[string]store.Peer) {
	for addr, p := range peers {
		kd := peer.EncryptionKeydata(p)
		if kd == "" {
			continue
		}
		folded := header.Wrap(kd, header.MaxLineLen, "\n ")
		inner.Add(header.GossipName, header.Gossip(addr, folded))
		logging.MessageDebug("gossip header attached for %s", addr)
	}
}

// ComposeSetup builds an Autocrypt Setup Message for the account,
// addressed to itself. The returned code must be shown to the user and is
// required to import the message elsewhere.
func ComposeSetup(s *store.Store, addr string, opts ComposeOpts) (*mail.Message, string, error) {
	acct, err := s.GetAccount(addr)
	if err != nil {
		return nil, "", err
	}
	code, payload, err := setupPayload(acct)
	if err != nil {
		return nil, "", err
	}
	m := mail.NewSetup(setupIntro, payload, opts.Boundary)
	mail.Stamp(m, addr, []string{addr}, "Autocrypt Setup Message", opts.Date, opts.MessageID)
	logging.Message("composed setup message for %s", addr)
	return m, code, nil
}
