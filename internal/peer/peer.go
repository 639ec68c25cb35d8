// Package peer implements the Autocrypt peer-state update rules and the
// ui-recommendation derived from them.
package peer

import (
	"time"

	"goac/internal/header"
	"goac/internal/logging"
	"goac/internal/store"
)

// Peer states tracked in the store.
const (
	StateNothing   = "nothing"   // never saw a key
	StateAvailable = "available" // direct key on file
	StateGossip    = "gossip"    // key known only via gossip
	StateReset     = "reset"     // peer mailed without an Autocrypt header
)

// discourageAfter is how stale a direct key may be before encryption is
// discouraged: the peer's client may have lost Autocrypt support.
const discourageAfter = 35 * 24 * time.Hour

// ApplyHeader folds a direct Autocrypt header into peer state. The
// effective date is the message's Date header; headers older than what is
// already stored never regress state.
func ApplyHeader(p *store.Peer, a header.Attrs, effective time.Time) {
	if !p.AutocryptTimestamp.IsZero() && effective.Before(p.AutocryptTimestamp) {
		logging.PeersDebug("stale header for %s ignored (%s < %s)",
			p.Addr, effective, p.AutocryptTimestamp)
		return
	}
	p.Keydata = a.Keydata
	p.PreferEncrypt = a.PreferEncrypt
	if p.PreferEncrypt == "" {
		p.PreferEncrypt = header.PreferNoPreference
	}
	p.AutocryptTimestamp = effective
	if effective.After(p.LastSeen) {
		p.LastSeen = effective
	}
	p.State = StateAvailable
	logging.Peers("updated peer %s from Autocrypt header", p.Addr)
}

// ApplyGossip folds a gossip key into peer state. Gossip never overrides
// a direct key and never rewinds a newer gossip key.
func ApplyGossip(p *store.Peer, a header.Attrs, effective time.Time) {
	if !p.GossipTimestamp.IsZero() && effective.Before(p.GossipTimestamp) {
		return
	}
	p.GossipKeydata = a.Keydata
	p.GossipTimestamp = effective
	if p.Keydata == "" && p.State != StateReset {
		p.State = StateGossip
	}
	logging.Peers("updated peer %s from gossip", p.Addr)
}

// ApplyNoHeader records a mail from the peer that carried no Autocrypt
// header. A newer header-less mail moves a keyed peer into reset state.
func ApplyNoHeader(p *store.Peer, effective time.Time) {
	if effective.After(p.LastSeen) {
		p.LastSeen = effective
	}
	if p.Keydata != "" && effective.After(p.AutocryptTimestamp) {
		p.State = StateReset
	}
}

// Recommendation is the ui-recommendation for composing to one peer.
type Recommendation int

const (
	Disable Recommendation = iota
	Discourage
	Available
	Encrypt
)

func (r Recommendation) String() string {
	switch r {
	case Disable:
		return "disable"
	case Discourage:
		return "discourage"
	case Available:
		return "available"
	case Encrypt:
		return "encrypt"
	default:
		return "unknown"
	}
}

// EncryptionKeydata returns the keydata a composer should encrypt to:
// the direct key, falling back to gossip.
func EncryptionKeydata(p store.Peer) string {
	if p.Keydata != "" {
		return p.Keydata
	}
	return p.GossipKeydata
}

// Recommend derives the ui-recommendation for a peer. ownPrefer is the
// sending account's prefer-encrypt policy; replyToEncrypted is true when
// the draft replies to an encrypted message.
func Recommend(p store.Peer, ownPrefer string, replyToEncrypted bool) Recommendation {
	if EncryptionKeydata(p) == "" {
		return Disable
	}
	if replyToEncrypted {
		return Encrypt
	}

	discourage := false
	switch {
	case p.Keydata == "":
		// gossip-only key
		discourage = true
	case p.State == StateReset:
		discourage = true
	case !p.LastSeen.IsZero() && p.LastSeen.Sub(p.AutocryptTimestamp) > discourageAfter:
		discourage = true
	}
	if discourage {
		return Discourage
	}

	if ownPrefer == header.PreferMutual && p.PreferEncrypt == header.PreferMutual {
		return Encrypt
	}
	return Available
}
