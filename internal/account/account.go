// Package account manages goac's own identities: key generation and the
// per-address Autocrypt policy.
package account

import (
	"fmt"

	"github.com/ProtonMail/go-crypto/openpgp"

	"goac/internal/header"
	"goac/internal/logging"
	"goac/internal/pgp"
	"goac/internal/store"
)

// Create generates a key pair for addr and persists the account. An
// existing account for the same address is replaced.
func Create(s *store.Store, addr, name, preferEncrypt string) (store.Account, error) {
	switch preferEncrypt {
	case "":
		preferEncrypt = header.PreferNoPreference
	case header.PreferMutual, header.PreferNoPreference:
	default:
		return store.Account{}, fmt.Errorf("account: invalid prefer-encrypt %q", preferEncrypt)
	}

	timer := logging.StartTimer(logging.CategoryCrypto, "generate key")
	entity, err := pgp.GenerateKey(name, addr)
	timer.Stop()
	if err != nil {
		return store.Account{}, err
	}

	secret, err := pgp.ArmorPrivateKey(entity)
	if err != nil {
		return store.Account{}, err
	}
	public, err := pgp.PublicKeydata(entity)
	if err != nil {
		return store.Account{}, err
	}

	a := store.Account{
		Addr:          addr,
		Name:          name,
		SecretKey:     secret,
		PublicKey:     public,
		PreferEncrypt: preferEncrypt,
		Enabled:       true,
	}
	if err := s.UpsertAccount(a); err != nil {
		return store.Account{}, err
	}
	logging.Boot("created account %s", addr)
	return a, nil
}

// Keyring parses an account's secret key into a usable keyring.
func Keyring(a store.Account) (openpgp.EntityList, error) {
	ring, err := pgp.ReadArmoredKeyRing(a.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("account: keyring for %s: %w", a.Addr, err)
	}
	return ring, nil
}
