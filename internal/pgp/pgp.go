// Package pgp wraps the OpenPGP operations goac needs: key generation,
// sign+encrypt to a recipient set, decryption, and the symmetric
// encryption used by setup messages. All armored output uses the plain
// "PGP MESSAGE" block type.
package pgp

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	openpgperrors "github.com/ProtonMail/go-crypto/openpgp/errors"
)

const messageType = "PGP MESSAGE"

// openpgp exports its armor block types as vars, not consts.
var privateKeyType = openpgp.PrivateKeyType

var (
	// ErrNoMatchingKey is returned when a ciphertext cannot be decrypted
	// with any key in the supplied ring.
	ErrNoMatchingKey = errors.New("pgp: no matching decryption key")

	// ErrBadPassphrase is returned when symmetric decryption fails.
	ErrBadPassphrase = errors.New("pgp: wrong passphrase")
)

// GenerateKey creates a fresh OpenPGP identity for addr.
func GenerateKey(name, addr string) (*openpgp.Entity, error) {
	e, err := openpgp.NewEntity(name, "", addr, nil)
	if err != nil {
		return nil, fmt.Errorf("pgp: generate key for %s: %w", addr, err)
	}
	return e, nil
}

// PublicKeydata serializes the public part of an entity as base64, the
// form Autocrypt headers carry.
func PublicKeydata(e *openpgp.Entity) (string, error) {
	var buf bytes.Buffer
	if err := e.Serialize(&buf); err != nil {
		return "", fmt.Errorf("pgp: serialize public key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// ParseKeydata decodes base64 keydata into a keyring. Whitespace from
// header folding is tolerated.
func ParseKeydata(keydata string) (openpgp.EntityList, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r':
			return -1
		}
		return r
	}, keydata)
	raw, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("pgp: decode keydata: %w", err)
	}
	ring, err := openpgp.ReadKeyRing(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("pgp: parse keydata: %w", err)
	}
	return ring, nil
}

// ArmorPrivateKey serializes the secret key armored, for storage and for
// the setup-message payload.
func ArmorPrivateKey(e *openpgp.Entity) (string, error) {
	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, privateKeyType, nil)
	if err != nil {
		return "", fmt.Errorf("pgp: armor private key: %w", err)
	}
	if err := e.SerializePrivate(aw, nil); err != nil {
		return "", fmt.Errorf("pgp: serialize private key: %w", err)
	}
	if err := aw.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ReadArmoredKeyRing parses one or more armored keys.
func ReadArmoredKeyRing(armored string) (openpgp.EntityList, error) {
	ring, err := openpgp.ReadArmoredKeyRing(strings.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("pgp: read armored keyring: %w", err)
	}
	return ring, nil
}

// SignEncrypt signs plaintext with signer and encrypts it to recipients,
// returning armored ciphertext.
func SignEncrypt(plaintext []byte, signer *openpgp.Entity, recipients openpgp.EntityList) (string, error) {
	if len(recipients) == 0 {
		return "", errors.New("pgp: no recipients")
	}
	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, messageType, nil)
	if err != nil {
		return "", err
	}
	pt, err := openpgp.Encrypt(aw, recipients, signer, nil, nil)
	if err != nil {
		return "", fmt.Errorf("pgp: encrypt: %w", err)
	}
	if _, err := pt.Write(plaintext); err != nil {
		return "", err
	}
	if err := pt.Close(); err != nil {
		return "", err
	}
	if err := aw.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Decrypt decrypts armored ciphertext with any key in the ring.
func Decrypt(armored string, ring openpgp.EntityList) ([]byte, error) {
	block, err := armor.Decode(strings.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("pgp: decode armor: %w", err)
	}
	md, err := openpgp.ReadMessage(block.Body, ring, nil, nil)
	if err != nil {
		if errors.Is(err, openpgperrors.ErrKeyIncorrect) {
			return nil, ErrNoMatchingKey
		}
		return nil, fmt.Errorf("pgp: read message: %w", err)
	}
	data, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		return nil, fmt.Errorf("pgp: read body: %w", err)
	}
	return data, nil
}

// SymEncrypt encrypts plaintext with a passphrase, armored. Used for the
// setup-message payload where the passphrase is the setup code.
func SymEncrypt(plaintext []byte, passphrase string) (string, error) {
	var buf bytes.Buffer
	aw, err := armor.Encode(&buf, messageType, nil)
	if err != nil {
		return "", err
	}
	pt, err := openpgp.SymmetricallyEncrypt(aw, []byte(passphrase), nil, nil)
	if err != nil {
		return "", fmt.Errorf("pgp: symmetric encrypt: %w", err)
	}
	if _, err := pt.Write(plaintext); err != nil {
		return "", err
	}
	if err := pt.Close(); err != nil {
		return "", err
	}
	if err := aw.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SymDecrypt decrypts an armored symmetric message. The prompt callback
// is invoked once; a second invocation means the passphrase failed.
func SymDecrypt(armored, passphrase string) ([]byte, error) {
	block, err := armor.Decode(strings.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("pgp: decode armor: %w", err)
	}
	tried := false
	prompt := func(keys []openpgp.Key, symmetric bool) ([]byte, error) {
		if tried {
			return nil, ErrBadPassphrase
		}
		tried = true
		return []byte(passphrase), nil
	}
	md, err := openpgp.ReadMessage(block.Body, nil, prompt, nil)
	if err != nil {
		if errors.Is(err, ErrBadPassphrase) {
			return nil, ErrBadPassphrase
		}
		return nil, fmt.Errorf("pgp: read symmetric message: %w", err)
	}
	data, err := io.ReadAll(md.UnverifiedBody)
	if err != nil {
		// The integrity check surfaces here when the passphrase is wrong.
		return nil, ErrBadPassphrase
	}
	return data, nil
}
