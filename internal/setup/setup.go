// Package setup implements the Autocrypt Setup Message payload: the
// numeric9x4 setup code and the armored, symmetrically encrypted secret
// key with its Passphrase-Format/Passphrase-Begin armor headers.
package setup

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"goac/internal/header"
	"goac/internal/logging"
	"goac/internal/pgp"
	"goac/internal/store"
)

const (
	codeDigits = 36
	wordLen    = 4
	numWords   = 9

	formatLine   = "Passphrase-Format: numeric9x4"
	beginPrefix  = "Passphrase-Begin: "
	beginDigits  = 2
	preferPrefix = "Autocrypt-Prefer-Encrypt: "

	armorBegin = "-----BEGIN PGP MESSAGE-----"
	armorEnd   = "-----END PGP MESSAGE-----"

	// Intro is the human-readable part of the setup message.
	Intro = "This message contains your Autocrypt secret key. To set up " +
		"Autocrypt on another device, open this message there and enter the " +
		"setup code you were shown when the message was created.\n"
)

var (
	// ErrBadFormat is returned when the payload lacks the expected
	// passphrase framing.
	ErrBadFormat = errors.New("setup: missing or unknown passphrase format")

	// ErrCodeMismatch is returned when the supplied code does not match
	// the Passphrase-Begin digits; decryption is not attempted.
	ErrCodeMismatch = errors.New("setup: setup code does not match")
)

// GenCode generates a numeric9x4 setup code: 36 random digits in 9
// dash-separated blocks of 4.
func GenCode() (string, error) {
	words := make([]string, numWords)
	var b strings.Builder
	for i := 0; i < numWords; i++ {
		b.Reset()
		for j := 0; j < wordLen; j++ {
			n, err := rand.Int(rand.Reader, big.NewInt(10))
			if err != nil {
				return "", fmt.Errorf("setup: generate code: %w", err)
			}
			fmt.Fprintf(&b, "%d", n.Int64())
		}
		words[i] = b.String()
	}
	return strings.Join(words, "-"), nil
}

// ExportKey renders an account's secret key for the setup payload,
// carrying the prefer-encrypt policy as an armor header line.
func ExportKey(a store.Account) string {
	lines := strings.Split(strings.TrimRight(a.SecretKey, "\n"), "\n")
	if len(lines) < 2 {
		return a.SecretKey
	}
	pe := a.PreferEncrypt
	if pe == "" {
		pe = header.PreferNoPreference
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[0], preferPrefix+pe)
	out = append(out, lines[1:]...)
	return strings.Join(out, "\n") + "\n"
}

// Payload symmetrically encrypts the exported key with the setup code and
// injects the passphrase framing as armor headers.
func Payload(exportedKey, code string) (string, error) {
	timer := logging.StartTimer(logging.CategorySetup, "build payload")
	defer timer.Stop()

	ct, err := pgp.SymEncrypt([]byte(exportedKey), code)
	if err != nil {
		return "", err
	}
	lines := strings.Split(strings.TrimRight(ct, "\n"), "\n")
	if len(lines) < 2 || lines[0] != armorBegin {
		return "", fmt.Errorf("setup: unexpected armor output")
	}
	out := make([]string, 0, len(lines)+2)
	out = append(out, lines[0], formatLine, beginPrefix+code[:beginDigits])
	out = append(out, lines[1:]...)
	logging.Setup("built setup payload")
	return strings.Join(out, "\n") + "\n", nil
}

// ParsePayload verifies the passphrase framing against code and returns
// the secret key decrypted from the payload. The attachment may carry
// text around the armor block.
func ParsePayload(payload, code string) (string, error) {
	start := strings.Index(payload, armorBegin)
	end := strings.Index(payload, armorEnd)
	if start < 0 || end < 0 {
		return "", ErrBadFormat
	}
	block := payload[start : end+len(armorEnd)]

	lines := strings.Split(block, "\n")
	kept := make([]string, 0, len(lines))
	var haveFormat bool
	var begin string
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		switch {
		case i > 0 && trimmed == formatLine:
			haveFormat = true
		case i > 0 && strings.HasPrefix(trimmed, beginPrefix):
			begin = strings.TrimPrefix(trimmed, beginPrefix)
		default:
			kept = append(kept, trimmed)
		}
	}
	if !haveFormat {
		return "", ErrBadFormat
	}
	if begin == "" || !strings.HasPrefix(code, begin) {
		return "", ErrCodeMismatch
	}

	pt, err := pgp.SymDecrypt(strings.Join(kept, "\n")+"\n", code)
	if err != nil {
		return "", err
	}
	logging.Setup("decrypted setup payload")
	return string(pt), nil
}

// ImportKey installs a secret key recovered from a setup payload as an
// account, honoring an Autocrypt-Prefer-Encrypt armor header when
// present.
func ImportKey(s *store.Store, armoredKey string) (store.Account, error) {
	pe := header.PreferNoPreference
	var kept []string
	for _, line := range strings.Split(armoredKey, "\n") {
		if strings.HasPrefix(line, preferPrefix) {
			pe = strings.TrimSpace(strings.TrimPrefix(line, preferPrefix))
			continue
		}
		kept = append(kept, line)
	}
	clean := strings.Join(kept, "\n")

	ring, err := pgp.ReadArmoredKeyRing(clean)
	if err != nil {
		return store.Account{}, err
	}
	if len(ring) == 0 || len(ring[0].Identities) == 0 {
		return store.Account{}, errors.New("setup: no identity in imported key")
	}
	entity := ring[0]

	var addr, name string
	for _, id := range entity.Identities {
		if id.UserId != nil {
			addr = id.UserId.Email
			name = id.UserId.Name
			break
		}
	}
	if addr == "" {
		return store.Account{}, errors.New("setup: imported key has no email identity")
	}

	public, err := pgp.PublicKeydata(entity)
	if err != nil {
		return store.Account{}, err
	}
	a := store.Account{
		Addr:          addr,
		Name:          name,
		SecretKey:     clean,
		PublicKey:     public,
		PreferEncrypt: pe,
		Enabled:       true,
	}
	if err := s.UpsertAccount(a); err != nil {
		return store.Account{}, err
	}
	logging.Setup("imported account %s from setup message", addr)
	return a, nil
}
