// Package header implements the Autocrypt header grammar: parsing and
// canonical rendering of Autocrypt and Autocrypt-Gossip header values,
// plus keydata folding for transport.
package header

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Header names used on the wire.
const (
	Name       = "Autocrypt"
	GossipName = "Autocrypt-Gossip"
	SetupName  = "Autocrypt-Setup-Message"

	// SetupVersion is the only value the setup-message header may carry.
	SetupVersion = "v1"
)

// prefer-encrypt values. Absence of the attribute means nopreference.
const (
	PreferMutual       = "mutual"
	PreferNoPreference = "nopreference"
)

// MaxLineLen is the fold width for keydata, matching RFC 5322 folding.
const MaxLineLen = 76

var (
	// ErrNoHeader is returned when a message carries no Autocrypt header.
	ErrNoHeader = errors.New("header: no Autocrypt header")

	// ErrTooManyHeaders is returned when more than one Autocrypt header is
	// present; the header is then invalid as a whole.
	ErrTooManyHeaders = errors.New("header: more than one Autocrypt header")

	// ErrMissingAddr and ErrMissingKeydata mark structurally invalid values.
	ErrMissingAddr    = errors.New("header: missing addr attribute")
	ErrMissingKeydata = errors.New("header: missing keydata attribute")
)

// CriticalAttrError reports an unknown attribute without a leading
// underscore. Such attributes make the header invalid per Autocrypt L1;
// underscore-prefixed attributes are non-critical and skipped.
type CriticalAttrError struct {
	Attr string
}

func (e *CriticalAttrError) Error() string {
	return fmt.Sprintf("header: unknown critical attribute %q", e.Attr)
}

// Attrs is a parsed Autocrypt header value.
type Attrs struct {
	Addr          string
	PreferEncrypt string
	Keydata       string // base64 keydata, whitespace as received
}

// attrSep splits attributes. The value may arrive folded, so the
// separator can be "; " or ";" followed by a folded newline.
var attrSep = regexp.MustCompile(`; |;\r\n |;\n |;\r `)

// ParseValue parses a single Autocrypt header value of the form
// "addr=...; prefer-encrypt=...; keydata=...". Attribute order is not
// significant on input. Keydata may itself contain '=' so values are
// split on the first '=' only.
func ParseValue(value string) (Attrs, error) {
	var a Attrs
	for _, kv := range attrSep.Split(value, -1) {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return Attrs{}, fmt.Errorf("header: malformed attribute %q", kv)
		}
		switch k {
		case "addr":
			a.Addr = strings.TrimSpace(v)
		case "prefer-encrypt":
			a.PreferEncrypt = strings.TrimSpace(v)
		case "keydata":
			a.Keydata = strings.TrimSpace(v)
		default:
			if strings.HasPrefix(k, "_") {
				continue // non-critical, ignore
			}
			return Attrs{}, &CriticalAttrError{Attr: k}
		}
	}
	if a.Addr == "" {
		return Attrs{}, ErrMissingAddr
	}
	if a.Keydata == "" {
		return Attrs{}, ErrMissingKeydata
	}
	return a, nil
}

// Render produces the canonical header value: addr first, prefer-encrypt
// only when it carries a real preference, keydata last. Deterministic so
// generated mail is reproducible.
func (a Attrs) Render() string {
	parts := []string{"addr=" + a.Addr}
	if a.PreferEncrypt != "" && a.PreferEncrypt != PreferNoPreference {
		parts = append(parts, "prefer-encrypt="+a.PreferEncrypt)
	}
	parts = append(parts, "keydata="+a.Keydata)
	return strings.Join(parts, "; ")
}

// New builds a header value from its parts. pe may be empty or
// nopreference, in which case the attribute is omitted.
func New(addr, keydata, pe string) string {
	return Attrs{Addr: addr, PreferEncrypt: pe, Keydata: keydata}.Render()
}

// Gossip builds an Autocrypt-Gossip header value. Gossip headers carry
// addr and keydata only, never prefer-encrypt.
func Gossip(addr, keydata string) string {
	return Attrs{Addr: addr, Keydata: keydata}.Render()
}

// Wrap folds text into chunks of maxlen, each prefixed with wrapstr.
// The input must be a single logical line.
func Wrap(text string, maxlen int, wrapstr string) string {
	if maxlen <= 0 {
		maxlen = MaxLineLen
	}
	var b strings.Builder
	for i := 0; i < len(text); i += maxlen {
		end := i + maxlen
		if end > len(text) {
			end = len(text)
		}
		b.WriteString(wrapstr)
		b.WriteString(text[i:end])
	}
	return b.String()
}

// Unwrap reverses Wrap by removing every occurrence of wrapstr.
func Unwrap(text, wrapstr string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, wrapstr, ""))
}

// WrapValue re-renders a header value with its keydata folded for
// transport.
func WrapValue(value string) (string, error) {
	a, err := ParseValue(value)
	if err != nil {
		return "", err
	}
	a.Keydata = Wrap(a.Keydata, MaxLineLen, " ")
	return a.Render(), nil
}

// UnwrapValue re-renders a header value with folded keydata joined back
// into one line.
func UnwrapValue(value string) (string, error) {
	a, err := ParseValue(value)
	if err != nil {
		return "", err
	}
	a.Keydata = Unwrap(a.Keydata, "\n ")
	a.Keydata = Unwrap(a.Keydata, " ")
	return a.Render(), nil
}

// ParseAll parses every value in order. Values that fail to parse
// abort the whole batch; a message with a broken Autocrypt header must
// be treated as having none that are trustworthy.
func ParseAll(values []string) ([]Attrs, error) {
	out := make([]Attrs, 0, len(values))
	for _, v := range values {
		a, err := ParseValue(v)
		if err != nil {
			return nil, err
		}
		a.Keydata = Unwrap(a.Keydata, "\n ")
		a.Keydata = Unwrap(a.Keydata, " ")
		out = append(out, a)
	}
	return out, nil
}

// Single enforces the one-header rule: exactly one Autocrypt header is
// valid, zero means no Autocrypt, more than one invalidates all of them.
func Single(values []string) (Attrs, error) {
	switch len(values) {
	case 0:
		return Attrs{}, ErrNoHeader
	case 1:
		all, err := ParseAll(values)
		if err != nil {
			return Attrs{}, err
		}
		return all[0], nil
	default:
		return Attrs{}, ErrTooManyHeaders
	}
}
