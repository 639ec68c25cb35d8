package header

import (
	"errors"
	"strings"
	"testing"
)

func TestParseValueRoundTrip(t *testing.T) {
	a := Attrs{Addr: "alice@example.org", PreferEncrypt: PreferMutual, Keydata: "mQENBF0="}
	parsed, err := ParseValue(a.Render())
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if parsed != a {
		t.Errorf("round trip mismatch: got %+v, want %+v", parsed, a)
	}
}

func TestParseValueOrderInsensitive(t *testing.T) {
	v := "keydata=AAA=; addr=bob@example.org"
	a, err := ParseValue(v)
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if a.Addr != "bob@example.org" {
		t.Errorf("expected addr=bob@example.org, got %s", a.Addr)
	}
	if a.Keydata != "AAA=" {
		t.Errorf("expected keydata=AAA=, got %s", a.Keydata)
	}
	if a.PreferEncrypt != "" {
		t.Errorf("expected empty prefer-encrypt, got %s", a.PreferEncrypt)
	}
}

func TestParseValueKeydataWithEquals(t *testing.T) {
	a, err := ParseValue("addr=a@b.c; keydata=xx==yy==")
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if a.Keydata != "xx==yy==" {
		t.Errorf("keydata mangled: %s", a.Keydata)
	}
}

func TestParseValueMissingAttrs(t *testing.T) {
	if _, err := ParseValue("keydata=AAA="); !errors.Is(err, ErrMissingAddr) {
		t.Errorf("expected ErrMissingAddr, got %v", err)
	}
	if _, err := ParseValue("addr=a@b.c"); !errors.Is(err, ErrMissingKeydata) {
		t.Errorf("expected ErrMissingKeydata, got %v", err)
	}
}

func TestParseValueCriticalAttr(t *testing.T) {
	_, err := ParseValue("addr=a@b.c; spice=much; keydata=AAA=")
	var ce *CriticalAttrError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CriticalAttrError, got %v", err)
	}
	if ce.Attr != "spice" {
		t.Errorf("expected attr spice, got %s", ce.Attr)
	}
}

func TestParseValueNonCriticalAttrIgnored(t *testing.T) {
	a, err := ParseValue("addr=a@b.c; _vendor=x; keydata=AAA=")
	if err != nil {
		t.Fatalf("ParseValue failed: %v", err)
	}
	if a.Addr != "a@b.c" || a.Keydata != "AAA=" {
		t.Errorf("unexpected attrs: %+v", a)
	}
}

func TestRenderOmitsNoPreference(t *testing.T) {
	v := Attrs{Addr: "a@b.c", PreferEncrypt: PreferNoPreference, Keydata: "AAA="}.Render()
	if strings.Contains(v, "prefer-encrypt") {
		t.Errorf("nopreference must not be rendered: %s", v)
	}
	v = New("a@b.c", "AAA=", PreferMutual)
	if !strings.Contains(v, "prefer-encrypt=mutual") {
		t.Errorf("mutual missing: %s", v)
	}
}

func TestWrapUnwrap(t *testing.T) {
	keydata := strings.Repeat("Qk9x", 100) // 400 chars
	wrapped := Wrap(keydata, 76, "\n ")
	for i, line := range strings.Split(wrapped, "\n") {
		if i == 0 {
			continue // leading separator yields an empty first element
		}
		if len(line) > 77 { // 76 + leading space
			t.Errorf("line %d too long: %d chars", i, len(line))
		}
	}
	if got := Unwrap(wrapped, "\n "); got != keydata {
		t.Errorf("unwrap did not restore keydata")
	}
}

func TestWrapValueRoundTrip(t *testing.T) {
	keydata := strings.Repeat("mQENBF", 50)
	orig := New("alice@example.org", keydata, "")
	wrapped, err := WrapValue(orig)
	if err != nil {
		t.Fatalf("WrapValue failed: %v", err)
	}
	unwrapped, err := UnwrapValue(wrapped)
	if err != nil {
		t.Fatalf("UnwrapValue failed: %v", err)
	}
	if unwrapped != orig {
		t.Errorf("wrap/unwrap not idempotent:\n got %s\nwant %s", unwrapped, orig)
	}
}

func TestParseFoldedValue(t *testing.T) {
	// As received after transport folding: keydata split across lines.
	v := "addr=alice@example.org;\n keydata=mQENBF0t\n 2BEBCACw"
	all, err := ParseAll([]string{v})
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if all[0].Keydata != "mQENBF0t2BEBCACw" {
		t.Errorf("folded keydata not joined: %q", all[0].Keydata)
	}
}

func TestSingle(t *testing.T) {
	if _, err := Single(nil); !errors.Is(err, ErrNoHeader) {
		t.Errorf("expected ErrNoHeader, got %v", err)
	}
	two := []string{New("a@b.c", "AAA=", ""), New("d@e.f", "BBB=", "")}
	if _, err := Single(two); !errors.Is(err, ErrTooManyHeaders) {
		t.Errorf("expected ErrTooManyHeaders, got %v", err)
	}
	one, err := Single([]string{New("a@b.c", "AAA=", PreferMutual)})
	if err != nil {
		t.Fatalf("Single failed: %v", err)
	}
	if one.Addr != "a@b.c" || one.PreferEncrypt != PreferMutual {
		t.Errorf("unexpected attrs: %+v", one)
	}
}

func TestGossipNoPreferEncrypt(t *testing.T) {
	v := Gossip("bob@example.org", "AAA=")
	if strings.Contains(v, "prefer-encrypt") {
		t.Errorf("gossip header must not carry prefer-encrypt: %s", v)
	}
}
