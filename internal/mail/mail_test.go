package mail

import (
	"strings"
	"testing"
	"time"
)

const fakeCiphertext = "-----BEGIN PGP MESSAGE-----\n\nhQEMA1234\n-----END PGP MESSAGE-----"

func TestMessageHeaders(t *testing.T) {
	m := &Message{}
	m.Set("Subject", "one")
	m.Set("Subject", "two")
	if got := m.Get("Subject"); got != "two" {
		t.Errorf("Set must replace: %s", got)
	}
	m.Add("Autocrypt-Gossip", "a")
	m.Add("Autocrypt-Gossip", "b")
	if got := m.Get("Autocrypt-Gossip"); got != "a" {
		t.Errorf("Get must return first value: %s", got)
	}
}

func TestMessageStringCRLF(t *testing.T) {
	m := NewText("line1\nline2\n")
	m.Set("Subject", "hi")
	out := m.String()
	if strings.Contains(strings.ReplaceAll(out, "\r\n", ""), "\n") {
		t.Errorf("bare LF in rendered message:\n%q", out)
	}
	if !strings.Contains(out, "line1\r\nline2\r\n") {
		t.Errorf("body not CRLF-normalized:\n%q", out)
	}
}

func TestMessageStringFoldsHeaders(t *testing.T) {
	m := NewText("body")
	m.Set("Autocrypt", "addr=a@b.c; keydata=\n AAAA\n BBBB")
	out := m.String()
	if !strings.Contains(out, "keydata=\r\n AAAA\r\n BBBB\r\n") {
		t.Errorf("fold points not rendered as continuation lines:\n%q", out)
	}

	in, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := in.Header("Autocrypt")
	if !strings.Contains(got, "AAAA") || !strings.Contains(got, "BBBB") {
		t.Errorf("folded header not reassembled: %q", got)
	}
}

func TestStamp(t *testing.T) {
	m := NewText("hi")
	date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	Stamp(m, "alice@example.org", []string{"bob@example.org", "carol@example.org"}, "subj", date, "")

	if got := m.Get("To"); got != "bob@example.org, carol@example.org" {
		t.Errorf("unexpected To: %s", got)
	}
	if got := m.Get("Date"); got != date.Format(time.RFC1123Z) {
		t.Errorf("unexpected Date: %s", got)
	}
	id := m.Get("Message-ID")
	if !strings.HasPrefix(id, "<") || !strings.HasSuffix(id, "@example.org>") {
		t.Errorf("unexpected Message-ID: %s", id)
	}
}

func TestNewEncryptedRoundTrip(t *testing.T) {
	m := NewEncrypted(fakeCiphertext, "XBOUND")
	Stamp(m, "alice@example.org", []string{"bob@example.org"}, "s", time.Time{}, "")

	in, err := Parse([]byte(m.String()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !in.IsEncrypted() {
		t.Fatal("message not recognized as encrypted")
	}
	payload, err := in.EncryptedPayload()
	if err != nil {
		t.Fatalf("EncryptedPayload failed: %v", err)
	}
	if payload != fakeCiphertext {
		t.Errorf("payload mismatch:\n got %q\nwant %q", payload, fakeCiphertext)
	}
}

func TestEncryptedPayloadOnPlainMail(t *testing.T) {
	m := NewText("hi")
	Stamp(m, "a@b.c", []string{"d@e.f"}, "s", time.Time{}, "")
	in, err := Parse([]byte(m.String()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if in.IsEncrypted() {
		t.Error("plain mail must not be encrypted")
	}
	if _, err := in.EncryptedPayload(); err == nil {
		t.Error("expected error for plain mail")
	}
}

func TestNewSetupRoundTrip(t *testing.T) {
	payload := "Passphrase stuff\n-----BEGIN PGP MESSAGE-----\n\nxxx\n-----END PGP MESSAGE-----"
	m := NewSetup("read me", payload, "")
	Stamp(m, "alice@example.org", []string{"alice@example.org"}, "Autocrypt Setup Message", time.Time{}, "")

	if m.Get("Autocrypt-Setup-Message") != "v1" {
		t.Errorf("missing setup header: %q", m.Get("Autocrypt-Setup-Message"))
	}

	in, err := Parse([]byte(m.String()))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got, err := in.SetupPayload()
	if err != nil {
		t.Fatalf("SetupPayload failed: %v", err)
	}
	if got != payload {
		t.Errorf("payload mismatch:\n got %q\nwant %q", got, payload)
	}
}

func TestIncomingAddresses(t *testing.T) {
	raw := "From: Alice A <alice@example.org>\r\n" +
		"To: Bob <bob@example.org>, carol@example.org\r\n" +
		"Subject: hi\r\n\r\nbody\r\n"
	in, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := in.From(); got != "alice@example.org" {
		t.Errorf("unexpected From: %s", got)
	}
	to := in.To()
	if len(to) != 2 || to[0] != "bob@example.org" || to[1] != "carol@example.org" {
		t.Errorf("unexpected To: %v", to)
	}
}

func TestIncomingMultipleHeaders(t *testing.T) {
	raw := "From: a@b.c\r\nAutocrypt: one\r\nAutocrypt: two\r\n\r\nbody\r\n"
	in, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	vals := in.Headers("autocrypt")
	if len(vals) != 2 || vals[0] != "one" || vals[1] != "two" {
		t.Errorf("unexpected header values: %v", vals)
	}
}

func TestNewBoundaryUnique(t *testing.T) {
	if NewBoundary() == NewBoundary() {
		t.Error("boundaries must be unique")
	}
}
