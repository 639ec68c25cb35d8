// Package mail builds and parses the RFC 822 shapes goac deals in:
// PGP/MIME multipart/encrypted messages and Autocrypt setup messages.
package mail

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	netmail "net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"

	"goac/internal/header"
)

const (
	encryptedProtocol = "application/pgp-encrypted"
	setupContentType  = "application/autocrypt-setup"
	setupFilename     = "autocrypt-setup-message.html"
)

var (
	// ErrNotEncrypted is returned when a message claimed as encrypted is
	// not multipart/encrypted with the PGP protocol.
	ErrNotEncrypted = errors.New("mail: not a multipart/encrypted PGP message")

	// ErrNoPayload is returned when the expected MIME part is missing.
	ErrNoPayload = errors.New("mail: expected MIME part not found")
)

// Message is an outgoing message under construction: ordered headers and
// a pre-rendered body.
type Message struct {
	headers []hdr
	Body    string
}

type hdr struct {
	name  string
	value string
}

// Set replaces any existing header of the same name.
func (m *Message) Set(name, value string) {
	for i := range m.headers {
		if m.headers[i].name == name {
			m.headers[i].value = value
			return
		}
	}
	m.Add(name, value)
}

// Add appends a header, keeping earlier ones with the same name.
func (m *Message) Add(name, value string) {
	m.headers = append(m.headers, hdr{name: name, value: value})
}

// Get returns the first header value for name, or "".
func (m *Message) Get(name string) string {
	for _, h := range m.headers {
		if h.name == name {
			return h.value
		}
	}
	return ""
}

// String renders the message with CRLF line endings. Header values that
// carry embedded fold points ("\n ") are emitted as proper continuation
// lines.
func (m *Message) String() string {
	var b strings.Builder
	for _, h := range m.headers {
		v := strings.ReplaceAll(h.value, "\r\n", "\n")
		v = strings.ReplaceAll(v, "\n", "\r\n")
		b.WriteString(h.name)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	body := strings.ReplaceAll(m.Body, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return b.String()
}

// NewBoundary returns a fresh MIME boundary token.
func NewBoundary() string {
	return "goac-" + uuid.NewString()
}

// NewMessageID returns a fresh Message-ID for the given sending domain.
func NewMessageID(addr string) string {
	domain := "localhost"
	if _, d, ok := strings.Cut(addr, "@"); ok {
		domain = d
	}
	return fmt.Sprintf("<%s@%s>", uuid.NewString(), domain)
}

// NewText builds a plain text message part with no transport headers.
func NewText(body string) *Message {
	m := &Message{Body: body}
	m.Set("Content-Type", `text/plain; charset="utf-8"`)
	m.Set("MIME-Version", "1.0")
	return m
}

// NewEncrypted wraps armored ciphertext in a PGP/MIME multipart/encrypted
// container. An empty boundary gets a generated one.
func NewEncrypted(ciphertext, boundary string) *Message {
	if boundary == "" {
		boundary = NewBoundary()
	}
	m := &Message{}
	m.Set("Content-Type", fmt.Sprintf("multipart/encrypted; protocol=%q; boundary=%q", encryptedProtocol, boundary))
	m.Set("MIME-Version", "1.0")

	var b strings.Builder
	fmt.Fprintf(&b, "--%s\n", boundary)
	b.WriteString("Content-Type: application/pgp-encrypted\n\n")
	b.WriteString("Version: 1\n\n")
	fmt.Fprintf(&b, "--%s\n", boundary)
	b.WriteString("Content-Type: application/octet-stream; name=\"encrypted.asc\"\n")
	b.WriteString("Content-Disposition: inline; filename=\"encrypted.asc\"\n\n")
	b.WriteString(strings.TrimRight(ciphertext, "\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "--%s--\n", boundary)
	m.Body = b.String()
	return m
}

// NewSetup builds an Autocrypt setup message: a human-readable intro part
// and the encrypted key as an application/autocrypt-setup attachment.
func NewSetup(intro, payload, boundary string) *Message {
	if boundary == "" {
		boundary = NewBoundary()
	}
	m := &Message{}
	m.Set("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", boundary))
	m.Set("MIME-Version", "1.0")
	m.Set(header.SetupName, header.SetupVersion)

	var b strings.Builder
	fmt.Fprintf(&b, "--%s\n", boundary)
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\n\n")
	b.WriteString(strings.TrimRight(intro, "\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "--%s\n", boundary)
	fmt.Fprintf(&b, "Content-Type: %s; name=%q\n", setupContentType, setupFilename)
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\n\n", setupFilename)
	b.WriteString(strings.TrimRight(payload, "\n"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "--%s--\n", boundary)
	m.Body = b.String()
	return m
}

// Stamp adds the standard transport headers. A zero date or empty
// messageID is filled in.
func Stamp(m *Message, from string, to []string, subject string, date time.Time, messageID string) {
	m.Set("Subject", subject)
	m.Set("From", from)
	m.Set("To", strings.Join(to, ", "))
	if date.IsZero() {
		date = time.Now()
	}
	m.Set("Date", date.Format(time.RFC1123Z))
	if messageID == "" {
		messageID = NewMessageID(from)
	}
	m.Set("Message-ID", messageID)
}

// Incoming is a parsed inbound message.
type Incoming struct {
	msg  *netmail.Message
	body []byte
}

// Parse reads a raw RFC 822 message. Bare-LF input is accepted.
func Parse(raw []byte) (*Incoming, error) {
	msg, err := netmail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("mail: parse message: %w", err)
	}
	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return nil, fmt.Errorf("mail: read body: %w", err)
	}
	return &Incoming{msg: msg, body: body}, nil
}

// Header returns the first value for name.
func (in *Incoming) Header(name string) string {
	return in.msg.Header.Get(name)
}

// Headers returns all values for name in order.
func (in *Incoming) Headers(name string) []string {
	return in.msg.Header[textproto.CanonicalMIMEHeaderKey(name)]
}

// Body returns the raw message body.
func (in *Incoming) Body() []byte {
	return in.body
}

// To returns the recipient addresses, bare (no display names).
func (in *Incoming) To() []string {
	list, err := in.msg.Header.AddressList("To")
	if err != nil {
		// Fall back to comma splitting for slightly malformed input.
		var out []string
		for _, a := range strings.Split(in.Header("To"), ",") {
			if a = strings.TrimSpace(a); a != "" {
				out = append(out, a)
			}
		}
		return out
	}
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Address
	}
	return out
}

// From returns the bare sender address, or "".
func (in *Incoming) From() string {
	list, err := in.msg.Header.AddressList("From")
	if err != nil || len(list) == 0 {
		return strings.TrimSpace(in.Header("From"))
	}
	return list[0].Address
}

// contentType parses the Content-Type header.
func (in *Incoming) contentType() (string, map[string]string, error) {
	ct := in.Header("Content-Type")
	if ct == "" {
		return "text/plain", nil, nil
	}
	mediatype, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", nil, fmt.Errorf("mail: parse content type: %w", err)
	}
	return mediatype, params, nil
}

// IsEncrypted reports whether the message is a PGP/MIME encrypted
// container.
func (in *Incoming) IsEncrypted() bool {
	mediatype, params, err := in.contentType()
	if err != nil {
		return false
	}
	return mediatype == "multipart/encrypted" && params["protocol"] == encryptedProtocol
}

// EncryptedPayload extracts the armored ciphertext from the
// application/octet-stream part of a multipart/encrypted message.
func (in *Incoming) EncryptedPayload() (string, error) {
	mediatype, params, err := in.contentType()
	if err != nil {
		return "", err
	}
	if mediatype != "multipart/encrypted" {
		return "", ErrNotEncrypted
	}
	return in.partByType(params["boundary"], "application/octet-stream")
}

// SetupPayload extracts the application/autocrypt-setup attachment from a
// setup message.
func (in *Incoming) SetupPayload() (string, error) {
	mediatype, params, err := in.contentType()
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(mediatype, "multipart/") {
		return "", ErrNoPayload
	}
	return in.partByType(params["boundary"], setupContentType)
}

func (in *Incoming) partByType(boundary, want string) (string, error) {
	if boundary == "" {
		return "", errors.New("mail: missing multipart boundary")
	}
	normalized := strings.ReplaceAll(string(in.body), "\r\n", "\n")
	mr := multipart.NewReader(strings.NewReader(normalized), boundary)
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", ErrNoPayload
		}
		if err != nil {
			return "", fmt.Errorf("mail: walk parts: %w", err)
		}
		ct := part.Header.Get("Content-Type")
		mediatype, _, err := mime.ParseMediaType(ct)
		if err != nil {
			continue
		}
		if mediatype == want {
			data, err := io.ReadAll(part)
			if err != nil {
				return "", fmt.Errorf("mail: read part: %w", err)
			}
			return strings.TrimSpace(string(data)), nil
		}
	}
}
