// Package email sends the report summary, with the PDF attached, over SMTP.
package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
)

// ErrNotConfigured is returned by Send when no SMTP host is set.
var ErrNotConfigured = errors.New("smtp is not configured")

// Attachment is one file attached to a Message.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// Message is one outgoing mail.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Sender delivers messages through one SMTP relay.
type Sender struct {
	cfg  Config
	send sendFunc
}

func New(cfg Config) *Sender {
	return &Sender{cfg: cfg, send: smtp.SendMail}
}

// Send delivers msg. The context is only checked before dialing: net/smtp
// has no cancellation.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if s.cfg.Host == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := Build(s.cfg.From, msg)
	if err != nil {
		return err
	}
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := s.send(addr, auth, s.cfg.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// Build renders msg as a MIME message. Without attachments the body is sent
// as text/plain; otherwise as multipart/mixed.
func Build(from string, msg Message) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachments) == 0 {
		buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		buf.WriteString(msg.Body)
		return buf.Bytes(), nil
	}

	mw := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mw.Boundary())

	part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		ct := a.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {ct},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Name})},
		})
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(wrap(base64.StdEncoding.EncodeToString(a.Content))); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReportBody renders the report template parameters as the mail body.
func ReportBody(params map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", params["to_name"])
	b.WriteString("Your Medinauts cardiology report is attached.\r\n\r\n")
	fmt.Fprintf(&b, "Status: %s\r\n", params["risk_status"])
	fmt.Fprintf(&b, "Risk score: %s\r\n", params["risk_score"])
	for _, line := range []struct{ label, key string }{
		{"Age", "age"},
		{"Resting blood pressure", "trestbps"},
		{"Cholesterol", "chol"},
	} {
		if v := params[line.key]; v != "" {
			fmt.Fprintf(&b, "%s: %s\r\n", line.label, v)
		}
	}
	return b.String()
}

// wrap breaks encoded content into 76 character lines.
func wrap(encoded string) []byte {
	const width = 76
	var out bytes.Buffer
	for len(encoded) > width {
		out.WriteString(encoded[:width])
		out.WriteString("\r\n")
		encoded = encoded[width:]
	}
	out.WriteString(encoded)
	out.WriteString("\r\n")
	return out.Bytes()
}
