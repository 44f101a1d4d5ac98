package models

import (
	"encoding/json"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// RawMessage is one message as handed over by a loader, before normalization
type RawMessage struct {
	MessageID   string       `json:"message_id"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Cc          string       `json:"cc"`
	Date        string       `json:"date"`
	InReplyTo   string       `json:"in_reply_to"`
	References  References   `json:"references"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Source      string       `json:"source,omitempty"`   // file or record the message was read from
	Forward     bool         `json:"forward,omitempty"`  // set by loaders that carry an explicit forward marker
	External    bool         `json:"external,omitempty"` // sent from or to outside the producing organization
}

// References is the ancestor chain of a message, oldest first. It decodes
// from either a JSON array or a raw whitespace separated header value.
type References []string

// UnmarshalJSON accepts both ["<a>", "<b>"] and "<a> <b>"
func (r *References) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*r = nil
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var header string
		if err := json.Unmarshal(data, &header); err != nil {
			return err
		}
		*r = strings.Fields(header)
		return nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*r = ids
	return nil
}

// Message represents an email message placed into the threading pipeline
type Message struct {
	MessageID   string       `json:"message_id"`
	InReplyTo   string       `json:"in_reply_to"`
	References  []string     `json:"references"`
	Subject     string       `json:"subject"`
	From        string       `json:"from"`
	To          string       `json:"to"`
	Cc          string       `json:"cc"`
	Date        string       `json:"date"`
	Body        string       `json:"body"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Source      string       `json:"source,omitempty"`
	Forward     bool         `json:"forward,omitempty"`
	External    bool         `json:"external,omitempty"`
}

// Attachment describes an attachment part. Content is not retained.
type Attachment struct {
	Filename    string `json:"filename" yaml:"filename"`
	ContentType string `json:"content_type" yaml:"content_type"`
	Size        int    `json:"size" yaml:"size"`
}

// HasID reports whether the message can be indexed and referenced by others
func (m *Message) HasID() bool {
	return m.MessageID != ""
}

// ParseMessage normalizes a raw record into a Message. It never fails:
// missing fields stay empty and undecodable body bytes are replaced.
func ParseMessage(raw RawMessage) *Message {
	msg := &Message{
		MessageID: NormalizeMessageID(raw.MessageID),
		InReplyTo: NormalizeMessageID(raw.InReplyTo),
		Subject:   strings.TrimSpace(raw.Subject),
		From:      strings.TrimSpace(raw.From),
		To:        strings.TrimSpace(raw.To),
		Cc:        strings.TrimSpace(raw.Cc),
		Date:      strings.TrimSpace(raw.Date),
		Body:      decodeLossy(raw.Body),
		Source:    raw.Source,
		Forward:   raw.Forward,
		External:  raw.External,
	}

	msg.References = make([]string, 0, len(raw.References))
	for _, ref := range raw.References {
		if id := NormalizeMessageID(ref); id != "" {
			msg.References = append(msg.References, id)
		}
	}

	if len(raw.Attachments) > 0 {
		msg.Attachments = append([]Attachment(nil), raw.Attachments...)
	}

	return msg
}

// NormalizeMessageID strips whitespace and one pair of surrounding angle
// brackets, so "<a@b>" and "a@b" name the same message.
func NormalizeMessageID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) >= 2 && id[0] == '<' && id[len(id)-1] == '>' {
		id = strings.TrimSpace(id[1 : len(id)-1])
	}
	return id
}

// decodeLossy returns s as valid UTF-8, replacing invalid sequences with U+FFFD
func decodeLossy(s string) string {
	decoded, err := unicode.UTF8.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return decoded
}
