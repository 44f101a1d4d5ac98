// Package loader reads messages from eml directories, mbox files, CSV load
// files and JSON exports, and turns them into raw records for threading.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"threadscope/models"
	"threadscope/utils"
)

// Options controls how message bodies are extracted
type Options struct {
	HTMLFallback bool          // use stripped text/html when no text/plain part exists
	Logger       *utils.Logger // defaults to utils.Log
}

func (o Options) logger() *utils.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return utils.Log
}

// ParseRFC822 reads one RFC 5322 message. Only read errors are returned;
// malformed headers or MIME structure degrade to empty fields.
func ParseRFC822(r io.Reader, opts Options) (models.RawMessage, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return models.RawMessage{}, fmt.Errorf("failed to read message: %w", err)
	}
	return parseContent(content, opts), nil
}

// maxSkippedParts bounds how many undecodable MIME parts are passed over
// before the walk gives up on a message
const maxSkippedParts = 32

func parseContent(content []byte, opts Options) models.RawMessage {
	entity, err := message.Read(bytes.NewReader(content))
	if err != nil && !isRecoverable(err) {
		opts.logger().Warn("Unparseable message header, keeping raw content as body: %v", err)
		return models.RawMessage{Body: string(content)}
	}

	raw := headerFields(mail.Header{Header: entity.Header})
	logger := opts.logger().WithField("message_id", raw.MessageID)

	// A single part body in an unknown transfer encoding cannot be decoded
	if message.IsUnknownEncoding(err) {
		if mediaType, _, _ := entity.Header.ContentType(); !strings.HasPrefix(strings.ToLower(mediaType), "multipart/") {
			logger.Warn("Dropping body with unknown transfer encoding: %v", err)
			return raw
		}
	}

	mr := mail.NewReader(entity)
	defer mr.Close()

	var htmlBody string
	foundPlain := false
	skipped := 0
	for index := 0; ; index++ {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil && !isRecoverable(err) {
			logger.Warn("Stopping at malformed MIME part %d: %v", index, err)
			break
		}
		if part == nil {
			// The reader has consumed the part already, so the walk can go on
			skipped++
			logger.Warn("Skipping undecodable MIME part %d: %v", index, err)
			if skipped >= maxSkippedParts {
				break
			}
			continue
		}

		var contentType string
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ = h.ContentType()
			switch {
			case isPlainText(contentType) && !foundPlain:
				raw.Body = readText(part.Body, logger)
				foundPlain = true
			case strings.EqualFold(contentType, "text/html") && htmlBody == "" && opts.HTMLFallback:
				htmlBody = readText(part.Body, logger)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ = h.ContentType()

			var size int64
			if isPlainText(contentType) && !foundPlain {
				// The first text/plain part is the body whatever its disposition
				raw.Body = readText(part.Body, logger)
				foundPlain = true
				size = int64(len(raw.Body))
			} else {
				size, _ = io.Copy(io.Discard, part.Body)
			}

			raw.Attachments = append(raw.Attachments, models.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        int(size),
			})
		}
	}

	if !foundPlain && htmlBody != "" {
		raw.Body = utils.HTMLToText(htmlBody)
	}

	return raw
}

func isPlainText(contentType string) bool {
	return strings.EqualFold(contentType, "text/plain")
}

// readText returns whatever could be decoded from r
func readText(r io.Reader, logger *utils.Logger) string {
	body, err := io.ReadAll(r)
	if err != nil {
		logger.Warn("Failed to decode text part: %v", err)
	}
	return string(body)
}

// headerFields extracts the threading and descriptive headers. Decoding
// failures fall back to the raw header value.
func headerFields(h mail.Header) models.RawMessage {
	raw := models.RawMessage{
		Subject: headerText(h, "Subject"),
		From:    headerText(h, "From"),
		To:      headerText(h, "To"),
		Cc:      headerText(h, "Cc"),
		Date:    strings.TrimSpace(h.Get("Date")),
	}

	if id, err := h.MessageID(); err == nil && id != "" {
		raw.MessageID = id
	} else {
		raw.MessageID = strings.TrimSpace(h.Get("Message-Id"))
	}

	if ids := msgIDList(h, "In-Reply-To"); len(ids) > 0 {
		raw.InReplyTo = ids[0]
	}
	raw.References = msgIDList(h, "References")

	return raw
}

func headerText(h mail.Header, key string) string {
	if value, err := h.Text(key); err == nil {
		return value
	}
	return h.Get(key)
}

func msgIDList(h mail.Header, key string) []string {
	if ids, err := h.MsgIDList(key); err == nil {
		return ids
	}
	return strings.Fields(h.Get(key))
}

// isRecoverable reports errors after which go-message still returns usable
// data, such as an unknown charset
func isRecoverable(err error) bool {
	return message.IsUnknownCharset(err) || message.IsUnknownEncoding(err)
}
