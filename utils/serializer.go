package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"threadscope/models"
)

// Format is a structured document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name from config or flags
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", s)
	}
}

// Serialize flattens the forest into independent thread records, numbered
// thread_0, thread_1, ... in root order. The forest is not modified.
func Serialize(forest *models.Forest) []models.ThreadRecord {
	records := make([]models.ThreadRecord, 0, len(forest.Trees))
	for i, tree := range forest.Trees {
		subject := ""
		if tree.Root.Message != nil {
			subject = NormalizeSubject(tree.Root.Message.Subject)
		}

		records = append(records, models.ThreadRecord{
			ThreadID:    fmt.Sprintf("thread_%d", i),
			Subject:     subject,
			RootMessage: serializeTree(tree.Root),
			Statistics:  copyStatistics(tree.Stats),
		})
	}
	return records
}

// BuildDocument wraps the serialized forest with its summary
func BuildDocument(forest *models.Forest, now time.Time) *models.Document {
	doc := &models.Document{
		Threads: Serialize(forest),
		Summary: models.Summary{
			TotalMessages:       forest.MessageCount(),
			ProcessingTimestamp: now.UTC().Format(time.RFC3339),
		},
	}
	doc.Summary.TotalThreads = len(doc.Threads)

	if !forest.Diagnostics.Empty() {
		diagnostics := models.Diagnostics{
			Duplicates:   append([]string(nil), forest.Diagnostics.Duplicates...),
			CyclesBroken: append([]string(nil), forest.Diagnostics.CyclesBroken...),
			Unresolved:   append([]string(nil), forest.Diagnostics.Unresolved...),
			MissingIDs:   forest.Diagnostics.MissingIDs,
		}
		doc.Diagnostics = &diagnostics
	}
	return doc
}

// serializeTree copies the tree below root into nested records using an
// explicit work stack. Parent back-references are not carried over.
func serializeTree(root *models.ThreadNode) *models.MessageRecord {
	type item struct {
		node   *models.ThreadNode
		record *models.MessageRecord
	}

	rootRecord := newMessageRecord(root, 0)
	stack := []item{{node: root, record: rootRecord}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, child := range current.node.Children {
			record := newMessageRecord(child, current.record.Depth+1)
			current.record.Children = append(current.record.Children, record)
			stack = append(stack, item{node: child, record: record})
		}
	}
	return rootRecord
}

func newMessageRecord(node *models.ThreadNode, depth int) *models.MessageRecord {
	record := &models.MessageRecord{
		References:  []string{},
		Attachments: []models.Attachment{},
		Depth:       depth,
		Children:    make([]*models.MessageRecord, 0, len(node.Children)),
	}

	msg := node.Message
	if msg == nil {
		return record
	}

	record.MessageID = msg.MessageID
	record.Subject = msg.Subject
	record.From = msg.From
	record.To = msg.To
	record.Cc = msg.Cc
	record.Date = msg.Date
	record.InReplyTo = msg.InReplyTo
	record.Body = msg.Body
	record.References = append(record.References, msg.References...)
	record.Attachments = append(record.Attachments, msg.Attachments...)
	return record
}

func copyStatistics(stats models.ThreadStatistics) models.ThreadStatistics {
	out := stats
	out.Participants = append([]string{}, stats.Participants...)
	if stats.DateRange != nil {
		dateRange := *stats.DateRange
		out.DateRange = &dateRange
	}
	return out
}

// EncodeDocument writes doc to w in the given format
func EncodeDocument(w io.Writer, doc *models.Document, format Format, indent int) error {
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if indent > 0 {
			enc.SetIndent("", strings.Repeat(" ", indent))
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode document as json: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		if indent > 0 {
			enc.SetIndent(indent)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode document as yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// DecodeDocument reads a document previously written by EncodeDocument
func DecodeDocument(r io.Reader, format Format) (*models.Document, error) {
	var doc models.Document
	switch format {
	case FormatJSON, "":
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode json document: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode yaml document: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported input format %q", format)
	}
	return &doc, nil
}
