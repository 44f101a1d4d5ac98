package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"threadscope/models"
)

// Load reads messages from path, choosing the reader by its shape: a
// directory of .eml files, or a .mbox, .csv, .json or single .eml file.
// A missing source is an error; anything unreadable inside it is skipped.
func Load(path string, opts Options) ([]models.RawMessage, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("source %s not found: %w", path, err)
	}
	if info.IsDir() {
		return LoadDirectory(path, opts)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mbox", ".mbx":
		return LoadMbox(path, opts)
	case ".csv":
		return LoadCSV(path, opts)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()
		return LoadJSON(f)
	case ".eml":
		raw, err := loadFile(path, opts)
		if err != nil {
			return nil, err
		}
		return []models.RawMessage{raw}, nil
	}

	// Unknown extension: sniff for an mbox separator
	isMbox, err := looksLikeMbox(path)
	if err != nil {
		return nil, err
	}
	if isMbox {
		return LoadMbox(path, opts)
	}
	raw, err := loadFile(path, opts)
	if err != nil {
		return nil, err
	}
	return []models.RawMessage{raw}, nil
}

// LoadDirectory reads every .eml file in dir, in file name order
func LoadDirectory(dir string, opts Options) ([]models.RawMessage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	messages := []models.RawMessage{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".eml") {
			continue
		}

		raw, err := loadFile(filepath.Join(dir, entry.Name()), opts)
		if err != nil {
			opts.logger().Warn("Skipping %s: %v", entry.Name(), err)
			continue
		}
		messages = append(messages, raw)
	}

	opts.logger().Info("Found %d .eml files in %s", len(messages), dir)
	return messages, nil
}

// LoadJSON decodes either a bare array of messages or {"messages": [...]}
func LoadJSON(r io.Reader) ([]models.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read json messages: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.RawMessage{}, nil
	}

	messages := []models.RawMessage{}
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &messages); err != nil {
			return nil, fmt.Errorf("failed to decode json messages: %w", err)
		}
		return messages, nil
	}

	var envelope struct {
		Messages []models.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode json messages: %w", err)
	}
	if envelope.Messages != nil {
		messages = envelope.Messages
	}
	return messages, nil
}

func loadFile(path string, opts Options) (models.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.RawMessage{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	raw, err := ParseRFC822(f, opts)
	if err != nil {
		return models.RawMessage{}, err
	}
	raw.Source = filepath.Base(path)
	return raw, nil
}

func looksLikeMbox(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.HasPrefix(line, "From "), nil
}
