package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"threadscope/models"
)

// LoadMbox reads every message of an mbox file in file order
func LoadMbox(path string, opts Options) ([]models.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox %s: %w", path, err)
	}
	defer f.Close()

	return ReadMbox(f, filepath.Base(path), opts)
}

// ReadMbox splits r on "From " separator lines. Lines escaped as ">From "
// inside a body are restored.
func ReadMbox(r io.Reader, name string, opts Options) ([]models.RawMessage, error) {
	var (
		messages = []models.RawMessage{}
		buf      bytes.Buffer
		in       bool
	)

	flush := func() {
		if !in {
			return
		}
		raw := parseContent(buf.Bytes(), opts)
		raw.Source = fmt.Sprintf("%s#%d", name, len(messages))
		messages = append(messages, raw)
		buf.Reset()
	}

	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			switch {
			case strings.HasPrefix(line, "From "):
				flush()
				in = true
			case in:
				if unescaped, ok := unescapeFrom(line); ok {
					line = unescaped
				}
				buf.WriteString(line)
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mbox %s: %w", name, err)
		}
	}
	flush()

	opts.logger().Debug("Read %d messages from mbox %s", len(messages), name)
	return messages, nil
}

// unescapeFrom strips one '>' from lines of the form ">From " or ">>From "
func unescapeFrom(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, ">")
	if len(trimmed) < len(line) && strings.HasPrefix(trimmed, "From ") {
		return line[1:], true
	}
	return line, false
}
