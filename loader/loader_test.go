package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func eml(id, inReplyTo string) string {
	header := "Message-ID: <" + id + ">\r\nSubject: test\r\n"
	if inReplyTo != "" {
		header += "In-Reply-To: <" + inReplyTo + ">\r\n"
	}
	return header + "\r\nbody of " + id + "\r\n"
}

func TestLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.eml"), eml("b@x", "a@x"))
	writeFile(t, filepath.Join(dir, "a.EML"), eml("a@x", ""))
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a message")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.eml"), 0755))

	raws, err := LoadDirectory(dir, quietOptions())
	require.NoError(t, err)
	require.Len(t, raws, 2)

	assert.Equal(t, "a@x", raws[0].MessageID)
	assert.Equal(t, "a.EML", raws[0].Source)
	assert.Equal(t, "b@x", raws[1].MessageID)
	assert.Equal(t, "a@x", raws[1].InReplyTo)
}

func TestLoadDirectoryMissing(t *testing.T) {
	_, err := LoadDirectory(filepath.Join(t.TempDir(), "absent"), quietOptions())
	assert.Error(t, err)
}

func TestLoadJSON(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{name: "array", data: `[{"message_id": "a"}, {"message_id": "b", "in_reply_to": "a"}]`, want: 2},
		{name: "envelope", data: `{"messages": [{"message_id": "a", "references": "<x> <y>"}]}`, want: 1},
		{name: "envelope without messages", data: `{"source": "x"}`, want: 0},
		{name: "blank", data: "  \n", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raws, err := LoadJSON(strings.NewReader(tt.data))
			require.NoError(t, err)
			assert.NotNil(t, raws)
			assert.Len(t, raws, tt.want)
		})
	}

	_, err := LoadJSON(strings.NewReader(`{"messages": 3}`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	emlDir := filepath.Join(dir, "emls")
	require.NoError(t, os.Mkdir(emlDir, 0755))
	writeFile(t, filepath.Join(emlDir, "one.eml"), eml("one@x", ""))

	mboxPath := filepath.Join(dir, "archive.mbox")
	writeFile(t, mboxPath, sampleMbox)

	sniffed := filepath.Join(dir, "archive")
	writeFile(t, sniffed, sampleMbox)

	jsonPath := filepath.Join(dir, "export.json")
	writeFile(t, jsonPath, `[{"message_id": "j1"}]`)

	csvPath := filepath.Join(dir, "load.csv")
	writeFile(t, csvPath, "From,column_history\nann@x,MSG-ID:<c1@x>\n")

	single := filepath.Join(dir, "single.eml")
	writeFile(t, single, eml("single@x", ""))

	tests := []struct {
		path  string
		count int
		first string
	}{
		{path: emlDir, count: 1, first: "one@x"},
		{path: mboxPath, count: 2, first: "m1@example.com"},
		{path: sniffed, count: 2, first: "m1@example.com"},
		{path: jsonPath, count: 1, first: "j1"},
		{path: csvPath, count: 1, first: "<c1@x>"},
		{path: single, count: 1, first: "single@x"},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			raws, err := Load(tt.path, quietOptions())
			require.NoError(t, err)
			require.Len(t, raws, tt.count)
			assert.Equal(t, tt.first, raws[0].MessageID)
		})
	}

	_, err := Load(filepath.Join(dir, "missing.mbox"), quietOptions())
	assert.Error(t, err)
}
