package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	data := "\ufeffBegBates,From,To,CC,Subject,DateSent,FullText,column_history\n" +
		"DOC-1,ann@example.com,ben@example.com,,Budget,2024-01-01T09:00:00Z,Numbers attached,MSG-ID:<b1@x>|IN-REPLY-TO:|REFS:<>\n" +
		"DOC-2,ben@example.com,ann@example.com,carl@example.com,Re: Budget,2024-01-01T10:00:00Z,\"Thanks, got it\",MSG-ID:<b2@x>|IN-REPLY-TO:<b1@x>|REFS:<b1@x>\n" +
		"DOC-3,carl@example.com,dan@example.com,,Fwd: Budget,2024-01-02T08:00:00Z,See below,MSG-ID:<b3@x>|REFS:<b1@x> <b2@x>|THREAD:T-1|FWD:true|EXTERNAL:true\n"

	raws, err := ReadCSV(strings.NewReader(data), quietOptions())
	require.NoError(t, err)
	require.Len(t, raws, 3)

	assert.Equal(t, "DOC-1", raws[0].Source)
	assert.Equal(t, "<b1@x>", raws[0].MessageID)
	assert.Empty(t, raws[0].InReplyTo)
	assert.Empty(t, raws[0].References)

	assert.Equal(t, "<b1@x>", raws[1].InReplyTo)
	assert.Equal(t, "Thanks, got it", raws[1].Body)
	assert.Equal(t, "carl@example.com", raws[1].Cc)

	assert.Equal(t, []string{"<b1@x>", "<b2@x>"}, []string(raws[2].References))
	assert.True(t, raws[2].Forward)
	assert.True(t, raws[2].External)
	assert.False(t, raws[1].Forward)
	assert.False(t, raws[1].External)
}

func TestReadCSVHeaderOnly(t *testing.T) {
	raws, err := ReadCSV(strings.NewReader("From,To\n"), quietOptions())
	require.NoError(t, err)
	assert.Empty(t, raws)

	raws, err = ReadCSV(strings.NewReader(""), quietOptions())
	require.NoError(t, err)
	assert.Empty(t, raws)
}
