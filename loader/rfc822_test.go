package loader

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadscope/models"
	"threadscope/utils"
)

func quietOptions() Options {
	return Options{Logger: utils.NewLoggerWithWriter(io.Discard, utils.ERROR)}
}

func crlf(s string) string {
	return strings.ReplaceAll(s, "\n", "\r\n")
}

func TestParseRFC822Simple(t *testing.T) {
	raw, err := ParseRFC822(strings.NewReader(crlf(`Message-ID: <child@example.com>
In-Reply-To: <parent@example.com>
References: <root@example.com> <parent@example.com>
Subject: =?UTF-8?B?UmU6IGjDqWxsbw==?=
From: Ann <ann@example.com>
To: Ben <ben@example.com>
Cc: carl@example.com
Date: Mon, 02 Jan 2006 15:04:05 +0000
Content-Type: text/plain; charset=utf-8

Hello there.
`)), quietOptions())
	require.NoError(t, err)

	assert.Equal(t, "child@example.com", raw.MessageID)
	assert.Equal(t, "parent@example.com", raw.InReplyTo)
	assert.Equal(t, []string{"root@example.com", "parent@example.com"}, []string(raw.References))
	assert.Equal(t, "Re: héllo", raw.Subject)
	assert.Equal(t, "Ann <ann@example.com>", raw.From)
	assert.Equal(t, "Ben <ben@example.com>", raw.To)
	assert.Equal(t, "carl@example.com", raw.Cc)
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 +0000", raw.Date)
	assert.Equal(t, "Hello there.", strings.TrimSpace(raw.Body))
}

func TestParseRFC822Multipart(t *testing.T) {
	raw, err := ParseRFC822(strings.NewReader(crlf(`Message-ID: <multi@example.com>
Subject: report
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

Gr=FC=DFe aus K=F6ln
--inner
Content-Type: text/html; charset=utf-8

<p>ignored</p>
--inner--
--outer
Content-Type: text/plain
Content-Disposition: attachment; filename="notes.txt"
Content-Transfer-Encoding: base64

aGVsbG8=
--outer--
`)), quietOptions())
	require.NoError(t, err)

	assert.Equal(t, "multi@example.com", raw.MessageID)
	assert.Equal(t, "Grüße aus Köln", strings.TrimSpace(raw.Body))
	require.Len(t, raw.Attachments, 1)
	assert.Equal(t, "notes.txt", raw.Attachments[0].Filename)
	assert.Equal(t, "text/plain", raw.Attachments[0].ContentType)
	assert.Equal(t, 5, raw.Attachments[0].Size)
}

func TestParseRFC822HTMLFallback(t *testing.T) {
	message := crlf(`Message-ID: <html@example.com>
Content-Type: text/html; charset=utf-8

<div>Fish &amp; chips</div><p>tonight</p>
`)

	opts := quietOptions()
	raw, err := ParseRFC822(strings.NewReader(message), opts)
	require.NoError(t, err)
	assert.Empty(t, raw.Body)

	opts.HTMLFallback = true
	raw, err = ParseRFC822(strings.NewReader(message), opts)
	require.NoError(t, err)
	assert.Equal(t, "Fish & chips\ntonight", raw.Body)
}

func TestParseRFC822MalformedHeader(t *testing.T) {
	raw, err := ParseRFC822(strings.NewReader("this is not a header\r\n\r\nbody\r\n"), quietOptions())
	require.NoError(t, err)

	assert.Empty(t, raw.MessageID)
	assert.Contains(t, raw.Body, "this is not a header")
}

func TestParseRFC822MissingHeaders(t *testing.T) {
	raw, err := ParseRFC822(strings.NewReader(crlf("Subject: lonely\n\nno ids here\n")), quietOptions())
	require.NoError(t, err)

	assert.Empty(t, raw.MessageID)
	assert.Empty(t, raw.InReplyTo)
	assert.Empty(t, raw.References)
	assert.Equal(t, "lonely", raw.Subject)
}

func TestParseRFC822UnknownTransferEncoding(t *testing.T) {
	message := crlf(`Message-ID: <a@x>
Subject: hi
Content-Type: text/plain
Content-Transfer-Encoding: x-bogus

body
`)

	var raw models.RawMessage
	require.NotPanics(t, func() {
		var err error
		raw, err = ParseRFC822(strings.NewReader(message), quietOptions())
		require.NoError(t, err)
	})

	assert.Equal(t, "a@x", raw.MessageID)
	assert.Equal(t, "hi", raw.Subject)
	assert.Empty(t, raw.Body)
}

func TestParseRFC822SkipsUndecodablePart(t *testing.T) {
	raw, err := ParseRFC822(strings.NewReader(crlf(`Message-ID: <parts@x>
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: text/plain
Content-Transfer-Encoding: x-bogus

unreadable
--b
Content-Type: text/plain; charset=utf-8

readable body
--b--
`)), quietOptions())
	require.NoError(t, err)

	assert.Equal(t, "parts@x", raw.MessageID)
	assert.Equal(t, "readable body", strings.TrimSpace(raw.Body))
}

func TestParseRFC822PlainAttachmentBecomesBody(t *testing.T) {
	raw, err := ParseRFC822(strings.NewReader(crlf(`Message-ID: <att@x>
Content-Type: multipart/mixed; boundary="b"

--b
Content-Type: image/png
Content-Disposition: attachment; filename="logo.png"
Content-Transfer-Encoding: base64

aGVsbG8=
--b
Content-Type: text/plain
Content-Disposition: attachment; filename="memo.txt"

memo text
--b--
`)), quietOptions())
	require.NoError(t, err)

	assert.Equal(t, "memo text", strings.TrimSpace(raw.Body))
	require.Len(t, raw.Attachments, 2)
	assert.Equal(t, "logo.png", raw.Attachments[0].Filename)
	assert.Equal(t, 5, raw.Attachments[0].Size)
	assert.Equal(t, "memo.txt", raw.Attachments[1].Filename)
	assert.Equal(t, len(raw.Body), raw.Attachments[1].Size)
}
