package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"threadscope/loader"
	"threadscope/models"
	"threadscope/storage"
	"threadscope/utils"
)

const threadJSON = `{
	"source": "fixture",
	"messages": [
		{"message_id": "<a@x>", "subject": "Plan", "from": "ann@x"},
		{"message_id": "<b@x>", "in_reply_to": "<a@x>", "subject": "Re: Plan", "from": "ben@x"},
		{"message_id": "<c@x>", "references": "<a@x> <b@x>", "subject": "Re: Plan", "from": "ann@x"},
		{"message_id": "<d@x>", "subject": "Other", "from": "dan@x"}
	]
}`

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	analysisStorage, err := storage.NewAnalysisStorage(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { analysisStorage.Close() })

	cache := utils.NewMemoryCache[*models.Document](time.Minute, time.Minute)
	t.Cleanup(cache.Close)

	quiet := utils.NewLoggerWithWriter(io.Discard, utils.ERROR)
	handler := NewAnalysisHandler(analysisStorage, cache, loader.Options{Logger: quiet}, 1, 2)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/health", Health)
	RegisterRoutes(app.Group("/api"), handler)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target, contentType, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func createAnalysis(t *testing.T, app *fiber.App) models.AnalysisMeta {
	t.Helper()

	resp, body := doRequest(t, app, "POST", "/api/analyses", fiber.MIMEApplicationJSON, threadJSON)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var created struct {
		Success  bool                `json:"success"`
		Analysis models.AnalysisMeta `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	require.True(t, created.Success)
	return created.Analysis
}

func TestCreateAnalysis(t *testing.T) {
	app := newTestApp(t)

	meta := createAnalysis(t, app)

	assert.NotEmpty(t, meta.ID)
	assert.Equal(t, "fixture", meta.Source)
	assert.Equal(t, 2, meta.TotalThreads)
	assert.Equal(t, 4, meta.TotalMessages)
}

func TestCreateAnalysisFromMbox(t *testing.T) {
	app := newTestApp(t)

	mbox := "From ann@x Mon Jan  2 15:04:05 2006\nMessage-ID: <m1@x>\nSubject: hi\n\nhello\n" +
		"From ben@x Mon Jan  2 16:04:05 2006\nMessage-ID: <m2@x>\nIn-Reply-To: <m1@x>\nSubject: Re: hi\n\nhello back\n"

	resp, body := doRequest(t, app, "POST", "/api/analyses?source=inbox.mbox", "application/mbox", mbox)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	var created struct {
		Analysis models.AnalysisMeta `json:"analysis"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, "inbox.mbox", created.Analysis.Source)
	assert.Equal(t, 1, created.Analysis.TotalThreads)
	assert.Equal(t, 2, created.Analysis.TotalMessages)
}

func TestCreateAnalysisInvalidBody(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, "POST", "/api/analyses", fiber.MIMEApplicationJSON, `{"messages": 5}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "Invalid request")
}

func TestGetAnalysis(t *testing.T) {
	app := newTestApp(t)
	meta := createAnalysis(t, app)

	resp, body := doRequest(t, app, "GET", "/api/analyses/"+meta.ID, "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var doc models.Document
	require.NoError(t, json.Unmarshal(body, &doc))
	require.Len(t, doc.Threads, 2)
	assert.Equal(t, "thread_0", doc.Threads[0].ThreadID)
	assert.Equal(t, "Plan", doc.Threads[0].Subject)
	assert.Equal(t, 3, doc.Threads[0].Statistics.TotalMessages)

	resp, body = doRequest(t, app, "GET", "/api/analyses/"+meta.ID+"?format=yaml", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	var yamlDoc models.Document
	require.NoError(t, yaml.Unmarshal(body, &yamlDoc))
	assert.Equal(t, doc, yamlDoc)
}

func TestGetAnalysisErrors(t *testing.T) {
	app := newTestApp(t)
	meta := createAnalysis(t, app)

	resp, body := doRequest(t, app, "GET", "/api/analyses/unknown", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"error": "Analysis not found"}`, string(body))

	resp, _ = doRequest(t, app, "GET", "/api/analyses/"+meta.ID+"?format=xml", "", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestGetThreads(t *testing.T) {
	app := newTestApp(t)
	meta := createAnalysis(t, app)

	resp, body := doRequest(t, app, "GET", "/api/analyses/"+meta.ID+"/threads?page=2&page_size=1", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var page models.PaginatedThreads
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, meta.ID, page.AnalysisID)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasPrev)
	assert.False(t, page.HasNext)
	require.Len(t, page.Threads, 1)
	assert.Equal(t, "thread_1", page.Threads[0].ThreadID)
}

func TestGetThread(t *testing.T) {
	app := newTestApp(t)
	meta := createAnalysis(t, app)

	resp, body := doRequest(t, app, "GET", "/api/analyses/"+meta.ID+"/threads/thread_0", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var thread models.ThreadRecord
	require.NoError(t, json.Unmarshal(body, &thread))
	assert.Equal(t, "a@x", thread.RootMessage.MessageID)
	require.Len(t, thread.RootMessage.Children, 1)
	assert.Equal(t, "b@x", thread.RootMessage.Children[0].MessageID)
	assert.Equal(t, 2, thread.RootMessage.Children[0].Children[0].Depth)

	resp, _ = doRequest(t, app, "GET", "/api/analyses/"+meta.ID+"/threads/thread_7", "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListAndDeleteAnalyses(t *testing.T) {
	app := newTestApp(t)
	first := createAnalysis(t, app)
	second := createAnalysis(t, app)

	resp, body := doRequest(t, app, "GET", "/api/analyses", "", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var listed struct {
		Analyses []models.AnalysisMeta `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed.Analyses, 2)

	ids := []string{listed.Analyses[0].ID, listed.Analyses[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)

	resp, _ = doRequest(t, app, "DELETE", "/api/analyses/"+first.ID, "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The cached copy must not outlive the stored one
	resp, _ = doRequest(t, app, "GET", "/api/analyses/"+first.ID, "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, app, "DELETE", "/api/analyses/"+first.ID, "", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	resp, body := doRequest(t, app, "GET", "/health", "", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"ok"`)
}
