package router

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careercraft-go/internal/advisor"
	"careercraft-go/internal/agent"
	"careercraft-go/internal/api/handler"
	"careercraft-go/internal/ats"
	"careercraft-go/internal/catalog"
	"careercraft-go/internal/processor"
	"careercraft-go/internal/session"
	"careercraft-go/internal/skills"
)

const resumeText = `Jane Doe
jane@example.com

EXPERIENCE
Built dashboards with Python and SQL, cleaned data using pandas.

EDUCATION
B.Sc. Mathematics`

func newTestServer(t *testing.T, opts Options) *server.Hertz {
	t.Helper()
	cat := catalog.MustDefault()
	extractor := skills.NewExtractor(cat.Vocabulary())
	scorer := ats.NewScorer(cat, ats.DefaultWeights)
	store := session.NewMemoryStore(time.Hour)
	chat := agent.NewMockChatClient("Focus on SQL window functions next.", nil)

	proc, err := processor.NewCareerProcessor(processor.NewComponents(
		processor.WithCatalog(cat),
		processor.WithSkillExtractor(extractor),
		processor.WithScorer(scorer),
		processor.WithStore(store),
	), nil)
	require.NoError(t, err)

	hd := handler.New(handler.Deps{
		Catalog:        cat,
		Skills:         extractor,
		ATS:            scorer,
		Store:          store,
		Processor:      proc,
		Chatbot:        advisor.NewChatbot(chat),
		CoverLetters:   advisor.NewCoverLetters(cat, nil),
		MaxUploadBytes: 1 << 20,
	})

	h := server.New()
	RegisterRoutes(h, hd, opts)
	return h
}

func jsonBody(t *testing.T, v any) *ut.Body {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return &ut.Body{Body: bytes.NewReader(data), Len: len(data)}
}

var jsonHeader = ut.Header{Key: "Content-Type", Value: "application/json"}

func decode(t *testing.T, w *ut.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createSession(t *testing.T, h *server.Hertz) string {
	t.Helper()
	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := decode(t, w)["session_id"].(string)
	require.NotEmpty(t, id)
	return id
}

func TestHealthAndRequestID(t *testing.T) {
	h := newTestServer(t, Options{APIKeys: []string{"secret"}})

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/health", nil, ut.Header{Key: HeaderRequestID, Value: "req-123"})
	assert.Equal(t, "req-123", w.Header().Get(HeaderRequestID))
}

func TestAPIKeyAuth(t *testing.T) {
	h := newTestServer(t, Options{APIKeys: []string{"secret"}, AuthHeader: "X-API-Key"})

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/roles", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, decode(t, w), "error")

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/roles", nil, ut.Header{Key: "X-API-Key", Value: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/roles", nil, ut.Header{Key: "X-API-Key", Value: "secret"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestServer(t, Options{})
	id := createSession(t, h)
	base := "/api/v1/sessions/" + id

	w := ut.PerformRequest(h.Engine, http.MethodPost, base+"/analyze",
		jsonBody(t, map[string]string{"text": resumeText, "role": "Data Analyst"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	analysis := decode(t, w)
	assert.Equal(t, "Data Analyst", analysis["role"])
	match := analysis["match"].(map[string]any)
	assert.EqualValues(t, 50, match["score"])

	w = ut.PerformRequest(h.Engine, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode(t, w)
	assert.Equal(t, true, snap["has_resume"])
	assert.Equal(t, "Data Analyst", snap["target_role"])

	w = ut.PerformRequest(h.Engine, http.MethodPost, base+"/chat",
		jsonBody(t, map[string]string{"message": "What should I learn next?"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	reply := decode(t, w)
	assert.Equal(t, string(advisor.StatusAnswered), reply["status"])
	assert.Equal(t, "Focus on SQL window functions next.", reply["text"])

	w = ut.PerformRequest(h.Engine, http.MethodGet, base, nil)
	assert.EqualValues(t, 2, decode(t, w)["chat_turns"])

	w = ut.PerformRequest(h.Engine, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode(t, w)
	assert.Equal(t, id, snap["session_id"])
	assert.Equal(t, false, snap["has_resume"])
	assert.EqualValues(t, 0, snap["chat_turns"])

	w = ut.PerformRequest(h.Engine, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w), "error")
}

func TestUnknownSession(t *testing.T) {
	h := newTestServer(t, Options{})
	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/sessions/nope/analyze",
		jsonBody(t, map[string]string{"text": resumeText}), jsonHeader)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartBody(t *testing.T, filename, content, role string) (*ut.Body, ut.Header) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	if role != "" {
		require.NoError(t, mw.WriteField("role", role))
	}
	require.NoError(t, mw.Close())
	return &ut.Body{Body: &buf, Len: buf.Len()}, ut.Header{Key: "Content-Type", Value: mw.FormDataContentType()}
}

func TestUploadResume(t *testing.T) {
	h := newTestServer(t, Options{})
	id := createSession(t, h)

	body, ct := multipartBody(t, "cv.txt", resumeText, "Data Analyst")
	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/sessions/"+id+"/resume", body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, "upload", out["source"])
	assert.Equal(t, "cv.txt", out["filename"])

	body, ct = multipartBody(t, "cv.docx", "binary", "")
	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/sessions/"+id+"/resume", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartBody(t, "empty.txt", "   ", "")
	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/sessions/"+id+"/resume", body, ct)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["warning"])
}

func TestValidation(t *testing.T) {
	h := newTestServer(t, Options{})
	id := createSession(t, h)

	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/sessions/"+id+"/chat",
		jsonBody(t, map[string]string{"message": ""}), jsonHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w)["error"], "message")

	raw := []byte("{not json")
	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/skills/extract",
		&ut.Body{Body: bytes.NewReader(raw), Len: len(raw)}, jsonHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/learning-plan",
		jsonBody(t, map[string]any{"skills": []string{"python"}, "months": 99}), jsonHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSkillsEndpoints(t *testing.T) {
	h := newTestServer(t, Options{})

	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/skills/extract",
		jsonBody(t, map[string]string{"text": "Python, SQL and Tableau"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.ElementsMatch(t, []any{"python", "sql", "tableau"}, decode(t, w)["skills"])

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/skills/extract",
		jsonBody(t, map[string]string{"text": ""}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["skills"])

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/skills/match",
		jsonBody(t, map[string]any{"skills": []string{"python", "sql"}, "role": "Astronaut"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code, "未知角色不是错误")

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/skills/export",
		jsonBody(t, map[string]any{"skills": []string{"python"}, "role": "Data Analyst"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "status,skill"))
	assert.Contains(t, w.Body.String(), "matched,python")
	assert.Contains(t, w.Body.String(), "missing,sql")

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/learning-plan",
		jsonBody(t, map[string]any{"skills": []string{"python"}, "role": "Data Analyst"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["missing"])

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/courses?skills=python,%20unknownskill", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.Len(t, out["courses"], 1)
	assert.Equal(t, []any{"unknownskill"}, out["no_course"])
}

func TestATSEndpoints(t *testing.T) {
	h := newTestServer(t, Options{})

	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/ats/score",
		jsonBody(t, map[string]string{"text": ""}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode(t, w)
	assert.EqualValues(t, 0, out["score"])
	assert.NotEmpty(t, out["feedback"])

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/ats/report",
		jsonBody(t, map[string]string{"text": resumeText, "role": "Data Analyst"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "priority_actions")

	tabbed := "Jane Doe\njane@example.com\nExperience\tEducation\tSkills\nPython developer since Jan 2020"
	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/ats/score",
		jsonBody(t, map[string]string{"text": tabbed, "role": "Data Analyst"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	out = decode(t, w)
	assert.Contains(t, out["feedback"], "⚠️ Avoid tables and columns. Use simple formatting.")
	assert.EqualValues(t, 80, out["components"].(map[string]any)["compatibility"])
}

func TestCatalogEndpoints(t *testing.T) {
	h := newTestServer(t, Options{})

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/roles", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["roles"], "Data Analyst")

	for _, path := range []string{"", "/salary", "/progression", "/interview"} {
		w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/roles/Data%20Analyst"+path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/roles/Astronaut", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/jobs?role=Data%20Analyst", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotZero(t, decode(t, w)["count"])

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/jobs?role=Astronaut", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["count"])
}

func TestCoverLetterEndpoints(t *testing.T) {
	h := newTestServer(t, Options{})

	w := ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/cover-letter",
		jsonBody(t, map[string]any{"name": "Jane", "role": "Data Analyst", "company": "Acme"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	letter := decode(t, w)["letter"].(map[string]any)
	assert.Contains(t, letter["text"], "Acme")

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/cover-letter",
		jsonBody(t, map[string]any{"name": "Jane"}), jsonHeader)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodPost, "/api/v1/cover-letter/analyze",
		jsonBody(t, map[string]any{"letter": "Dear Hiring Manager,\n\nI am applying.\n\nSincerely,\nJane"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["has_greeting"])

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/cover-letter/tips?role=Data%20Analyst", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["tips"])
}

func TestInterviewSimulatorFlow(t *testing.T) {
	h := newTestServer(t, Options{})
	id := createSession(t, h)
	base := "/api/v1/sessions/" + id + "/interview"

	w := ut.PerformRequest(h.Engine, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodPost, base, jsonBody(t, map[string]string{"role": "Data Analyst"}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	step := decode(t, w)
	assert.EqualValues(t, 1, step["number"])
	assert.NotEmpty(t, step["question"])

	w = ut.PerformRequest(h.Engine, http.MethodPost, base+"/answer",
		jsonBody(t, map[string]string{"answer": "I built a churn dashboard."}), jsonHeader)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["number"])

	w = ut.PerformRequest(h.Engine, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode(t, w)
	assert.Equal(t, false, summary["completed"])
	assert.Len(t, summary["items"], 1)
}

func TestHistoryAndReportsDisabled(t *testing.T) {
	h := newTestServer(t, Options{})
	id := createSession(t, h)

	w := ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/sessions/"+id+"/analyses", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/reports/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ut.PerformRequest(h.Engine, http.MethodGet, "/api/v1/reports/abc/report.csv", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
