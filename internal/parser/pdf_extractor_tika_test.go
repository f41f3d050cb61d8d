package parser

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTika 模拟 Tika Server 的 /tika 和 /meta 接口
func fakeTika(t *testing.T, text string, textStatus int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/pdf", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "%PDF-fake", string(body))

		switch r.URL.Path {
		case "/tika":
			assert.Equal(t, "resume.pdf", r.Header.Get("X-Tika-Resource-Name"))
			w.WriteHeader(textStatus)
			_, _ = w.Write([]byte(text))
		case "/meta":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"xmpTPg:NPages":"2","dc:title":"CV","X-Parsed-By":"org.apache.tika.parser.pdf.PDFParser"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewTikaPDFExtractor(t *testing.T) {
	_, err := NewTikaPDFExtractor("")
	require.Error(t, err)

	e, err := NewTikaPDFExtractor("http://localhost:9998/", WithTikaTimeout(5*time.Second), WithMetadataMode("bogus"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9998", e.serverURL)
	assert.Equal(t, 5*time.Second, e.timeout)
	assert.Equal(t, MetadataMinimal, e.mode)
}

func TestTikaExtractText(t *testing.T) {
	srv := fakeTika(t, "Jane Doe\nPython developer", http.StatusOK)

	t.Run("minimal metadata", func(t *testing.T) {
		e, err := NewTikaPDFExtractor(srv.URL)
		require.NoError(t, err)

		text, meta, err := e.ExtractTextFromBytes(context.Background(), []byte("%PDF-fake"), "resume.pdf", map[string]any{"original_filename": "resume.pdf"})
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe\nPython developer", text)
		assert.Equal(t, "resume.pdf", meta["original_filename"])
		assert.Equal(t, "2", meta["xmpTPg:NPages"])
		assert.Equal(t, "CV", meta["dc:title"])
		assert.NotContains(t, meta, "X-Parsed-By")
	})

	t.Run("full metadata", func(t *testing.T) {
		e, err := NewTikaPDFExtractor(srv.URL, WithMetadataMode(MetadataFull))
		require.NoError(t, err)

		_, meta, err := e.ExtractTextFromBytes(context.Background(), []byte("%PDF-fake"), "resume.pdf", nil)
		require.NoError(t, err)
		assert.Contains(t, meta, "X-Parsed-By")
	})

	t.Run("no metadata", func(t *testing.T) {
		e, err := NewTikaPDFExtractor(srv.URL, WithMetadataMode(MetadataNone))
		require.NoError(t, err)

		_, meta, err := e.ExtractTextFromBytes(context.Background(), []byte("%PDF-fake"), "resume.pdf", nil)
		require.NoError(t, err)
		assert.NotContains(t, meta, "dc:title")
		assert.Contains(t, meta, "text_length")
	})
}

func TestTikaErrors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := fakeTika(t, "boom", http.StatusUnprocessableEntity)
		e, err := NewTikaPDFExtractor(srv.URL)
		require.NoError(t, err)

		_, _, err = e.ExtractTextFromBytes(context.Background(), []byte("%PDF-fake"), "resume.pdf", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "422")
	})

	t.Run("blank text", func(t *testing.T) {
		srv := fakeTika(t, "  \n ", http.StatusOK)
		e, err := NewTikaPDFExtractor(srv.URL)
		require.NoError(t, err)

		_, _, err = e.ExtractTextFromBytes(context.Background(), []byte("%PDF-fake"), "resume.pdf", nil)
		assert.True(t, errors.Is(err, ErrEmptyDocument))
	})
}

func TestTextFromUploadWithTika(t *testing.T) {
	srv := fakeTika(t, "Python   SQL\n\n\n\nTableau", http.StatusOK)
	e, err := NewTikaPDFExtractor(srv.URL)
	require.NoError(t, err)

	doc, err := TextFromUpload(context.Background(), e, "resume.pdf", []byte("%PDF-fake"))
	require.NoError(t, err)
	assert.Empty(t, doc.Warning)
	assert.Contains(t, doc.Text, "Tableau")

	blank := fakeTika(t, "", http.StatusOK)
	e, err = NewTikaPDFExtractor(blank.URL)
	require.NoError(t, err)

	doc, err = TextFromUpload(context.Background(), e, "resume.pdf", []byte("%PDF-fake"))
	require.NoError(t, err)
	assert.Equal(t, WarningNoText, doc.Warning)
	assert.Empty(t, doc.Text)
}
