package docuseal

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tlsClient(srv *httptest.Server) *Client {
	c := NewClient("")
	c.http = srv.Client()
	return c
}

func TestDownloadDocument(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/file/signed.pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7 signed"))
	}))
	defer srv.Close()

	body, err := tlsClient(srv).DownloadDocument(context.Background(), srv.URL+"/file/signed.pdf")

	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 signed"), body)
}

func TestDownloadDocumentSendsAPIToken(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ds-key", r.Header.Get("X-Auth-Token"))
		_, _ = w.Write([]byte("%PDF-1.7 signed"))
	}))
	defer srv.Close()

	c := NewClient("ds-key")
	c.http = srv.Client()
	_, err := c.DownloadDocument(context.Background(), srv.URL+"/file/signed.pdf")

	require.NoError(t, err)
}

func TestDownloadDocumentWithoutTokenSendsNoHeader(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Auth-Token"]
		assert.False(t, present)
		_, _ = w.Write([]byte("%PDF-1.7 signed"))
	}))
	defer srv.Close()

	_, err := tlsClient(srv).DownloadDocument(context.Background(), srv.URL+"/file/signed.pdf")

	require.NoError(t, err)
}

func TestDownloadDocumentRejectsPlainHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("plain http must not be fetched")
	}))
	defer srv.Close()

	_, err := NewClient("").DownloadDocument(context.Background(), srv.URL+"/x.pdf")
	assert.ErrorIs(t, err, ErrInsecureURL)

	_, err = NewClient("").DownloadDocument(context.Background(), "file:///etc/passwd")
	assert.ErrorIs(t, err, ErrInsecureURL)
}

func TestDownloadDocumentStatusError(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := tlsClient(srv).DownloadDocument(context.Background(), srv.URL+"/expired.pdf")

	assert.ErrorContains(t, err, "status 403")
}

func TestDownloadDocumentTooLarge(t *testing.T) {
	chunk := bytes.Repeat([]byte("a"), 1<<20)
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i <= MaxDocumentSize>>20; i++ {
			if _, err := w.Write(chunk); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	_, err := tlsClient(srv).DownloadDocument(context.Background(), srv.URL+"/huge.pdf")

	assert.ErrorIs(t, err, ErrDocumentTooLarge)
}
