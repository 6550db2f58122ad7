package turnstile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient("0x4AAA-secret")
	c.verifyURL = srv.URL
	return c
}

func TestVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "0x4AAA-secret", r.PostForm.Get("secret"))
		assert.Equal(t, "tok", r.PostForm.Get("response"))
		assert.Equal(t, "203.0.113.9", r.PostForm.Get("remoteip"))
		_, _ = w.Write([]byte(`{"success": true, "hostname": "toitureai.fr"}`))
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).Verify(context.Background(), "tok", "203.0.113.9")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).Verify(context.Background(), "bad", "")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyUpstreamFailureFailsClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).Verify(context.Background(), "tok", "")

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestVerifyMissingToken(t *testing.T) {
	ok, err := NewClient("secret").Verify(context.Background(), "  ", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyWithoutSecretAcceptsAll(t *testing.T) {
	ok, err := NewClient("").Verify(context.Background(), "", "")
	require.NoError(t, err)
	assert.True(t, ok)
}
