package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(req)
}

func TestNew_SetsHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	resp, err := New(Options{BaseURL: srv.URL, Token: "abc", Timeout: time.Second}).R().Get("/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode())
	assert.Equal(t, "Bearer abc", got.Get("Authorization"))
	assert.Equal(t, userAgent, got.Get("User-Agent"))
	assert.Equal(t, "application/json", got.Get("Accept"))
}

func TestNew_AnonymousSendsNoAuthorization(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer srv.Close()

	tr := &countingTransport{}
	_, err := New(Options{BaseURL: srv.URL, Transport: tr}).R().Get("/")
	require.NoError(t, err)
	assert.Empty(t, got.Get("Authorization"))
	assert.Equal(t, 1, tr.calls, "custom transport is used")
}

func TestNew_ClientsAreIndependent(t *testing.T) {
	a := New(Options{BaseURL: "http://a.test", Token: "a"})
	b := New(Options{BaseURL: "http://b.test"})
	assert.NotSame(t, a, b)
	assert.Equal(t, "http://a.test", a.BaseURL)
	assert.Empty(t, b.Header.Get("Authorization"))
}
