package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:      srv.URL,
		RefreshToken: "refresh-1",
		// Generous limit so tests never stall on the limiter.
		RateLimit:      1000,
		RateLimitBurst: 1000,
	})
	require.NoError(t, err)
	return srv, client
}

func sessionHandler(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Path != "/sessions" {
		return false
	}
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	if body.RefreshToken != "refresh-1" {
		w.WriteHeader(http.StatusForbidden)
		return true
	}
	json.NewEncoder(w).Encode(map[string]string{
		"access_token": "access-1",
		"user_id":      "user-1",
	})
	return true
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{RefreshToken: "x"})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "https://api.test"})
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "https://api.test", RefreshToken: "x"})
	assert.NoError(t, err)
}

func TestRefreshAccessTokenAndUserID(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if sessionHandler(w, r) {
			return
		}
		http.NotFound(w, r)
	})

	uid, err := client.UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "user-1", uid)
}

func TestGetSendsAuthAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if sessionHandler(w, r) {
			return
		}
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-Id")
		fmt.Fprint(w, `{"ok":true}`)
	})

	resp, err := client.Get(context.Background(), "/ping", nil)
	require.NoError(t, err)

	var payload struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, resp.JSON(&payload))
	assert.True(t, payload.OK)
	assert.Equal(t, "Bearer access-1", gotAuth)
	assert.NotEmpty(t, gotRequestID)
}

func TestGetPassesQueryParams(t *testing.T) {
	var gotQuery url.Values
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if sessionHandler(w, r) {
			return
		}
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{}`)
	})

	_, err := client.Get(context.Background(), "/things", url.Values{"view": []string{"extended"}})
	require.NoError(t, err)
	assert.Equal(t, "extended", gotQuery.Get("view"))
}

func TestUnauthorizedTriggersOneRefreshAndReplay(t *testing.T) {
	var sessions, pings atomic.Int32
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/sessions" {
			sessions.Add(1)
			json.NewEncoder(w).Encode(map[string]string{
				"access_token": fmt.Sprintf("access-%d", sessions.Load()),
				"user_id":      "user-1",
			})
			return
		}
		pings.Add(1)
		// The token from the first session is treated as expired.
		if r.Header.Get("Authorization") == "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{}`)
	})

	_, err := client.Get(context.Background(), "/ping", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), sessions.Load())
	assert.Equal(t, int32(2), pings.Load())
}

func TestErrorStatusBecomesHTTPError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if sessionHandler(w, r) {
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream agent unreachable")
	})

	_, err := client.Get(context.Background(), "/things", nil)
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
	assert.Equal(t, "/things", httpErr.Path)
	assert.Contains(t, httpErr.Body, "unreachable")
}

func TestResponseJSONDecodeError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if sessionHandler(w, r) {
			return
		}
		fmt.Fprint(w, "<html>not json</html>")
	})

	resp, err := client.Get(context.Background(), "/things", nil)
	require.NoError(t, err)

	var payload map[string]interface{}
	err = resp.JSON(&payload)
	require.Error(t, err)
	var httpErr *HTTPError
	assert.ErrorAs(t, err, &httpErr)
}

func TestStreamYieldsLines(t *testing.T) {
	var gotBody map[string]interface{}
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if sessionHandler(w, r) {
			return
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		fmt.Fprint(w, "{\"a\":1}\n{\"b\":2}\n")
	})

	stream, err := client.Stream(context.Background(), "/query", map[string]int{"interval": 60})
	require.NoError(t, err)
	defer stream.Close()

	line, err := stream.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, line)

	line, err = stream.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, line)

	_, err = stream.Next()
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, float64(60), gotBody["interval"])
}

func TestStreamErrorStatus(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if sessionHandler(w, r) {
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":"bad query"}`)
	})

	_, err := client.Stream(context.Background(), "/query", nil)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnprocessableEntity, httpErr.StatusCode)
}

func TestMetricsRecorded(t *testing.T) {
	registry := prometheus.NewRegistry()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sessionHandler(w, r) {
			return
		}
		fmt.Fprint(w, `{}`)
	}))
	t.Cleanup(srv.Close)

	client, err := New(Config{
		BaseURL:      srv.URL,
		RefreshToken: "refresh-1",
		Registerer:   registry,
	})
	require.NoError(t, err)

	_, err = client.Get(context.Background(), "/things", nil)
	require.NoError(t, err)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["atlas_client_requests_total"])
	assert.True(t, names["atlas_client_request_duration_seconds"])
}
