package httpprovider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/specialistvlad/promptgridgo/internal/runerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	// Arrange
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Method", r.Method)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"echo":%q,"auth":%q}`, string(body), r.Header.Get("Authorization"))
	}))
	defer srv.Close()
	c := NewClient()

	// Act
	resp, err := c.Fetch(context.Background(), Request{
		Method:  http.MethodPost,
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer x"},
		Body:    []byte("hi"),
	})

	// Assert
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, "Created", resp.StatusText)
	assert.Equal(t, "POST", resp.Headers["x-method"])
	assert.JSONEq(t, `{"echo":"hi","auth":"Bearer x"}`, string(resp.Body))
}

func TestClient_FetchNon2xxIsNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := NewClient().Fetch(context.Background(), Request{URL: srv.URL})

	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, 404, resp.Status)
}

func TestClient_StreamEvents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: token\ndata: he\n\n: comment\ndata: llo\nid: 2\n\n")
	}))
	defer srv.Close()

	seq, err := NewClient().StreamEvents(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)

	var got []StreamEvent
	for ev, err := range seq {
		require.NoError(t, err)
		got = append(got, ev)
	}

	assert.Equal(t, []StreamEvent{
		{Event: "token", Data: "he"},
		{Data: "llo", ID: "2"},
	}, got)
}

func TestClient_WithoutStreaming(t *testing.T) {
	c := NewClient(WithoutStreaming())

	assert.False(t, c.SupportsStreaming())
	_, err := c.StreamEvents(context.Background(), Request{URL: "http://unused"})
	assert.ErrorIs(t, err, runerr.ErrUnsupportedCapability)
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	c := NewClient(WithRateLimit(0.001, 1))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := c.Fetch(context.Background(), Request{URL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Fetch(ctx, Request{URL: srv.URL})
	assert.Error(t, err)
}

func TestParseEvents_MultilineData(t *testing.T) {
	var got []string
	for ev, err := range ParseEvents(strings.NewReader("data: a\ndata: b\n\ndata: c")) {
		require.NoError(t, err)
		got = append(got, ev.Data)
	}
	assert.Equal(t, []string{"a\nb", "c"}, got)
}
