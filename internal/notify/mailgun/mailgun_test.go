package mailgun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/GymTrack/pkg/httpclient"
	"github.com/utafrali/GymTrack/pkg/logger"
)

type received struct {
	path, user, pass     string
	from, to, subj, text string
}

func newMailgunServer(t *testing.T, status int) (*httptest.Server, func() received) {
	t.Helper()
	var (
		mu  sync.Mutex
		got received
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		user, pass, _ := r.BasicAuth()

		mu.Lock()
		got = received{
			path: r.URL.Path, user: user, pass: pass,
			from: r.FormValue("from"), to: r.FormValue("to"),
			subj: r.FormValue("subject"), text: r.FormValue("text"),
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":      "<20240102.1@mg.gymtrack.test>",
			"message": "Queued. Thank you.",
		})
	}))
	t.Cleanup(srv.Close)
	return srv, func() received {
		mu.Lock()
		defer mu.Unlock()
		return got
	}
}

func newTestSender(srv *httptest.Server) *Sender {
	return New(Config{
		Domain:     "mg.gymtrack.test",
		APIKey:     "key-test",
		APIBase:    srv.URL + "/v3",
		From:       "GymTrack <noreply@gymtrack.test>",
		HTTPClient: httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxConnsPerHost: 2}),
	}, logger.Discard())
}

func TestSender_Send(t *testing.T) {
	srv, got := newMailgunServer(t, http.StatusOK)
	s := newTestSender(srv)

	err := s.Send(context.Background(), "ada@example.com", "Verify your email", "https://x/verify?token=t")
	require.NoError(t, err)

	r := got()
	assert.True(t, strings.HasSuffix(r.path, "/mg.gymtrack.test/messages"), "path %q", r.path)
	assert.Equal(t, "api", r.user)
	assert.Equal(t, "key-test", r.pass)
	assert.Equal(t, "GymTrack <noreply@gymtrack.test>", r.from)
	assert.Equal(t, "ada@example.com", r.to)
	assert.Equal(t, "Verify your email", r.subj)
	assert.Equal(t, "https://x/verify?token=t", r.text)
	assert.Equal(t, "mailgun", s.Name())
}

func TestSender_Send_APIError(t *testing.T) {
	srv, _ := newMailgunServer(t, http.StatusBadRequest)
	s := newTestSender(srv)

	err := s.Send(context.Background(), "ada@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailgun send")
}
