package authclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls atomic.Int32
	fn    func() (string, error)
}

func (f *fakeRefresher) RefreshAccessToken(ctx context.Context) (string, error) {
	f.calls.Add(1)
	return f.fn()
}

// tokenServer accepts only the bearer token currently stored in valid and
// echoes the request body back.
type tokenServer struct {
	mu    sync.Mutex
	valid string
	seen  []string
}

func (s *tokenServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.seen = append(s.seen, r.Header.Get("Authorization"))
	ok := r.Header.Get("Authorization") == "Bearer "+s.valid
	s.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	body, _ := io.ReadAll(r.Body)
	_, _ = w.Write(body)
}

func (s *tokenServer) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func newTransportClient(session *Session, refresher Refresher, onReauth func(error)) *http.Client {
	return &http.Client{Transport: &Transport{
		Session:          session,
		Refresher:        refresher,
		OnReauthRequired: onReauth,
	}}
}

func TestTransport_AttachesBearer(t *testing.T) {
	srv := &tokenServer{valid: "t1"}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	session := NewSession(nil)
	require.NoError(t, session.Set(User{ID: "u1"}, "t1"))
	refresher := &fakeRefresher{fn: func() (string, error) { return "", errors.New("unexpected") }}

	resp, err := newTransportClient(session, refresher, nil).Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(0), refresher.calls.Load())
}

func TestTransport_RefreshesAndReplaysOnce(t *testing.T) {
	srv := &tokenServer{valid: "t2"}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	session := NewSession(nil)
	require.NoError(t, session.Set(User{ID: "u1"}, "t1"))
	refresher := &fakeRefresher{fn: func() (string, error) { return "t2", nil }}

	resp, err := newTransportClient(session, refresher, nil).Post(ts.URL, "text/plain", strings.NewReader("payload"))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "payload", string(body), "body must be replayed")
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.Equal(t, "t2", session.AccessToken())
	assert.Equal(t, 2, srv.attempts())
}

func TestTransport_SecondDenialIsNotRetried(t *testing.T) {
	srv := &tokenServer{valid: "never"}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	session := NewSession(nil)
	require.NoError(t, session.Set(User{ID: "u1"}, "t1"))
	refresher := &fakeRefresher{fn: func() (string, error) { return "t2", nil }}

	resp, err := newTransportClient(session, refresher, nil).Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.Equal(t, 2, srv.attempts())
}

func TestTransport_RejectedRefreshClearsSession(t *testing.T) {
	srv := &tokenServer{valid: "never"}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	session := NewSession(nil)
	require.NoError(t, session.Set(User{ID: "u1"}, "t1"))
	refresher := &fakeRefresher{fn: func() (string, error) {
		return "", &APIError{Status: http.StatusUnauthorized, Code: "INVALID_REFRESH_TOKEN"}
	}}

	var reauth atomic.Int32
	_, err := newTransportClient(session, refresher, func(error) { reauth.Add(1) }).Get(ts.URL)

	require.ErrorIs(t, err, ErrReauthRequired)
	assert.False(t, session.Authenticated())
	_, ok := session.User()
	assert.False(t, ok)
	assert.Equal(t, int32(1), reauth.Load())
	assert.Equal(t, 1, srv.attempts(), "request must not be replayed after a failed refresh")
}

func TestTransport_TransientRefreshFailureKeepsSession(t *testing.T) {
	srv := &tokenServer{valid: "never"}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	session := NewSession(nil)
	require.NoError(t, session.Set(User{ID: "u1"}, "t1"))
	refresher := &fakeRefresher{fn: func() (string, error) {
		return "", &APIError{Status: http.StatusServiceUnavailable, Code: "STORE_UNAVAILABLE"}
	}}

	var reauth atomic.Int32
	_, err := newTransportClient(session, refresher, func(error) { reauth.Add(1) }).Get(ts.URL)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrReauthRequired)
	assert.Equal(t, "t1", session.AccessToken())
	assert.Equal(t, int32(0), reauth.Load())
}

func TestTransport_ConcurrentDenialsShareOneRefresh(t *testing.T) {
	srv := &tokenServer{valid: "t2"}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	session := NewSession(nil)
	require.NoError(t, session.Set(User{ID: "u1"}, "t1"))

	release := make(chan struct{})
	refresher := &fakeRefresher{fn: func() (string, error) {
		<-release
		return "t2", nil
	}}
	client := newTransportClient(session, refresher, nil)

	const workers = 6
	var started, wg sync.WaitGroup
	started.Add(workers)
	codes := make(chan int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started.Done()
			resp, err := client.Get(ts.URL)
			if err != nil {
				codes <- 0
				return
			}
			resp.Body.Close()
			codes <- resp.StatusCode
		}()
	}
	started.Wait()
	for srv.attempts() < workers {
		time.Sleep(time.Millisecond)
	}
	close(release)
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, int32(1), refresher.calls.Load())
}

func TestTransport_NonReplayableBodyIsNotRetried(t *testing.T) {
	srv := &tokenServer{valid: "t2"}
	ts := httptest.NewServer(srv)
	defer ts.Close()

	session := NewSession(nil)
	require.NoError(t, session.Set(User{ID: "u1"}, "t1"))
	refresher := &fakeRefresher{fn: func() (string, error) { return "t2", nil }}

	req, err := http.NewRequest(http.MethodPost, ts.URL, io.NopCloser(strings.NewReader("once")))
	require.NoError(t, err)
	req.GetBody = nil

	resp, err := newTransportClient(session, refresher, nil).Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(0), refresher.calls.Load())
}
