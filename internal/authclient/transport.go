package authclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/singleflight"

	"github.com/AlibekovAA/taskflow/backend/internal/common/logger"
)

// Refresher exchanges the refresh cookie for a new access token. It must not
// go through Transport itself.
type Refresher interface {
	RefreshAccessToken(ctx context.Context) (string, error)
}

type Transport struct {
	Base      http.RoundTripper
	Session   *Session
	Refresher Refresher
	// OnReauthRequired runs once per rejected refresh, after the session has
	// been cleared.
	OnReauthRequired func(error)
	Log              *logger.Logger

	group singleflight.Group
}

// retryableRequest carries the attempt counter for one logical call so that
// retries never depend on state shared between requests.
type retryableRequest struct {
	req     *http.Request
	attempt int
}

func (rr *retryableRequest) replayable() bool {
	body := rr.req.Body
	return body == nil || body == http.NoBody || rr.req.GetBody != nil
}

func (rr *retryableRequest) build(accessToken string) (*http.Request, error) {
	out := rr.req.Clone(rr.req.Context())
	if rr.attempt > 0 && rr.req.GetBody != nil {
		body, err := rr.req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		out.Body = body
	}
	if accessToken != "" {
		out.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return out, nil
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.send(&retryableRequest{req: req})
}

func (t *Transport) send(rr *retryableRequest) (*http.Response, error) {
	token := t.Session.AccessToken()

	out, err := rr.build(token)
	if err != nil {
		return nil, err
	}

	resp, err := t.base().RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if rr.attempt > 0 || !rr.replayable() {
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	rr.attempt++

	if err := t.refresh(rr.req.Context(), token); err != nil {
		return nil, err
	}
	return t.send(rr)
}

// refresh obtains a token newer than stale. Concurrent callers that saw the
// same stale token share one call to the Refresher.
func (t *Transport) refresh(ctx context.Context, stale string) error {
	if current := t.Session.AccessToken(); current != "" && current != stale {
		return nil
	}

	_, err, _ := t.group.Do("refresh", func() (any, error) {
		if current := t.Session.AccessToken(); current != "" && current != stale {
			return nil, nil
		}

		accessToken, err := t.Refresher.RefreshAccessToken(context.WithoutCancel(ctx))
		if err != nil {
			if !errors.Is(err, ErrUnauthorized) {
				t.logf("access token refresh failed: %v", err)
				return nil, fmt.Errorf("refresh access token: %w", err)
			}

			t.logf("refresh rejected, clearing session: %v", err)
			if clearErr := t.Session.Clear(); clearErr != nil {
				t.logf("failed to clear session: %v", clearErr)
			}
			if t.OnReauthRequired != nil {
				t.OnReauthRequired(err)
			}
			return nil, fmt.Errorf("%w: %v", ErrReauthRequired, err)
		}

		if err := t.Session.UpdateAccessToken(accessToken); err != nil {
			t.logf("failed to persist refreshed access token: %v", err)
		}
		return nil, nil
	})
	return err
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) logf(format string, args ...any) {
	if t.Log != nil {
		t.Log.Warnf(format, args...)
	}
}
