package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/assesshub/backend/config"
)

const (
	startArchiveAttempts = 3
	defaultBackoffUnit   = time.Second
)

// Client implements Gateway over the provider's REST API.
type Client struct {
	apiKey     string
	secret     string
	baseURL    string
	tokenTTL   time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	// backoffUnit scales the linear retry delay (attempt * backoffUnit);
	// tests shrink it.
	backoffUnit time.Duration

	// The provider rejects concurrent archive mutations from the same
	// credential, so start/stop hold this for the whole call.
	archiveMu sync.Mutex
}

// NewClient creates a provider client from configuration.
func NewClient(cfg config.VideoConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("video: api key and secret required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := time.Duration(cfg.TokenTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Client{
		apiKey:      cfg.APIKey,
		secret:      cfg.APISecret,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		tokenTTL:    ttl,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		backoffUnit: defaultBackoffUnit,
	}, nil
}

// AppID returns the provider project id, handed to clients alongside tokens.
func (c *Client) AppID() string { return c.apiKey }

// CreateSession creates a routed session with manual archiving.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("mediaMode", "routed")
	form.Set("archiveMode", "manual")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session/create", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("video: create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var sessions []struct {
		SessionID string `json:"session_id"`
	}
	if err := c.do(req, &sessions); err != nil {
		return "", fmt.Errorf("video: create session: %w", err)
	}
	if len(sessions) == 0 || sessions[0].SessionID == "" {
		return "", fmt.Errorf("video: create session: empty response")
	}
	return sessions[0].SessionID, nil
}

// StartArchive starts recording the session. On a conflict (an archive is
// already active for this session) it adopts the running archive instead of
// erroring; transient failures are retried up to 3 attempts with linear
// backoff.
func (c *Client) StartArchive(ctx context.Context, sessionID string) (*Archive, error) {
	c.archiveMu.Lock()
	defer c.archiveMu.Unlock()

	body, _ := json.Marshal(map[string]string{
		"sessionId":  sessionID,
		"outputMode": "composed",
		"resolution": "1280x720",
	})

	var lastErr error
	for attempt := 1; attempt <= startArchiveAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.projectURL("/archive"), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("video: start archive request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		var archive Archive
		err = c.do(req, &archive)
		if err == nil {
			return &archive, nil
		}
		lastErr = err

		if isConflict(err) {
			existing, listErr := c.listArchivesLocked(ctx, sessionID)
			if listErr == nil {
				for i := range existing {
					if existing[i].Status == ArchiveStatusStarted {
						c.logger.Info("adopting already-active archive",
							zap.String("archive_id", existing[i].ID),
							zap.String("session_id", sessionID))
						return &existing[i], nil
					}
				}
			}
		}

		if attempt < startArchiveAttempts {
			select {
			case <-time.After(time.Duration(attempt) * c.backoffUnit):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return nil, fmt.Errorf("video: start archive failed after %d attempts: %w", startArchiveAttempts, lastErr)
}

// StopArchive stops a running archive.
func (c *Client) StopArchive(ctx context.Context, archiveID string) error {
	c.archiveMu.Lock()
	defer c.archiveMu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.projectURL("/archive/"+archiveID+"/stop"), nil)
	if err != nil {
		return fmt.Errorf("video: stop archive request: %w", err)
	}
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("video: stop archive: %w", err)
	}
	return nil
}

// GetArchive fetches one archive by id.
func (c *Client) GetArchive(ctx context.Context, archiveID string) (*Archive, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.projectURL("/archive/"+archiveID), nil)
	if err != nil {
		return nil, fmt.Errorf("video: get archive request: %w", err)
	}
	var archive Archive
	if err := c.do(req, &archive); err != nil {
		return nil, fmt.Errorf("video: get archive: %w", err)
	}
	return &archive, nil
}

// ListArchives lists archives for a session.
func (c *Client) ListArchives(ctx context.Context, sessionID string) ([]Archive, error) {
	return c.listArchivesLocked(ctx, sessionID)
}

func (c *Client) listArchivesLocked(ctx context.Context, sessionID string) ([]Archive, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.projectURL("/archive?sessionId="+url.QueryEscape(sessionID)), nil)
	if err != nil {
		return nil, fmt.Errorf("video: list archives request: %w", err)
	}
	var out struct {
		Count int       `json:"count"`
		Items []Archive `json:"items"`
	}
	if err := c.do(req, &out); err != nil {
		return nil, fmt.Errorf("video: list archives: %w", err)
	}
	return out.Items, nil
}

// SignalHostDisconnect broadcasts a hostDisconnected signal to the session.
func (c *Client) SignalHostDisconnect(ctx context.Context, sessionID string) error {
	body, _ := json.Marshal(map[string]string{
		"type": "hostDisconnected",
		"data": "The host has ended the session",
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.projectURL("/session/"+sessionID+"/signal"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("video: signal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("video: signal host disconnect: %w", err)
	}
	return nil
}

func (c *Client) projectURL(path string) string {
	return c.baseURL + "/v2/project/" + c.apiKey + path
}

// statusError carries the provider HTTP status for classification; response
// bodies never leave this package.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("provider returned status %d", e.status)
}

func isConflict(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusConflict
}

func (c *Client) do(req *http.Request, out interface{}) error {
	token, err := c.apiToken()
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("X-OPENTOK-AUTH", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return &statusError{status: resp.StatusCode}
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
