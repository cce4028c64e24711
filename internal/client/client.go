// Package client is the Go reference client for the playlog ingestion API. A Client
// makes release-signed calls; LogSession returns a Session that queues events and
// sends them in batches signed with the session key.
package client

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"playlog/backend/internal/apperr"
	"playlog/backend/internal/protocol"
)

// DefaultRevisionID is sent as library_revid when no other revision is configured.
const DefaultRevisionID = "playlog-go"

// clientTimeLayout matches JavaScript's Date.toISOString.
const clientTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// maxResponseBytes bounds a decoded response body.
const maxResponseBytes = 1 << 20

// Client talks to one server on behalf of one release.
type Client struct {
	baseURL    string
	releaseID  string
	releaseKey []byte
	revisionID string
	http       *http.Client
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRevisionID sets the library_revid reported with sessions.
func WithRevisionID(rev string) Option {
	return func(c *Client) { c.revisionID = rev }
}

// New returns a Client for baseURL (e.g. http://localhost:8080). releaseID must be a
// uuid and releaseKey the release's key bytes.
func New(baseURL, releaseID string, releaseKey []byte, opts ...Option) (*Client, error) {
	id, err := uuid.Parse(releaseID)
	if err != nil {
		return nil, apperr.Validation("release id is not a uuid", "release_id")
	}
	if len(releaseKey) == 0 {
		return nil, apperr.Validation("release key is empty", "release_key")
	}
	if baseURL == "" {
		return nil, apperr.Validation("base url is empty", "base_url")
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		releaseID:  id.String(),
		releaseKey: bytes.Clone(releaseKey),
		revisionID: DefaultRevisionID,
		http:       &http.Client{Timeout: 30 * time.Second, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// QueryUserID returns the stable id of username, creating the user on first use.
func (c *Client) QueryUserID(ctx context.Context, username string) (string, error) {
	var out struct {
		UserID string `json:"user_id"`
	}
	if err := c.callRelease(ctx, "/api/user", map[string]any{"username": username}, &out); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// QueryExperimentalCondition returns the condition userID is assigned in experimentID.
func (c *Client) QueryExperimentalCondition(ctx context.Context, userID, experimentID string) (int, error) {
	if err := requireUUIDs(map[string]string{"user_id": userID, "experiment_id": experimentID}); err != nil {
		return 0, err
	}
	var out struct {
		Condition int `json:"condition"`
	}
	payload := map[string]any{"user_id": userID, "experiment_id": experimentID}
	if err := c.callRelease(ctx, "/api/experiment", payload, &out); err != nil {
		return 0, err
	}
	return out.Condition, nil
}

// QueryUserData returns the save data of userID, or nil when none was saved.
func (c *Client) QueryUserData(ctx context.Context, userID string) (*string, error) {
	if err := requireUUIDs(map[string]string{"user_id": userID}); err != nil {
		return nil, err
	}
	var out struct {
		SaveData *string `json:"savedata"`
	}
	if err := c.callRelease(ctx, "/api/user/get_data", map[string]any{"id": userID}, &out); err != nil {
		return nil, err
	}
	return out.SaveData, nil
}

// SaveUserData stores savedata, JSON-encoded, as the save data of userID.
func (c *Client) SaveUserData(ctx context.Context, userID string, savedata any) error {
	if err := requireUUIDs(map[string]string{"user_id": userID}); err != nil {
		return err
	}
	text, err := stringify(savedata)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "savedata is not JSON encodable", err)
	}
	return c.callRelease(ctx, "/api/user/set_data", map[string]any{"id": userID, "savedata": text}, nil)
}

// LogSession starts a session for userID and returns it. detail is JSON-encoded.
func (c *Client) LogSession(ctx context.Context, userID string, detail any) (*Session, error) {
	if err := requireUUIDs(map[string]string{"user_id": userID}); err != nil {
		return nil, err
	}
	text, err := stringify(detail)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "session detail is not JSON encodable", err)
	}
	payload := map[string]any{
		"user_id":       userID,
		"release_id":    c.releaseID,
		"client_time":   c.now().UTC().Format(clientTimeLayout),
		"detail":        text,
		"library_revid": c.revisionID,
	}
	var out struct {
		SessionID  string `json:"session_id"`
		SessionKey string `json:"session_key"`
	}
	if err := c.callRelease(ctx, "/api/session", payload, &out); err != nil {
		return nil, err
	}
	key, err := hex.DecodeString(out.SessionKey)
	if err != nil || len(key) == 0 {
		return nil, fmt.Errorf("client: server returned an unusable session key")
	}
	return newSession(c, out.SessionID, key), nil
}

func (c *Client) callRelease(ctx context.Context, path string, payload, out any) error {
	env, err := protocol.Encode(payload, protocol.BindRelease, c.releaseID, c.releaseKey)
	if err != nil {
		return err
	}
	return c.post(ctx, path, env, out)
}

func (c *Client) post(ctx context.Context, path string, env *protocol.Envelope, out any) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("client: encode envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("client: %s: read response: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return responseError(path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: %s: decode response: %w", path, err)
	}
	return nil
}

// responseError turns a failure body into an *apperr.Error so callers can match it with
// errors.Is against the apperr sentinels.
func responseError(path string, status int, raw []byte) error {
	var body struct {
		Error   string   `json:"error"`
		Message string   `json:"message"`
		Fields  []string `json:"fields"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return fmt.Errorf("client: %s: unexpected status %d", path, status)
	}
	return &apperr.Error{Kind: apperr.Kind(body.Error), Message: body.Message, Fields: body.Fields}
}

func requireUUIDs(ids map[string]string) error {
	var bad []string
	for field, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			bad = append(bad, field)
		}
	}
	if len(bad) > 0 {
		slices.Sort(bad)
		return apperr.Validation("not a uuid", bad...)
	}
	return nil
}

// stringify JSON-encodes v the way clients send detail and save data: as a string.
func stringify(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
