// Package dbservice is the REST client for the backend database API. It
// classifies failures, retries transient ones with exponential backoff,
// and unwraps the service's JSON response envelope.
package dbservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RetryConfig controls the backoff applied to retryable failures.
type RetryConfig struct {
	Attempts int           // max attempts (1 = no retry)
	MinDelay time.Duration // initial delay
	MaxDelay time.Duration // delay cap
	Jitter   float64       // ±N fraction of the computed delay
}

// DefaultRetryConfig matches the deployed service's tolerance: three
// attempts, one second initial delay, ten second cap.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 3,
		MinDelay: time.Second,
		MaxDelay: 10 * time.Second,
		Jitter:   0.1,
	}
}

// Client calls the database service. Construct with New and pass by
// reference; it is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	retry      RetryConfig
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the logger used for request/response logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryConfig overrides the retry behavior.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) {
		if cfg.Attempts > 0 {
			c.retry = cfg
		}
	}
}

// New creates a database service client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("dbservice: base url is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
		retry:      DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the service's JSON response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// request performs one API call with retries, returning the unwrapped
// data field. A nil out discards the data.
func (c *Client) request(ctx context.Context, method, endpoint, databaseID string, params url.Values, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("dbservice: marshal request: %w", err)
		}
	}

	fullURL := c.baseURL + endpoint
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.retry.Attempts; attempt++ {
		data, err := c.doOnce(ctx, method, fullURL, databaseID, body)
		if err == nil {
			if out == nil || len(data) == 0 {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("dbservice: decode %s response: %w", endpoint, err)
			}
			return nil
		}
		lastErr = err

		if !isRetryable(err) || attempt == c.retry.Attempts {
			return err
		}
		delay := c.backoffDelay(attempt)
		c.logger.Debug("dbservice retry",
			"method", method, "endpoint", endpoint,
			"attempt", attempt, "max_attempts", c.retry.Attempts,
			"delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

// doOnce performs a single HTTP exchange and unwraps the envelope.
func (c *Client) doOnce(ctx context.Context, method, fullURL, databaseID string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("dbservice: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if databaseID != "" {
		req.Header.Set("x-databaseid", databaseID)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		errType := ErrNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			errType = ErrTimeout
		}
		c.logger.Error("dbservice request failed",
			"method", method, "url", fullURL,
			"error_type", string(errType), "duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, &Error{Type: errType, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		svcErr := newStatusError(resp.StatusCode, strings.TrimSpace(string(raw)))
		c.logger.Error("dbservice error response",
			"method", method, "url", fullURL,
			"status", resp.StatusCode, "error_type", string(svcErr.Type),
			"duration_ms", duration.Milliseconds())
		return nil, svcErr
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("dbservice: decode envelope: %w", err)
	}
	c.logger.Debug("dbservice response",
		"method", method, "url", fullURL,
		"status", resp.StatusCode, "duration_ms", duration.Milliseconds())
	return env.Data, nil
}

// backoffDelay computes the exponential backoff with jitter for the
// given failed attempt (1-based).
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := float64(c.retry.MinDelay) * math.Pow(2, float64(attempt-1))
	if time.Duration(delay) > c.retry.MaxDelay {
		delay = float64(c.retry.MaxDelay)
	}
	if c.retry.Jitter > 0 {
		delay += (rand.Float64()*2 - 1) * delay * c.retry.Jitter
	}
	if delay < 0 {
		delay = float64(c.retry.MinDelay)
	}
	return time.Duration(delay)
}

// Document is a schemaless record returned by the service.
type Document = map[string]any

// GetPrompts fetches a prompt document. Prompts live in the shared
// "main" database.
func (c *Client) GetPrompts(ctx context.Context, promptID string) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodGet, "/api/prompts/"+url.PathEscape(promptID), "main", nil, nil, &out)
	return out, err
}

// GetAvatar fetches an avatar document from the playground database.
func (c *Client) GetAvatar(ctx context.Context, avatarID string) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodGet, "/api/avatar/"+url.PathEscape(avatarID), "playground", nil, nil, &out)
	return out, err
}

// GetStudyLogos fetches the study logo documents.
func (c *Client) GetStudyLogos(ctx context.Context, databaseID string) ([]Document, error) {
	var out []Document
	err := c.request(ctx, http.MethodGet, "/api/preferences/logos", databaseID, nil, nil, &out)
	return out, err
}

// GetStudyData fetches a study document.
func (c *Client) GetStudyData(ctx context.Context, databaseID, studyID string) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodGet, "/api/study/"+url.PathEscape(studyID), databaseID, nil, nil, &out)
	return out, err
}

// UpdateStudyData patches a study document.
func (c *Client) UpdateStudyData(ctx context.Context, databaseID, studyID string, data Document) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodPatch, "/api/study/"+url.PathEscape(studyID), databaseID, nil, data, &out)
	return out, err
}

// GetGuides fetches study guides, optionally filtered by task and
// version.
func (c *Client) GetGuides(ctx context.Context, databaseID, studyID, taskID, version string) ([]Document, error) {
	params := url.Values{}
	if taskID != "" {
		params.Set("taskId", taskID)
	}
	if version != "" {
		params.Set("version", version)
	}
	var out []Document
	err := c.request(ctx, http.MethodGet, "/api/study/"+url.PathEscape(studyID)+"/guides", databaseID, params, nil, &out)
	return out, err
}

// GetLatestGuides fetches the latest guide set. The service returns an
// object keyed by task unless asArray is set.
func (c *Client) GetLatestGuides(ctx context.Context, databaseID, studyID string, asArray bool) (json.RawMessage, error) {
	params := url.Values{"asArray": {strconv.FormatBool(asArray)}}
	var out json.RawMessage
	err := c.request(ctx, http.MethodGet, "/api/study/"+url.PathEscape(studyID)+"/latestGuides", databaseID, params, nil, &out)
	return out, err
}

// GetParticipantData fetches a participant document.
func (c *Client) GetParticipantData(ctx context.Context, databaseID, studyID, participantID string) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodGet, participantPath(studyID, participantID), databaseID, nil, nil, &out)
	return out, err
}

// UpsertParticipantData patches (or creates) a participant document.
func (c *Client) UpsertParticipantData(ctx context.Context, databaseID, studyID, participantID string, data Document) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodPatch, participantPath(studyID, participantID), databaseID, nil, data, &out)
	return out, err
}

// GetSessionData fetches a session document.
func (c *Client) GetSessionData(ctx context.Context, databaseID, studyID, participantID, sessionID string) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodGet, sessionPath(studyID, participantID, sessionID), databaseID, nil, nil, &out)
	return out, err
}

// UpdateSessionData patches a session document.
func (c *Client) UpdateSessionData(ctx context.Context, databaseID, studyID, participantID, sessionID string, data Document) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodPatch, sessionPath(studyID, participantID, sessionID), databaseID, nil, data, &out)
	return out, err
}

// GetLatestSessionID fetches the most recent session id.
func (c *Client) GetLatestSessionID(ctx context.Context, databaseID string) (string, error) {
	var out string
	err := c.request(ctx, http.MethodGet, "/api/study/latestSession", databaseID, nil, nil, &out)
	return out, err
}

func participantPath(studyID, participantID string) string {
	return "/api/study/" + url.PathEscape(studyID) + "/participants/" + url.PathEscape(participantID)
}

func sessionPath(studyID, participantID, sessionID string) string {
	return participantPath(studyID, participantID) + "/sessions/" + url.PathEscape(sessionID)
}

// FrameNode is one node within a Figma frame.
type FrameNode struct {
	Description string `json:"description"`
}

// FrameData is the Figma collection record for one frame.
type FrameData struct {
	FrameName        string               `json:"frameName"`
	ImageDescription string               `json:"imageDescription"`
	ImageLink        string               `json:"imageLink"`
	BestParents      map[string]string    `json:"bestParents"`
	Nodes            map[string]FrameNode `json:"nodes"`
}

// GetFileKeyData fetches the Figma collection document for a file.
func (c *Client) GetFileKeyData(ctx context.Context, databaseID, fileKey string) (Document, error) {
	params := url.Values{"fileKey": {fileKey}}
	var out Document
	err := c.request(ctx, http.MethodGet, "/api/figma/collection", databaseID, params, nil, &out)
	return out, err
}

// LoadFileKey asks the service to (re)load a Figma file into the
// collection.
func (c *Client) LoadFileKey(ctx context.Context, databaseID, fileKey string) (Document, error) {
	params := url.Values{"fileKey": {fileKey}}
	var out Document
	err := c.request(ctx, http.MethodGet, "/api/figma/collection/load", databaseID, params, nil, &out)
	return out, err
}

// GetFigmaFrameData fetches one frame's collection record.
func (c *Client) GetFigmaFrameData(ctx context.Context, databaseID, fileKey, frameID string) (*FrameData, error) {
	params := url.Values{"fileKey": {fileKey}, "frameId": {frameID}}
	var out FrameData
	if err := c.request(ctx, http.MethodGet, "/api/figma/collection", databaseID, params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetFrameName returns the frame's display name.
func (c *Client) GetFrameName(ctx context.Context, databaseID, fileKey, frameID string) (string, error) {
	frame, err := c.GetFigmaFrameData(ctx, databaseID, fileKey, frameID)
	if err != nil {
		return "", err
	}
	return frame.FrameName, nil
}

// GetFrameDescription returns the frame's generated description.
func (c *Client) GetFrameDescription(ctx context.Context, databaseID, fileKey, frameID string) (string, error) {
	frame, err := c.GetFigmaFrameData(ctx, databaseID, fileKey, frameID)
	if err != nil {
		return "", err
	}
	return frame.ImageDescription, nil
}

// GetFramePublicURL returns the frame's public image link.
func (c *Client) GetFramePublicURL(ctx context.Context, databaseID, fileKey, frameID string) (string, error) {
	frame, err := c.GetFigmaFrameData(ctx, databaseID, fileKey, frameID)
	if err != nil {
		return "", err
	}
	return frame.ImageLink, nil
}

// GetComponentDescription returns a node's description, resolving
// through the frame's best-parent mapping when the node itself has no
// record.
func (c *Client) GetComponentDescription(ctx context.Context, databaseID, fileKey, frameID, nodeID string) (string, error) {
	frame, err := c.GetFigmaFrameData(ctx, databaseID, fileKey, frameID)
	if err != nil {
		return "", err
	}
	useID := nodeID
	if parent, ok := frame.BestParents[nodeID]; ok && parent != "" {
		useID = parent
	}
	return frame.Nodes[useID].Description, nil
}

// GetConfig fetches a configuration document. A missing config is not
// an error: it returns nil, nil.
func (c *Client) GetConfig(ctx context.Context, databaseID, configID string) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodGet, "/api/config/"+url.PathEscape(configID), databaseID, nil, nil, &out)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetPreferenceDoc fetches a preference document.
func (c *Client) GetPreferenceDoc(ctx context.Context, databaseID, docID string) (Document, error) {
	var out Document
	err := c.request(ctx, http.MethodGet, "/api/preferences/"+url.PathEscape(docID), databaseID, nil, nil, &out)
	return out, err
}

// UpdatePreferenceDoc patches a preference document and reports whether
// the service acknowledged the update.
func (c *Client) UpdatePreferenceDoc(ctx context.Context, databaseID, docID string, data Document) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	err := c.request(ctx, http.MethodPatch, "/api/preferences/"+url.PathEscape(docID), databaseID, nil, data, &out)
	if err != nil {
		return false, err
	}
	return out.Success, nil
}

// HealthCheck verifies the service is reachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.request(ctx, http.MethodGet, "/api/healthCheck", "", nil, nil, nil)
}
