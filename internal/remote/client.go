// Package remote implements the asset-server client.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"medialift/internal/config"
	"medialift/internal/logging"
)

// pingTimeout caps each connectivity probe; uploads use the client timeout
const pingTimeout = 5 * time.Second

// pingEndpoints covers old and new server versions plus key validation
var pingEndpoints = []string{
	"/api/server/ping",
	"/server-info/ping",
	"/api/server-info/ping",
	"/api/auth/validateToken",
}

// Result captures a single upload attempt. A transport or local I/O failure
// is reported as StatusCode 0 with Error set and a null body; HTTP outcomes
// carry the verbatim response. Result is what lands in the catalog's
// api_response column, so its JSON keys are part of the stored format.
type Result struct {
	StatusCode int               `json:"status_code"`
	Body       *string           `json:"response_text"`
	Headers    map[string]string `json:"headers,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// JSON renders the result for persistence
func (r Result) JSON() *string {
	data, err := json.Marshal(r)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

// Client talks to the remote asset server
type Client struct {
	baseURL    string
	apiKey     string
	deviceID   string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a new remote client
func NewClient(cfg *config.RemoteConfig, logger *logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		deviceID:   cfg.DeviceID,
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		logger:     logger,
	}
}

// Upload posts one file as a multipart asset. The body is streamed through a
// pipe so large videos never sit in memory. All failure modes come back as a
// Result; the caller decides what an outcome means for the catalog.
func (c *Client) Upload(ctx context.Context, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		return c.transportFailure(path, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return c.transportFailure(path, err)
	}
	defer file.Close()

	bodyReader, bodyWriter := io.Pipe()
	form := multipart.NewWriter(bodyWriter)

	go func() {
		if err := c.writeForm(form, file, filepath.Base(path), info.ModTime()); err != nil {
			bodyWriter.CloseWithError(err)
			return
		}
		bodyWriter.CloseWithError(form.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/assets", bodyReader)
	if err != nil {
		return c.transportFailure(path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", form.FormDataContentType())

	c.logger.Debug().Str("file_path", path).Msg("Uploading file")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportFailure(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.transportFailure(path, err)
	}

	text := string(body)
	result := Result{
		StatusCode: resp.StatusCode,
		Body:       &text,
		Headers:    flattenHeaders(resp.Header),
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		c.logger.Info().Str("file_path", path).Int("status_code", resp.StatusCode).Msg("File uploaded")
	case http.StatusConflict:
		c.logger.Info().Str("file_path", path).Msg("Duplicate reported by server")
	default:
		c.logger.Warn().Str("file_path", path).Int("status_code", resp.StatusCode).
			Str("response", truncate(text, 100)).Msg("Upload rejected")
	}

	return result
}

// writeForm emits the metadata fields and the asset payload in upload order
func (c *Client) writeForm(form *multipart.Writer, file *os.File, filename string, modTime time.Time) error {
	fields := [][2]string{
		{"deviceAssetId", fmt.Sprintf("%s-%d", filename, modTime.Unix())},
		{"deviceId", c.deviceID},
		{"fileCreatedAt", modTime.Format(time.RFC3339)},
		{"fileModifiedAt", modTime.Format(time.RFC3339)},
		{"isFavorite", "false"},
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return err
		}
	}

	part, err := form.CreateFormFile("assetData", filename)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, file)
	return err
}

// Ping reports whether any known server endpoint answers. Endpoint paths
// moved between server versions, so each one is probed in turn; any response
// below 500 counts as reachable. False means unverified, not unusable, and
// callers are expected to warn and proceed.
func (c *Client) Ping(ctx context.Context) bool {
	for _, endpoint := range pingEndpoints {
		reqCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.baseURL+endpoint, nil)
		if err != nil {
			cancel()
			continue
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("x-api-key", c.apiKey)

		resp, err := c.httpClient.Do(req)
		cancel()
		if err != nil {
			c.logger.Debug().Str("endpoint", endpoint).Err(err).Msg("Endpoint not reachable")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode < 500 {
			c.logger.Info().Str("endpoint", endpoint).Int("status_code", resp.StatusCode).
				Msg("Remote server reachable")
			return true
		}
	}

	c.logger.Warn().Str("base_url", c.baseURL).Msg("Could not verify remote server connectivity")
	return false
}

// Close releases pooled connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) transportFailure(path string, err error) Result {
	c.logger.Error().Str("file_path", path).Err(err).Msg("Upload failed before a server response")
	return Result{StatusCode: 0, Error: err.Error()}
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name, values := range header {
		flat[name] = strings.Join(values, ", ")
	}
	return flat
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
