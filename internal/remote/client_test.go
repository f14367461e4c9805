package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medialift/internal/config"
	"medialift/internal/logging"
)

func newTestClient(serverURL string) *Client {
	cfg := &config.RemoteConfig{
		URL:            serverURL,
		APIKey:         "test-key",
		DeviceID:       "test-device",
		TimeoutSeconds: 5,
	}
	return NewClient(cfg, logging.NewLogger(logging.ErrorLevel, io.Discard))
}

func writeUploadFixture(t *testing.T, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func TestClient_Upload_SendsMultipartAsset(t *testing.T) {
	modTime := time.Date(2023, 5, 20, 18, 30, 0, 0, time.Local)
	path := writeUploadFixture(t, modTime)

	var (
		gotAPIKey      string
		gotAccept      string
		gotFields      map[string]string
		gotFilename    string
		gotPartType    string
		gotPartContent []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/assets", r.URL.Path)
		gotAPIKey = r.Header.Get("x-api-key")
		gotAccept = r.Header.Get("Accept")

		require.NoError(t, r.ParseMultipartForm(32<<20))
		gotFields = map[string]string{}
		for name := range r.MultipartForm.Value {
			gotFields[name] = r.FormValue(name)
		}

		file, header, err := r.FormFile("assetData")
		require.NoError(t, err)
		defer file.Close()
		gotFilename = header.Filename
		gotPartType = header.Header.Get("Content-Type")
		gotPartContent, err = io.ReadAll(file)
		require.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"abc","status":"created"}`)
	}))
	defer server.Close()

	result := newTestClient(server.URL).Upload(context.Background(), path)

	assert.Equal(t, http.StatusCreated, result.StatusCode)
	require.NotNil(t, result.Body)
	assert.JSONEq(t, `{"id":"abc","status":"created"}`, *result.Body)
	assert.Empty(t, result.Error)
	assert.Equal(t, "application/json", result.Headers["Content-Type"])

	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, fmt.Sprintf("sample.jpg-%d", modTime.Unix()), gotFields["deviceAssetId"])
	assert.Equal(t, "test-device", gotFields["deviceId"])
	assert.Equal(t, modTime.Format(time.RFC3339), gotFields["fileCreatedAt"])
	assert.Equal(t, modTime.Format(time.RFC3339), gotFields["fileModifiedAt"])
	assert.Equal(t, "false", gotFields["isFavorite"])
	assert.Equal(t, "sample.jpg", gotFilename)
	assert.Equal(t, "application/octet-stream", gotPartType)
	assert.Equal(t, []byte("jpeg bytes"), gotPartContent)
}

func TestClient_Upload_TransportFailure(t *testing.T) {
	path := writeUploadFixture(t, time.Now())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	result := newTestClient(server.URL).Upload(context.Background(), path)

	assert.Equal(t, 0, result.StatusCode)
	assert.NotEmpty(t, result.Error)
	assert.Nil(t, result.Body)
}

func TestClient_Upload_MissingFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for a missing file")
	}))
	defer server.Close()

	result := newTestClient(server.URL).Upload(context.Background(), filepath.Join(t.TempDir(), "gone.jpg"))

	assert.Equal(t, 0, result.StatusCode)
	assert.NotEmpty(t, result.Error)
}

func TestClient_Upload_ServerErrorKeepsResponse(t *testing.T) {
	path := writeUploadFixture(t, time.Now())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "storage offline")
	}))
	defer server.Close()

	result := newTestClient(server.URL).Upload(context.Background(), path)

	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	require.NotNil(t, result.Body)
	assert.Equal(t, "storage offline", *result.Body)
	assert.Empty(t, result.Error)
}

func TestClient_Ping_FallsBackAcrossEndpoints(t *testing.T) {
	var probed []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = append(probed, r.URL.Path)
		if r.URL.Path == "/api/server-info/ping" {
			fmt.Fprint(w, `{"res":"pong"}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	reachable := newTestClient(server.URL).Ping(context.Background())

	assert.True(t, reachable)
	assert.Equal(t, []string{"/api/server/ping", "/server-info/ping", "/api/server-info/ping"}, probed)
}

func TestClient_Ping_AnySub500Counts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	assert.True(t, newTestClient(server.URL).Ping(context.Background()))
}

func TestClient_Ping_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	assert.False(t, newTestClient(server.URL).Ping(context.Background()))
}

func TestResult_JSON(t *testing.T) {
	body := `{"status":"duplicate"}`
	success := Result{StatusCode: 200, Body: &body, Headers: map[string]string{"Content-Type": "application/json"}}

	serialized := success.JSON()
	require.NotNil(t, serialized)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(*serialized), &decoded))
	assert.Equal(t, float64(200), decoded["status_code"])
	assert.Equal(t, body, decoded["response_text"])
	assert.NotContains(t, decoded, "error")

	failure := Result{StatusCode: 0, Error: "connection refused"}
	serialized = failure.JSON()
	require.NotNil(t, serialized)

	decoded = map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(*serialized), &decoded))
	assert.Equal(t, float64(0), decoded["status_code"])
	assert.Nil(t, decoded["response_text"])
	assert.Equal(t, "connection refused", decoded["error"])
}
