package inference

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rbright/echosight/internal/config"
)

func testConfig(baseURL string) config.InferenceConfig {
	cfg := config.Default().Inference
	cfg.BaseURL = baseURL
	return cfg
}

func streamChunk(content string) string {
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":%q}}]}`+"\n\n", content)
}

func TestDescribeStreamsResponse(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, streamChunk("First part. "))
		fmt.Fprint(w, streamChunk("Second part."))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := New(testConfig(server.URL), nil)
	text, err := client.Describe(context.Background(), "test-key", []byte("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, "First part. Second part.", text)
	assert.Contains(t, string(body), "Describe this screenshot")
	assert.Contains(t, string(body), "data:image/png;base64,")
}

func TestAskPrependsPreface(t *testing.T) {
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, streamChunk("It is a login form."))
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := New(testConfig(server.URL), nil)
	text, err := client.Ask(context.Background(), "test-key", []byte("PNGDATA"), "What is on screen?")
	require.NoError(t, err)
	assert.Equal(t, "It is a login form.", text)
	assert.Contains(t, string(body), "What is on screen?")
}

func TestQueryEmptyStreamReturnsPlaceholder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := New(testConfig(server.URL), nil)
	text, err := client.Describe(context.Background(), "test-key", []byte("PNGDATA"))
	require.NoError(t, err)
	assert.Equal(t, emptyResponseText, text)
}

func TestAbortCancelsInFlightStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, streamChunk("partial"))
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		<-r.Context().Done()
	}))
	defer server.Close()

	client := New(testConfig(server.URL), nil)
	go func() {
		time.Sleep(200 * time.Millisecond)
		client.Abort()
	}()

	start := time.Now()
	_, err := client.Describe(context.Background(), "test-key", []byte("PNGDATA"))
	assert.ErrorIs(t, err, ErrCanceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestQueryMissingKey(t *testing.T) {
	client := New(testConfig("http://localhost:1"), nil)
	_, err := client.Describe(context.Background(), "", []byte("PNGDATA"))
	assert.Error(t, err)
}

func TestQueryServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := New(testConfig(server.URL), nil)
	_, err := client.Describe(context.Background(), "test-key", []byte("PNGDATA"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCanceled)
}
