package hub

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server, context.CancelFunc) {
	t.Helper()
	h := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)

	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return h, srv, cancel
}

func connect(t *testing.T, h *Hub, url string) (*bufio.Reader, io.Closer) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(line, ": connected "), line)

	require.Eventually(t, func() bool { return h.ClientCount() > 0 }, time.Second, 10*time.Millisecond)
	return reader, resp.Body
}

// readEvent skips comment and blank lines and returns the next event frame
func readEvent(t *testing.T, r *bufio.Reader) (event, data string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			return event, strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestBroadcastReachesClient(t *testing.T) {
	h, srv, _ := startHub(t)
	reader, body := connect(t, h, srv.URL)
	defer body.Close()

	h.Broadcast("patient_created", map[string]int64{"id": 3})

	event, data := readEvent(t, reader)
	assert.Equal(t, "patient_created", event)
	assert.JSONEq(t, `{"id":3}`, data)
}

func TestUnnamedMessage(t *testing.T) {
	frame, err := encode(Message{Data: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "data: \"hi\"\n\n", string(frame))

	frame, err = encode(Message{Event: "patients_imported", Data: nil})
	require.NoError(t, err)
	assert.Equal(t, "event: patients_imported\ndata: null\n\n", string(frame))
}

func TestClientDisconnectUnregisters(t *testing.T) {
	h, srv, _ := startHub(t)
	_, body := connect(t, h, srv.URL)

	require.NoError(t, body.Close())
	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestStopClosesStreams(t *testing.T) {
	h, srv, cancel := startHub(t)
	reader, body := connect(t, h, srv.URL)
	defer body.Close()

	cancel()

	done := make(chan error, 1)
	go func() {
		_, err := io.ReadAll(reader)
		done <- err
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("stream stayed open after hub stopped")
	}
}

func TestKeepAlive(t *testing.T) {
	h := New(nil)
	h.keepAlive = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	reader, body := connect(t, h, srv.URL)
	defer body.Close()

	line, err := reader.ReadString('\n')
	for err == nil && strings.TrimSpace(line) == "" {
		line, err = reader.ReadString('\n')
	}
	require.NoError(t, err)
	assert.Equal(t, ": keepalive\n", line)
}
