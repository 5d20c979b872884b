package ws

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"spark-ws/internal/models"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	// Discard logger output during tests by setting a high level
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1})
	return slog.New(handler)
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// fakeConn records frames queued by the hub. full simulates a client whose
// send buffer is exhausted.
type fakeConn struct {
	id string

	mu     sync.Mutex
	frames []frame
	closed bool
	full   bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(b []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.full {
		return false
	}
	var f frame
	if err := json.Unmarshal(b, &f); err != nil {
		panic(err)
	}
	c.frames = append(c.frames, f)
	return true
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		panic("close called twice on " + c.id)
	}
	c.closed = true
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	types := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		types = append(types, f.Type)
	}
	return types
}

func (c *fakeConn) last(t *testing.T) frame {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.frames, "no frames on %s", c.id)
	return c.frames[len(c.frames)-1]
}

func inboundFrame(t *testing.T, eventType string, data interface{}) models.Inbound {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return models.Inbound{Type: eventType, Data: raw}
}
