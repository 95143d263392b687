package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder is a SendFunc target that keeps every frame it receives.
type recorder struct {
	mu     sync.Mutex
	frames [][]byte
	err    error
}

func (r *recorder) send(data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.frames = append(r.frames, append([]byte(nil), data...))
	return nil
}

func (r *recorder) messages(t *testing.T) []wireMessage {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]wireMessage, 0, len(r.frames))
	for _, f := range r.frames {
		var m wireMessage
		require.NoError(t, json.Unmarshal(f, &m))
		out = append(out, m)
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}

// wireMessage mirrors Outbound for decoding in tests.
type wireMessage struct {
	Type string          `json:"type"`
	Name *string         `json:"name"`
	Text json.RawMessage `json:"text"`
}

func (m wireMessage) text(t *testing.T) string {
	t.Helper()
	var s string
	require.NoError(t, json.Unmarshal(m.Text, &s))
	return s
}

func newTestSession(room *Room) (*Session, *recorder) {
	rec := &recorder{}
	return NewSession(rec.send, room), rec
}

var errConnGone = errors.New("connection gone")
