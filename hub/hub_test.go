package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/cafe-pos/utils"
)

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	failing bool
	closed  bool
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return errors.New("broken pipe")
	}
	f.written = append(f.written, data)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

func TestBroadcastDeliversToAllClients(t *testing.T) {
	utils.InitLogger()
	h := NewHub()
	a, b := &fakeConn{}, &fakeConn{}
	h.Register(a, "staff1")
	h.Register(b, "admin")

	h.Broadcast(Message{Event: EventTableUpdate, Data: map[string]int{"table_id": 3}})

	for _, c := range []*fakeConn{a, b} {
		require.Len(t, c.written, 1)
		var msg struct {
			Event string         `json:"event"`
			Data  map[string]int `json:"data"`
		}
		require.NoError(t, json.Unmarshal(c.written[0], &msg))
		assert.Equal(t, EventTableUpdate, msg.Event)
		assert.Equal(t, 3, msg.Data["table_id"])
	}
}

func TestBroadcastDropsBrokenClient(t *testing.T) {
	utils.InitLogger()
	h := NewHub()
	ok, broken := &fakeConn{}, &fakeConn{failing: true}
	h.Register(ok, "a")
	h.Register(broken, "b")

	h.Broadcast(Message{Event: EventBillPaid, Data: 1})

	assert.Equal(t, 1, h.ClientCount())
	assert.True(t, broken.closed)
	assert.Len(t, ok.written, 1)
}

func TestUnregister(t *testing.T) {
	h := NewHub()
	c := &fakeConn{}
	h.Register(c, "a")
	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.ClientCount())
	assert.True(t, c.closed)
}
