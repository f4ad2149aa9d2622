package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"screepsres/internal/aggregate"
	"screepsres/internal/protocol"
	"screepsres/internal/report"
)

type fakeQuerier struct {
	release chan struct{}
}

func (f *fakeQuerier) Totals(ctx context.Context, q report.Query) (aggregate.ShardTotals, error) {
	switch q.Username {
	case "slow":
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return aggregate.ShardTotals{"shard0": {"energy": 1}}, nil
	case "ghost":
		return nil, aggregate.ErrPlayerNotFound
	case "quiet":
		return aggregate.ShardTotals{}, nil
	default:
		if q.Transport != "ws" {
			return nil, errors.New("unexpected transport " + q.Transport)
		}
		return aggregate.ShardTotals{"shard0": {"energy": 100}, "shard1": {"U": 10}}, nil
	}
}

func dial(t *testing.T, q Querier) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewServer(q, Options{}).Handler())
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResult(t *testing.T, conn *websocket.Conn) protocol.ResResultMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg protocol.ResResultMsg
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != protocol.TypeResResult || msg.ProtocolVersion != protocol.Version {
		t.Fatalf("unexpected envelope: %+v", msg)
	}
	return msg
}

func TestServer_QueryResult(t *testing.T) {
	conn := dial(t, &fakeQuerier{})
	if err := conn.WriteJSON(protocol.ResQueryMsg{Type: protocol.TypeResQuery, ID: "q1", Username: "alice", Shard: "all"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := readResult(t, conn)
	if !res.Success || res.ID != "q1" || res.Data["shard0"]["energy"] != 100 || res.Data["shard1"]["U"] != 10 {
		t.Fatalf("result = %+v", res)
	}

	if err := conn.WriteJSON(protocol.ResQueryMsg{Type: protocol.TypeResQuery, ID: "q2", Username: "ghost", Shard: "all"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	res = readResult(t, conn)
	if res.Success || res.ID != "q2" || res.Code != protocol.ErrPlayerNotFound || res.Error == "" || res.Data != nil {
		t.Fatalf("failure result = %+v", res)
	}
}

func TestServer_RejectsMalformedMessages(t *testing.T) {
	conn := dial(t, &fakeQuerier{})
	cases := []struct {
		raw  string
		id   string
		want string
	}{
		{`not json`, "", "invalid json"},
		{`{"type":"HELLO","id":"h1"}`, "h1", "unsupported message type"},
		{`{"type":"RES_QUERY","id":"v9","protocol_version":"9.9","username":"a","shard":"all"}`, "v9", "bad protocol_version"},
	}
	for _, c := range cases {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(c.raw)); err != nil {
			t.Fatalf("write: %v", err)
		}
		res := readResult(t, conn)
		if res.Success || res.ID != c.id || res.Code != protocol.ErrProtoBadRequest || !strings.Contains(res.Error, c.want) {
			t.Fatalf("%s: result = %+v", c.raw, res)
		}
	}
}

func TestServer_QueriesRunConcurrently(t *testing.T) {
	q := &fakeQuerier{release: make(chan struct{})}
	conn := dial(t, q)

	_ = conn.WriteJSON(protocol.ResQueryMsg{Type: protocol.TypeResQuery, ID: "slow", Username: "slow", Shard: "all"})
	_ = conn.WriteJSON(protocol.ResQueryMsg{Type: protocol.TypeResQuery, ID: "fast", Username: "alice", Shard: "all"})

	// The fast query must overtake the blocked one.
	if res := readResult(t, conn); res.ID != "fast" {
		t.Fatalf("first reply = %s want fast", res.ID)
	}
	close(q.release)
	if res := readResult(t, conn); res.ID != "slow" || !res.Success {
		t.Fatalf("second reply = %+v", res)
	}
}

func TestServer_EmptyTotalsCarryData(t *testing.T) {
	conn := dial(t, &fakeQuerier{})
	if err := conn.WriteJSON(protocol.ResQueryMsg{Type: protocol.TypeResQuery, ID: "q9", Username: "quiet", Shard: "shard9"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := `{"type":"RES_RESULT","protocol_version":"1.0","id":"q9","success":true,"data":{}}`
	if string(raw) != want {
		t.Fatalf("reply = %s want %s", raw, want)
	}
}
