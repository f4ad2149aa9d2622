package main

import (
	"bytes"
	"context"
	"log"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"screepsres/internal/aggregate"
	"screepsres/internal/render"
	"screepsres/internal/report"
	"screepsres/internal/screeps/screepstest"
	"screepsres/internal/transport/ws"
)

func TestSplitUsers(t *testing.T) {
	got := splitUsers(" alice, ,bob,")
	if !reflect.DeepEqual(got, []string{"alice", "bob"}) {
		t.Fatalf("splitUsers = %v", got)
	}
}

func TestPollOnce(t *testing.T) {
	r, err := render.NewRenderer(render.DefaultOptions(t.TempDir()))
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	svc := report.New(aggregate.New(screepstest.TwoShards(), aggregate.Options{}), r, report.Options{})
	srv := httptest.NewServer(ws.NewServer(svc, ws.Options{}).Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var buf bytes.Buffer
	if err := pollOnce(context.Background(), conn, []string{"alice", "ghost"}, "all", log.New(&buf, "", 0)); err != nil {
		t.Fatalf("pollOnce: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "user=alice ok=true shards=2 energy=150") {
		t.Fatalf("missing alice line:\n%s", out)
	}
	if !strings.Contains(out, "user=ghost ok=false code=E_PLAYER_NOT_FOUND") {
		t.Fatalf("missing ghost line:\n%s", out)
	}
}
