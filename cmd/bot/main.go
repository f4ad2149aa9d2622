package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"screepsres/internal/aggregate"
	"screepsres/internal/protocol"
)

// bot polls /res/ws for a list of players and logs each reply. Useful as a smoke test
// against a deployed server.
func main() {
	var (
		url   = flag.String("url", "ws://localhost:3000/res/ws", "ws url")
		users = flag.String("users", "", "comma separated usernames (required)")
		shard = flag.String("shard", aggregate.AllShards, "shard filter")
		every = flag.Duration("every", 0, "repeat interval (0 = query once)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)
	names := splitUsers(*users)
	if len(names) == 0 {
		logger.Fatalf("missing -users")
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for {
		if err := pollOnce(ctx, conn, names, *shard, logger); err != nil {
			logger.Printf("poll: %v", err)
			return
		}
		if *every <= 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(*every):
		}
	}
}

func splitUsers(s string) []string {
	var out []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, u)
		}
	}
	return out
}

// pollOnce sends one RES_QUERY per user and waits for all replies, which may arrive in any order.
func pollOnce(ctx context.Context, conn *websocket.Conn, users []string, shard string, logger *log.Logger) error {
	pending := map[string]string{}
	sent := map[string]time.Time{}
	for _, u := range users {
		id := uuid.NewString()
		q := protocol.ResQueryMsg{
			Type:            protocol.TypeResQuery,
			ProtocolVersion: protocol.Version,
			ID:              id,
			Username:        u,
			Shard:           shard,
		}
		if err := conn.WriteJSON(q); err != nil {
			return fmt.Errorf("send RES_QUERY: %w", err)
		}
		pending[id] = u
		sent[id] = time.Now()
	}

	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Minute))
		var res protocol.ResResultMsg
		if err := conn.ReadJSON(&res); err != nil {
			return fmt.Errorf("read RES_RESULT: %w", err)
		}
		user, ok := pending[res.ID]
		if !ok || res.Type != protocol.TypeResResult {
			continue
		}
		delete(pending, res.ID)
		ms := time.Since(sent[res.ID]).Milliseconds()
		if !res.Success {
			if !protocol.IsKnownCode(res.Code) {
				logger.Printf("RES_RESULT user=%s unknown code=%q", user, res.Code)
			}
			logger.Printf("RES_RESULT user=%s ok=false code=%s err=%s ms=%d", user, res.Code, res.Error, ms)
			continue
		}
		var energy int64
		for _, t := range res.Data {
			energy += t["energy"]
		}
		logger.Printf("RES_RESULT user=%s ok=true shards=%d energy=%d ms=%d", user, len(res.Data), energy, ms)
	}
	return nil
}
