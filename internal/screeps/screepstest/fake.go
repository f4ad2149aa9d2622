package screepstest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"screepsres/internal/screeps"
)

// Game is an in-memory stand-in for the Screeps API. It satisfies aggregate.GameData and
// can be served over HTTP with NewServer.
//
// Players maps username to shard to rooms. Objects and RoomErrors are keyed by Key(room, shard).
type Game struct {
	Players    map[string]map[string][]string
	Objects    map[string][]screeps.RoomObject
	RoomErrors map[string]error
	// Failing rooms answer {"ok":0} instead of an inventory.
	Failing map[string]string

	mu    sync.Mutex
	calls int
}

func Key(room, shard string) string { return shard + "/" + room }

func Amount(n int64) *int64 { return &n }

// Storage returns a storage object holding the given resources.
func Storage(store map[string]int64) screeps.RoomObject {
	s := make(map[string]*int64, len(store))
	for k, v := range store {
		s[k] = Amount(v)
	}
	return screeps.RoomObject{Type: screeps.TypeStorage, Store: s}
}

// TwoShards is alice with one storage on shard0 (energy 100) and a terminal on shard1
// (energy 50, U 10).
func TwoShards() *Game {
	terminal := Storage(map[string]int64{"energy": 50, "U": 10})
	terminal.Type = screeps.TypeTerminal
	return &Game{
		Players: map[string]map[string][]string{
			"alice": {"shard0": {"W1N1"}, "shard1": {"W2N2"}},
			"empty": {},
		},
		Objects: map[string][]screeps.RoomObject{
			Key("W1N1", "shard0"): {Storage(map[string]int64{"energy": 100})},
			Key("W2N2", "shard1"): {terminal},
		},
	}
}

// RoomCalls returns how many inventory queries were made.
func (g *Game) RoomCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *Game) FindUser(ctx context.Context, username string) (screeps.UserResponse, error) {
	if _, ok := g.Players[username]; !ok {
		return screeps.UserResponse{Base: screeps.Base{OK: 0, Error: "user not found"}}, nil
	}
	return screeps.UserResponse{Base: screeps.Base{OK: 1}, User: &screeps.User{ID: "id-" + username, Username: username}}, nil
}

func (g *Game) UserRooms(ctx context.Context, userID string) (screeps.RoomsResponse, error) {
	for name, shards := range g.Players {
		if "id-"+name == userID {
			return screeps.RoomsResponse{Base: screeps.Base{OK: 1}, Shards: shards}, nil
		}
	}
	return screeps.RoomsResponse{Base: screeps.Base{OK: 0, Error: "invalid id"}}, nil
}

func (g *Game) RoomObjects(ctx context.Context, room, shard string) (screeps.RoomObjectsResponse, error) {
	k := Key(room, shard)
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if err := g.RoomErrors[k]; err != nil {
		return screeps.RoomObjectsResponse{}, err
	}
	if reason, ok := g.Failing[k]; ok {
		return screeps.RoomObjectsResponse{Base: screeps.Base{OK: 0, Error: reason}}, nil
	}
	return screeps.RoomObjectsResponse{Base: screeps.Base{OK: 1}, Objects: g.Objects[k]}, nil
}

// NewServer serves g on the Screeps web API paths. RoomErrors become HTTP 502 responses.
func NewServer(g *Game) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/user/find", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := g.FindUser(r.Context(), r.URL.Query().Get("username"))
		writeJSON(w, resp)
	})
	mux.HandleFunc("/api/user/rooms", func(w http.ResponseWriter, r *http.Request) {
		resp, _ := g.UserRooms(r.Context(), r.URL.Query().Get("id"))
		writeJSON(w, resp)
	})
	mux.HandleFunc("/api/game/room-objects", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		resp, err := g.RoomObjects(r.Context(), q.Get("room"), q.Get("shard"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, resp)
	})
	return httptest.NewServer(mux)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
