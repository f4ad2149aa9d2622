package aggregate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"screepsres/internal/screeps"
)

// AllShards selects every shard the player owns rooms in.
const AllShards = "all"

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrNoRooms        = errors.New("player has no rooms")
)

// RoomFetchError is a transport failure on one room. It aborts the whole aggregation.
type RoomFetchError struct {
	Target Target
	Err    error
}

func (e *RoomFetchError) Error() string {
	return fmt.Sprintf("fetch room %s in %s: %v", e.Target.Room, e.Target.Shard, e.Err)
}

func (e *RoomFetchError) Unwrap() error { return e.Err }

// GameData is the remote API surface the aggregator needs.
type GameData interface {
	FindUser(ctx context.Context, username string) (screeps.UserResponse, error)
	UserRooms(ctx context.Context, userID string) (screeps.RoomsResponse, error)
	RoomObjects(ctx context.Context, room, shard string) (screeps.RoomObjectsResponse, error)
}

// Target is one (room, shard) inventory query.
type Target struct {
	Room  string `json:"room"`
	Shard string `json:"shard"`
}

// Skip records a room whose inventory call succeeded on the wire but reported ok!=1.
type Skip struct {
	Target Target `json:"target"`
	Reason string `json:"reason"`
}

// Result is one aggregation: per-shard totals plus how many rooms were asked and which were skipped.
type Result struct {
	Shards  ShardTotals
	Rooms   int
	Skipped []Skip
}

// Options tunes an Aggregator. The zero value is usable.
type Options struct {
	// RequestTimeout bounds each room request. Zero means no per-request bound.
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// Aggregator fans room inventory queries out to the game API and folds the answers into totals.
// It is safe for concurrent use.
type Aggregator struct {
	client  GameData
	timeout time.Duration
	log     *log.Logger
}

// New returns an Aggregator reading from client.
func New(client GameData, opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Aggregator{client: client, timeout: opts.RequestTimeout, log: logger}
}

// Run resolves username, queries every room matching shardFilter (AllShards for no filter)
// in parallel and sums the inventories by shard. The first transport error cancels the rest.
func (a *Aggregator) Run(ctx context.Context, username, shardFilter string) (Result, error) {
	user, err := a.client.FindUser(ctx, username)
	if err != nil {
		return Result{}, fmt.Errorf("lookup player %s: %w", username, err)
	}
	if !user.Success() || user.User == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, username)
	}

	rooms, err := a.client.UserRooms(ctx, user.User.ID)
	if err != nil {
		return Result{}, fmt.Errorf("list rooms of %s: %w", username, err)
	}
	if !rooms.Success() || rooms.RoomCount() == 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrNoRooms, username)
	}

	targets := Targets(rooms.Shards, shardFilter)
	rs, err := a.fetchAll(ctx, targets)
	if err != nil {
		a.log.Printf("aggregate aborted user=%s shard=%s err=%v", username, shardFilter, err)
		return Result{}, err
	}

	out := Result{Shards: ShardTotals{}, Rooms: len(targets)}
	for i, r := range rs {
		t := targets[i]
		if !r.ok {
			a.log.Printf("room skipped user=%s room=%s shard=%s reason=%s", username, t.Room, t.Shard, r.reason)
			out.Skipped = append(out.Skipped, Skip{Target: t, Reason: r.reason})
			continue
		}
		out.Shards.Shard(t.Shard).Add(r.totals)
	}
	return out, nil
}

type roomResult struct {
	ok     bool
	reason string
	totals Totals
}

// fetchAll starts every request before waiting on any of them. Each goroutine owns
// one slot of the result slice; the first transport error cancels the rest.
func (a *Aggregator) fetchAll(ctx context.Context, targets []Target) ([]roomResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]roomResult, len(targets))
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i, t := range targets {
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()
			rctx := ctx
			if a.timeout > 0 {
				var rcancel context.CancelFunc
				rctx, rcancel = context.WithTimeout(ctx, a.timeout)
				defer rcancel()
			}
			resp, err := a.client.RoomObjects(rctx, t.Room, t.Shard)
			if err != nil {
				once.Do(func() {
					firstErr = &RoomFetchError{Target: t, Err: err}
					cancel()
				})
				return
			}
			if !resp.Success() {
				results[i] = roomResult{reason: resp.Reason()}
				return
			}
			results[i] = roomResult{ok: true, totals: RoomTotals(resp.Objects)}
		}(i, t)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// Targets lists (room, shard) pairs in a stable order. A filter other than AllShards keeps
// only that shard.
func Targets(shards map[string][]string, shardFilter string) []Target {
	names := make([]string, 0, len(shards))
	for name := range shards {
		if shardFilter != AllShards && name != shardFilter {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	var out []Target
	for _, name := range names {
		for _, room := range shards[name] {
			out = append(out, Target{Room: room, Shard: name})
		}
	}
	return out
}

// RoomTotals sums the stores of storage, terminal and factory objects. Null quantities count as 0.
func RoomTotals(objects []screeps.RoomObject) Totals {
	t := Totals{}
	for _, o := range objects {
		if !o.HasInventory() {
			continue
		}
		for res, amount := range o.Store {
			var n int64
			if amount != nil {
				n = *amount
			}
			t[res] += n
		}
	}
	return t
}
