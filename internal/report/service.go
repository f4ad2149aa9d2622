package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"screepsres/internal/aggregate"
	"screepsres/internal/persistence/indexdb"
	reslog "screepsres/internal/persistence/log"
	"screepsres/internal/protocol"
	"screepsres/internal/render"
)

const (
	KindTotals = "totals"
	KindImage  = "image"
)

var ErrBadRequest = errors.New("bad request")

// upstreamError marks failures talking to the game API that are not one of the aggregate
// sentinels (HTTP status, network, undecodable body).
type upstreamError struct{ err error }

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

type AuditSink interface {
	WriteRequest(e reslog.RequestEntry) error
}

type RenderRecorder interface {
	RecordRender(r indexdb.RenderRow)
}

type ImageMirror interface {
	Enqueue(localPath string)
}

// Query identifies one report request. ID is generated when empty.
type Query struct {
	ID        string
	Transport string
	Username  string
	Shard     string
}

type Options struct {
	Audit  AuditSink
	Index  RenderRecorder
	Mirror ImageMirror
	Logger *log.Logger
}

type Service struct {
	agg      *aggregate.Aggregator
	renderer *render.Renderer
	audit    AuditSink
	index    RenderRecorder
	mirror   ImageMirror
	log      *log.Logger

	requests map[string]*atomic.Uint64
	failures map[string]*atomic.Uint64
	rooms    atomic.Uint64
	skipped  atomic.Uint64
	renders  atomic.Uint64
	inflight atomic.Int64
	durMS    atomic.Uint64
}

func New(agg *aggregate.Aggregator, renderer *render.Renderer, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	s := &Service{
		agg:      agg,
		renderer: renderer,
		audit:    opts.Audit,
		index:    opts.Index,
		mirror:   opts.Mirror,
		log:      logger,
		requests: map[string]*atomic.Uint64{KindTotals: {}, KindImage: {}},
		failures: map[string]*atomic.Uint64{},
	}
	for _, code := range []string{
		protocol.ErrBadRequest,
		protocol.ErrPlayerNotFound,
		protocol.ErrNoRooms,
		protocol.ErrRoomFetch,
		protocol.ErrUpstream,
		protocol.ErrRender,
		protocol.ErrCanceled,
		protocol.ErrInternal,
	} {
		s.failures[code] = &atomic.Uint64{}
	}
	return s
}

// Totals aggregates the player's inventories per shard.
func (s *Service) Totals(ctx context.Context, q Query) (aggregate.ShardTotals, error) {
	q, entry, start := s.begin(KindTotals, q)
	defer s.inflight.Add(-1)

	res, err := s.run(ctx, q)
	entry.Rooms, entry.Skipped = res.Rooms, len(res.Skipped)
	s.finish(entry, start, err)
	if err != nil {
		return nil, err
	}
	return res.Shards, nil
}

// Image aggregates and renders the report, returning the PNG path.
func (s *Service) Image(ctx context.Context, q Query) (string, error) {
	q, entry, start := s.begin(KindImage, q)
	defer s.inflight.Add(-1)

	res, err := s.run(ctx, q)
	entry.Rooms, entry.Skipped = res.Rooms, len(res.Skipped)
	if err != nil {
		s.finish(entry, start, err)
		return "", err
	}

	path, err := s.renderer.Render(res.Shards, q.Username, q.Shard)
	if err != nil {
		s.finish(entry, start, err)
		return "", err
	}
	entry.Path = path
	s.renders.Add(1)

	if s.index != nil {
		row := indexdb.RenderRow{
			Username:   q.Username,
			Shard:      q.Shard,
			Path:       path,
			RenderedAt: time.Now(),
			Rooms:      res.Rooms,
			Resources:  len(aggregate.Merge(res.Shards)),
		}
		if st, err := os.Stat(path); err == nil {
			row.Bytes = st.Size()
		}
		s.index.RecordRender(row)
	}
	if s.mirror != nil {
		s.mirror.Enqueue(path)
	}
	s.finish(entry, start, nil)
	return path, nil
}

func (s *Service) run(ctx context.Context, q Query) (aggregate.Result, error) {
	if err := Validate(q.Username, q.Shard); err != nil {
		return aggregate.Result{}, err
	}
	res, err := s.agg.Run(ctx, q.Username, q.Shard)
	if err != nil {
		if !errors.Is(err, aggregate.ErrPlayerNotFound) && !errors.Is(err, aggregate.ErrNoRooms) {
			var rf *aggregate.RoomFetchError
			if !errors.As(err, &rf) && ctx.Err() == nil {
				err = &upstreamError{err: err}
			}
		}
		return res, err
	}
	s.rooms.Add(uint64(res.Rooms))
	s.skipped.Add(uint64(len(res.Skipped)))
	return res, nil
}

func (s *Service) begin(kind string, q Query) (Query, reslog.RequestEntry, time.Time) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.Username = strings.TrimSpace(q.Username)
	q.Shard = strings.TrimSpace(q.Shard)
	s.requests[kind].Add(1)
	s.inflight.Add(1)
	now := time.Now()
	return q, reslog.RequestEntry{
		ID:        q.ID,
		Time:      now.UTC(),
		Kind:      kind,
		Transport: q.Transport,
		Username:  q.Username,
		Shard:     q.Shard,
	}, now
}

func (s *Service) finish(e reslog.RequestEntry, start time.Time, err error) {
	e.DurationMS = time.Since(start).Milliseconds()
	s.durMS.Add(uint64(e.DurationMS))
	if err != nil {
		e.Code = CodeFor(err)
		e.Error = err.Error()
		s.failures[e.Code].Add(1)
		s.log.Printf("request failed id=%s kind=%s transport=%s user=%s shard=%s code=%s err=%v", e.ID, e.Kind, e.Transport, e.Username, e.Shard, e.Code, err)
	} else {
		s.log.Printf("request ok id=%s kind=%s transport=%s user=%s shard=%s rooms=%d skipped=%d ms=%d", e.ID, e.Kind, e.Transport, e.Username, e.Shard, e.Rooms, e.Skipped, e.DurationMS)
	}
	if s.audit != nil {
		if werr := s.audit.WriteRequest(e); werr != nil {
			s.log.Printf("audit write failed id=%s err=%v", e.ID, werr)
		}
	}
}

// Validate rejects values that cannot name a player/shard or that would escape the data dir
// once used in an image file name.
func Validate(username, shard string) error {
	username = strings.TrimSpace(username)
	shard = strings.TrimSpace(shard)
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrBadRequest)
	}
	if shard == "" {
		return fmt.Errorf("%w: shard is required", ErrBadRequest)
	}
	for _, v := range []string{username, shard} {
		if v == "." || v == ".." || strings.ContainsAny(v, `/\`) || strings.ContainsRune(v, 0) {
			return fmt.Errorf("%w: invalid name %q", ErrBadRequest, v)
		}
	}
	return nil
}

// CodeFor maps an error returned by Service to a stable protocol error code.
func CodeFor(err error) string {
	var (
		rf *aggregate.RoomFetchError
		up *upstreamError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadRequest):
		return protocol.ErrBadRequest
	case errors.Is(err, context.Canceled):
		return protocol.ErrCanceled
	case errors.Is(err, aggregate.ErrPlayerNotFound):
		return protocol.ErrPlayerNotFound
	case errors.Is(err, aggregate.ErrNoRooms):
		return protocol.ErrNoRooms
	case errors.As(err, &rf):
		return protocol.ErrRoomFetch
	case errors.Is(err, render.ErrRender):
		return protocol.ErrRender
	case errors.As(err, &up):
		return protocol.ErrUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return protocol.ErrCanceled
	default:
		return protocol.ErrInternal
	}
}

type Stats struct {
	Requests      map[string]uint64
	Failures      map[string]uint64
	Inflight      int64
	RoomsTotal    uint64
	SkippedTotal  uint64
	RendersTotal  uint64
	DurationMSSum uint64
}

func (s *Service) Stats() Stats {
	st := Stats{
		Requests:      map[string]uint64{},
		Failures:      map[string]uint64{},
		Inflight:      s.inflight.Load(),
		RoomsTotal:    s.rooms.Load(),
		SkippedTotal:  s.skipped.Load(),
		RendersTotal:  s.renders.Load(),
		DurationMSSum: s.durMS.Load(),
	}
	for k, v := range s.requests {
		st.Requests[k] = v.Load()
	}
	for k, v := range s.failures {
		st.Failures[k] = v.Load()
	}
	return st
}
