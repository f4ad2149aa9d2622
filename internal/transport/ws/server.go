package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"screepsres/internal/aggregate"
	"screepsres/internal/protocol"
	"screepsres/internal/report"
)

// Querier is the report operation served over the socket.
type Querier interface {
	Totals(ctx context.Context, q report.Query) (aggregate.ShardTotals, error)
}

type Options struct {
	// MaxInflight caps concurrent queries per connection; further queries wait for a slot.
	MaxInflight int
	ReadTimeout time.Duration
	Logger      *log.Logger
}

// Server answers RES_QUERY messages with RES_RESULT messages. Replies may arrive out of order;
// clients correlate them by id.
type Server struct {
	svc  Querier
	log  *log.Logger
	opts Options

	upgrader websocket.Upgrader
}

func NewServer(svc Querier, opts Options) *Server {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 8
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		svc:  svc,
		log:  logger,
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan protocol.ResResultMsg, s.opts.MaxInflight*2)
		sem := make(chan struct{}, s.opts.MaxInflight)
		var inflight sync.WaitGroup

		// Writer goroutine.
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-out:
					if err := writeJSON(conn, msg); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		send := func(msg protocol.ResResultMsg) {
			select {
			case out <- msg:
			case <-ctx.Done():
			}
		}

		// Reader loop.
		queries := 0
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.opts.ReadTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			q, reject := decodeQuery(msg)
			if reject != nil {
				send(*reject)
				continue
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
			queries++
			inflight.Add(1)
			go func(q protocol.ResQueryMsg) {
				defer inflight.Done()
				defer func() { <-sem }()
				send(s.answer(ctx, q))
			}(q)
		}

		cancel()
		inflight.Wait()
		<-writerDone
		s.log.Printf("ws closed remote=%s queries=%d", r.RemoteAddr, queries)
	}
}

func (s *Server) answer(ctx context.Context, q protocol.ResQueryMsg) protocol.ResResultMsg {
	res := protocol.ResResultMsg{
		Type:            protocol.TypeResResult,
		ProtocolVersion: protocol.Version,
		ID:              q.ID,
	}
	totals, err := s.svc.Totals(ctx, report.Query{ID: q.ID, Transport: "ws", Username: q.Username, Shard: q.Shard})
	if err != nil {
		res.Error = err.Error()
		res.Code = report.CodeFor(err)
		return res
	}
	res.Success = true
	res.Data = totals.Plain()
	return res
}

// decodeQuery parses a RES_QUERY or returns the RES_RESULT that rejects it.
func decodeQuery(msg []byte) (protocol.ResQueryMsg, *protocol.ResResultMsg) {
	reject := func(id, reason string) *protocol.ResResultMsg {
		return &protocol.ResResultMsg{
			Type:            protocol.TypeResResult,
			ProtocolVersion: protocol.Version,
			ID:              id,
			Error:           reason,
			Code:            protocol.ErrProtoBadRequest,
		}
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return protocol.ResQueryMsg{}, reject("", "invalid json")
	}
	var q protocol.ResQueryMsg
	if err := json.Unmarshal(msg, &q); err != nil {
		return q, reject("", "invalid RES_QUERY")
	}
	if base.Type != protocol.TypeResQuery {
		return q, reject(q.ID, "unsupported message type: "+base.Type)
	}
	if q.ProtocolVersion != "" && q.ProtocolVersion != protocol.Version {
		return q, reject(q.ID, "bad protocol_version")
	}
	return q, nil
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
