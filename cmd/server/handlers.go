package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"sort"
	"strconv"
	"strings"

	"screepsres/internal/protocol"
	"screepsres/internal/report"
)

type muxDeps struct {
	svc    *report.Service
	ws     http.Handler
	index  renderIndex
	mirror *r2MirrorRuntime
	logger *log.Logger

	enableAdmin bool
	enablePprof bool
}

func buildMux(d muxDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(rw, r)
			return
		}
		_, _ = io.WriteString(rw, "Hello, World!")
	})
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeServiceMetrics(rw, d.svc.Stats())
		if d.index != nil {
			fmt.Fprintf(rw, "# HELP screepsres_index_dropped_total Render index rows dropped because the writer queue was full.\n")
			fmt.Fprintf(rw, "# TYPE screepsres_index_dropped_total counter\n")
			fmt.Fprintf(rw, "screepsres_index_dropped_total %d\n", d.index.Dropped())
		}
		writeR2MirrorMetrics(rw, d.mirror)
	})
	mux.HandleFunc("/res", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q := queryFrom(r, "http")
		totals, err := d.svc.Totals(r.Context(), q)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, report.ErrBadRequest) {
				status = http.StatusBadRequest
			}
			writeJSON(rw, status, protocol.ResResponse{Success: false, Error: err.Error(), Code: report.CodeFor(err)})
			return
		}
		writeJSON(rw, http.StatusOK, protocol.ResResponse{Success: true, Data: totals.Plain()})
	})
	mux.HandleFunc("/res/image", func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		q := queryFrom(r, "http")
		path, err := d.svc.Image(r.Context(), q)
		if err != nil {
			status := http.StatusNotFound
			if errors.Is(err, report.ErrBadRequest) {
				status = http.StatusBadRequest
			}
			http.Error(rw, "Error: "+err.Error(), status)
			return
		}
		f, err := os.Open(path)
		if err != nil {
			http.Error(rw, "File not found: "+err.Error(), http.StatusNotFound)
			return
		}
		defer f.Close()
		rw.Header().Set("Content-Type", "image/jpeg")
		if st, err := f.Stat(); err == nil {
			rw.Header().Set("Content-Length", strconv.FormatInt(st.Size(), 10))
		}
		rw.WriteHeader(http.StatusOK)
		if _, err := io.Copy(rw, f); err != nil {
			d.logger.Printf("image stream aborted path=%s err=%v", path, err)
		}
	})
	if d.ws != nil {
		mux.Handle("/res/ws", d.ws)
	}

	if d.enableAdmin {
		// Local-only admin endpoints.
		mux.HandleFunc("/admin/v1/renders", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			if d.index == nil {
				http.Error(rw, "render index disabled", http.StatusNotFound)
				return
			}
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			rows, err := d.index.List(r.Context(), limit)
			if err != nil {
				writeJSON(rw, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
				return
			}
			type renderJSON struct {
				Username   string `json:"username"`
				Shard      string `json:"shard"`
				Path       string `json:"path"`
				RenderedAt string `json:"rendered_at"`
				Rooms      int    `json:"rooms"`
				Resources  int    `json:"resources"`
				Bytes      int64  `json:"bytes"`
			}
			out := make([]renderJSON, 0, len(rows))
			for _, row := range rows {
				out = append(out, renderJSON{
					Username:   row.Username,
					Shard:      row.Shard,
					Path:       row.Path,
					RenderedAt: row.RenderedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
					Rooms:      row.Rooms,
					Resources:  row.Resources,
					Bytes:      row.Bytes,
				})
			}
			writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "renders": out})
		})
	}
	if d.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

func queryFrom(r *http.Request, transport string) report.Query {
	v := r.URL.Query()
	return report.Query{
		ID:        strings.TrimSpace(r.Header.Get("X-Request-Id")),
		Transport: transport,
		Username:  v.Get("username"),
		Shard:     v.Get("shard"),
	}
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeServiceMetrics(rw io.Writer, s report.Stats) {
	// Minimal Prometheus exposition format.
	fmt.Fprintf(rw, "# HELP screepsres_requests_total Report requests by kind.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_requests_total counter\n")
	for _, k := range sortedKeys(s.Requests) {
		fmt.Fprintf(rw, "screepsres_requests_total{kind=%q} %d\n", k, s.Requests[k])
	}

	fmt.Fprintf(rw, "# HELP screepsres_request_failures_total Failed report requests by error code.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_request_failures_total counter\n")
	for _, k := range sortedKeys(s.Failures) {
		fmt.Fprintf(rw, "screepsres_request_failures_total{code=%q} %d\n", k, s.Failures[k])
	}

	fmt.Fprintf(rw, "# HELP screepsres_requests_inflight Report requests currently running.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_requests_inflight gauge\n")
	fmt.Fprintf(rw, "screepsres_requests_inflight %d\n", s.Inflight)

	fmt.Fprintf(rw, "# HELP screepsres_rooms_queried_total Rooms queried by successful aggregations.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_rooms_queried_total counter\n")
	fmt.Fprintf(rw, "screepsres_rooms_queried_total %d\n", s.RoomsTotal)

	fmt.Fprintf(rw, "# HELP screepsres_rooms_skipped_total Rooms whose inventory query reported a logical failure.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_rooms_skipped_total counter\n")
	fmt.Fprintf(rw, "screepsres_rooms_skipped_total %d\n", s.SkippedTotal)

	fmt.Fprintf(rw, "# HELP screepsres_renders_total Images rendered.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_renders_total counter\n")
	fmt.Fprintf(rw, "screepsres_renders_total %d\n", s.RendersTotal)

	fmt.Fprintf(rw, "# HELP screepsres_request_duration_ms_sum Total time spent serving report requests.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_request_duration_ms_sum counter\n")
	fmt.Fprintf(rw, "screepsres_request_duration_ms_sum %d\n", s.DurationMSSum)
}

func writeR2MirrorMetrics(rw io.Writer, mirror *r2MirrorRuntime) {
	s, ok := mirror.Stats()
	if !ok {
		return
	}
	fmt.Fprintf(rw, "# HELP screepsres_r2_mirror_queue_depth Current mirror queue depth.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_r2_mirror_queue_depth gauge\n")
	fmt.Fprintf(rw, "screepsres_r2_mirror_queue_depth %d\n", s.QueueDepth)

	fmt.Fprintf(rw, "# HELP screepsres_r2_mirror_queue_capacity Mirror queue capacity.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_r2_mirror_queue_capacity gauge\n")
	fmt.Fprintf(rw, "screepsres_r2_mirror_queue_capacity %d\n", s.QueueCapacity)

	fmt.Fprintf(rw, "# HELP screepsres_r2_mirror_enqueued_total Total mirror enqueue attempts.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_r2_mirror_enqueued_total counter\n")
	fmt.Fprintf(rw, "screepsres_r2_mirror_enqueued_total %d\n", s.EnqueuedTotal)

	fmt.Fprintf(rw, "# HELP screepsres_r2_mirror_dropped_total Files dropped because the queue stayed saturated.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_r2_mirror_dropped_total counter\n")
	fmt.Fprintf(rw, "screepsres_r2_mirror_dropped_total %d\n", s.DroppedTotal)

	fmt.Fprintf(rw, "# HELP screepsres_r2_mirror_upload_success_total Successful mirror uploads.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_r2_mirror_upload_success_total counter\n")
	fmt.Fprintf(rw, "screepsres_r2_mirror_upload_success_total %d\n", s.UploadSuccessTotal)

	fmt.Fprintf(rw, "# HELP screepsres_r2_mirror_upload_fail_total Failed mirror uploads after retry.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_r2_mirror_upload_fail_total counter\n")
	fmt.Fprintf(rw, "screepsres_r2_mirror_upload_fail_total %d\n", s.UploadFailTotal)

	fmt.Fprintf(rw, "# HELP screepsres_r2_mirror_last_success_unix Unix timestamp of last successful upload.\n")
	fmt.Fprintf(rw, "# TYPE screepsres_r2_mirror_last_success_unix gauge\n")
	fmt.Fprintf(rw, "screepsres_r2_mirror_last_success_unix %d\n", s.LastSuccessUnix)
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
