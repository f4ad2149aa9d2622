package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	reslog "screepsres/internal/persistence/log"
	"screepsres/internal/protocol"
)

func auditCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	file := fs.String("file", "", "single audit segment (default: every segment under <data>/audit)")
	user := fs.String("user", "", "username filter")
	failedOnly := fs.Bool("failed", false, "only failed requests")
	code := fs.String("code", "", "error code filter (e.g. E_NO_ROOMS)")
	limit := fs.Int("limit", 0, "print at most the last N matching entries (0 = all)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !protocol.IsKnownCode(*code) {
		return fmt.Errorf("unknown error code %q", *code)
	}

	var files []string
	if f := strings.TrimSpace(*file); f != "" {
		files = []string{f}
	} else {
		var err error
		files, err = filepath.Glob(filepath.Join(*dataDir, "audit", "audit-*.jsonl.zst"))
		if err != nil {
			return err
		}
		// Segment names sort chronologically.
		sort.Strings(files)
	}
	if len(files) == 0 {
		return fmt.Errorf("no audit segments under %s", filepath.Join(*dataDir, "audit"))
	}

	var matched []reslog.RequestEntry
	for _, f := range files {
		entries, err := reslog.ReadEntries(f)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if *user != "" && e.Username != *user {
				continue
			}
			if *failedOnly && e.Code == "" {
				continue
			}
			if *code != "" && e.Code != *code {
				continue
			}
			matched = append(matched, e)
		}
	}
	if *limit > 0 && len(matched) > *limit {
		matched = matched[len(matched)-*limit:]
	}

	enc := json.NewEncoder(out)
	for _, e := range matched {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
