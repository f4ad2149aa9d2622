package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	_ "modernc.org/sqlite"

	"screepsres/internal/persistence/indexdb"
)

func rendersCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("renders", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/renders.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	asJSON := fs.Bool("json", false, "print JSON lines instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "renders.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("render index: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	rows, err := indexdb.ListRenders(context.Background(), db, *limit)
	if err != nil {
		return fmt.Errorf("query %s: %w", path, err)
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		for _, r := range rows {
			if err := enc.Encode(map[string]any{
				"username":    r.Username,
				"shard":       r.Shard,
				"path":        r.Path,
				"rendered_at": r.RenderedAt,
				"rooms":       r.Rooms,
				"resources":   r.Resources,
				"bytes":       r.Bytes,
			}); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tSHARD\tRENDERED_AT\tROOMS\tRESOURCES\tBYTES\tPATH")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n", r.Username, r.Shard, r.RenderedAt.Local().Format("2006/01/02 15:04:05"), r.Rooms, r.Resources, r.Bytes, r.Path)
	}
	return tw.Flush()
}
