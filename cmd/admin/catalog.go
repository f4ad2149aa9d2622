package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"screepsres/internal/catalog"
)

func catalogCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("catalog", flag.ContinueOnError)
	id := fs.String("id", "", "print one identifier as JSON")
	groups := fs.Bool("groups", false, "print display rows instead of entries")
	if err := fs.Parse(args); err != nil {
		return err
	}
	palette := catalog.Palette()
	colorOf := func(id string) string {
		if c, ok := palette[id]; ok {
			return c
		}
		return catalog.FallbackColor
	}

	if v := strings.TrimSpace(*id); v != "" {
		e, ok := catalog.Lookup(v)
		if !ok {
			return fmt.Errorf("unknown resource %q", v)
		}
		return json.NewEncoder(out).Encode(map[string]any{
			"id":       e.ID,
			"category": e.Category,
			"tier":     e.Tier,
			"index":    e.Index,
			"color":    colorOf(e.ID),
		})
	}

	if *groups {
		for _, g := range catalog.Groups() {
			if _, err := fmt.Fprintf(out, "%s\t%d\t%s\n", g.Category, g.Tier, strings.Join(g.Resources, " ")); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tTIER\tINDEX\tCOLOR")
	for _, e := range catalog.Entries() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", e.ID, e.Category, e.Tier, e.Index, colorOf(e.ID))
	}
	return tw.Flush()
}
