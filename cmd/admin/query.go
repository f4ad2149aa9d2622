package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"screepsres/internal/aggregate"
	"screepsres/internal/config"
	"screepsres/internal/render"
	"screepsres/internal/screeps"
)

func queryCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath, "server config path")
	user := fs.String("user", "", "player username (required)")
	shard := fs.String("shard", aggregate.AllShards, "shard filter")
	image := fs.Bool("image", false, "also render the PNG into the data dir")
	dataDir := fs.String("data", "", "data dir override for -image")
	timeout := fs.Duration("timeout", 2*time.Minute, "overall deadline")
	verbose := fs.Bool("v", false, "log skipped rooms to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		return fmt.Errorf("missing -user")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if v := strings.TrimSpace(*dataDir); v != "" {
		cfg.Server.DataDir = v
	}

	client, err := screeps.New(screeps.Config{
		BaseURL:     cfg.Screeps.BaseURL,
		Token:       cfg.Screeps.Token,
		HTTPTimeout: cfg.HTTPTimeout(),
	})
	if err != nil {
		return err
	}
	aggOpts := aggregate.Options{RequestTimeout: cfg.RequestTimeout()}
	if *verbose {
		aggOpts.Logger = log.New(os.Stderr, "[aggregate] ", log.LstdFlags|log.Lmicroseconds)
	}
	agg := aggregate.New(client, aggOpts)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := agg.Run(ctx, *user, *shard)
	if err != nil {
		return err
	}

	result := map[string]any{
		"username": *user,
		"shard":    *shard,
		"rooms":    res.Rooms,
		"skipped":  res.Skipped,
		"data":     res.Shards.Plain(),
	}
	if *image {
		opts := render.DefaultOptions(cfg.Server.DataDir)
		opts.Gap = cfg.Render.Gap
		opts.Background = cfg.Render.Background
		opts.HeaderColor = cfg.Render.HeaderColor
		opts.FooterColor = cfg.Render.FooterColor
		r, err := render.NewRenderer(opts)
		if err != nil {
			return err
		}
		path, err := r.Render(res.Shards, *user, *shard)
		if err != nil {
			return err
		}
		result["image"] = path
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
