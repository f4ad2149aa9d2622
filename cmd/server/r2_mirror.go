package main

import (
	"log"
	"time"

	"screepsres/internal/config"
	"screepsres/internal/persistence/r2s3"
)

type r2MirrorRuntime struct {
	enabled      bool
	rotateLayout string
	mirror       *r2s3.Mirror
}

func buildR2MirrorRuntime(cfg config.MirrorConfig, dataDir string, logger *log.Logger) (*r2MirrorRuntime, error) {
	if !cfg.Enabled {
		return &r2MirrorRuntime{enabled: false}, nil
	}

	client, err := r2s3.New(r2s3.Credentials{
		Endpoint:        cfg.Endpoint,
		Bucket:          cfg.Bucket,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
	if err != nil {
		return nil, err
	}
	mirror := r2s3.NewMirror(client, r2s3.MirrorConfig{
		DataDir:       dataDir,
		Prefix:        cfg.Prefix,
		Workers:       cfg.Workers,
		QueueCapacity: cfg.QueueCapacity,
		EnqueueWait:   time.Duration(cfg.EnqueueWaitMS) * time.Millisecond,
		Logger:        logger,
	})

	return &r2MirrorRuntime{
		enabled:      true,
		rotateLayout: "2006-01-02-15-04", // 1-minute audit segments so closed files upload promptly.
		mirror:       mirror,
	}, nil
}

func (r *r2MirrorRuntime) Close() {
	if r == nil || r.mirror == nil {
		return
	}
	r.mirror.Close()
}

func (r *r2MirrorRuntime) Enqueue(localPath string) {
	if r == nil || !r.enabled || r.mirror == nil {
		return
	}
	r.mirror.Enqueue(localPath)
}

func (r *r2MirrorRuntime) Stats() (r2s3.Stats, bool) {
	if r == nil || !r.enabled || r.mirror == nil {
		return r2s3.Stats{}, false
	}
	return r.mirror.Stats(), true
}
