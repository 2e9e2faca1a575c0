package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"blobcraft.ai/internal/persistence/r2s3"
)

func buildS3Mirror(ctx context.Context, dataDir string, logger *log.Logger) (*r2s3.Mirror, error) {
	if !envBool("BC_S3_MIRROR", false) {
		return nil, nil
	}
	cfg := r2s3.Config{
		Endpoint:        strings.TrimSpace(os.Getenv("BC_S3_ENDPOINT")),
		Region:          strings.TrimSpace(os.Getenv("BC_S3_REGION")),
		Bucket:          strings.TrimSpace(os.Getenv("BC_S3_BUCKET")),
		AccessKeyID:     strings.TrimSpace(os.Getenv("BC_S3_ACCESS_KEY_ID")),
		SecretAccessKey: strings.TrimSpace(os.Getenv("BC_S3_SECRET_ACCESS_KEY")),
		PathStyle:       envBool("BC_S3_PATH_STYLE", false),
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("BC_S3_MIRROR=true but BC_S3_BUCKET is empty")
	}
	client, err := r2s3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return r2s3.NewMirror(client, dataDir, r2s3.MirrorOptions{
		Prefix:   strings.TrimSpace(os.Getenv("BC_S3_PREFIX")),
		Workers:  envInt("BC_S3_UPLOAD_WORKERS", 2),
		Queue:    envInt("BC_S3_QUEUE", 1024),
		Wait:     25 * time.Millisecond,
		Attempts: envInt("BC_S3_UPLOAD_ATTEMPTS", 4),
	}, logger), nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
