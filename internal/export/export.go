// Copyright 2026 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package export ships finished run records to external sinks. A
// failed export never fails the run that produced the record.
package export

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/boardroom/internal/env"
	"github.com/cloudwego/boardroom/pipeline"
)

// Exporter sends one run record to an external system.
type Exporter interface {
	Export(ctx context.Context, rec *pipeline.Record) error
}

// Noop drops records. The default when no destination is configured.
type Noop struct{}

func (Noop) Export(ctx context.Context, rec *pipeline.Record) error {
	return nil
}

const (
	DestinationNone   = "none"
	DestinationNDJSON = "ndjson"
	DestinationMinIO  = "minio"
)

// Config selects and parameterizes the record sink.
type Config struct {
	Destination string

	// NDJSON
	Path string

	// MinIO
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	Bucket    string
}

func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("BOARDROOM_MINIO_USE_SSL", false)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Destination: env.String("BOARDROOM_EXPORT", DestinationNone),
		Path:        env.String("BOARDROOM_EXPORT_PATH", "boardroom-runs.ndjson"),
		Endpoint:    env.String("BOARDROOM_MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:   env.String("BOARDROOM_MINIO_ACCESS_KEY", ""),
		SecretKey:   env.String("BOARDROOM_MINIO_SECRET_KEY", ""),
		Region:      env.String("BOARDROOM_MINIO_REGION", "us-east-1"),
		UseSSL:      useSSL,
		Bucket:      env.String("BOARDROOM_MINIO_BUCKET", "boardroom-runs"),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Destination)) {
	case "", DestinationNone:
		return nil
	case DestinationNDJSON:
		if strings.TrimSpace(c.Path) == "" {
			return fmt.Errorf("export path is required")
		}
		return nil
	case DestinationMinIO:
		if strings.TrimSpace(c.Endpoint) == "" {
			return fmt.Errorf("minio endpoint is required")
		}
		if strings.Contains(c.Endpoint, "://") {
			return fmt.Errorf("minio endpoint must not include scheme: %q", c.Endpoint)
		}
		if strings.TrimSpace(c.AccessKey) == "" || strings.TrimSpace(c.SecretKey) == "" {
			return fmt.Errorf("minio credentials are required")
		}
		if strings.TrimSpace(c.Bucket) == "" {
			return fmt.Errorf("minio bucket is required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported export destination: %s", c.Destination)
	}
}

// New builds the exporter the config names.
func New(cfg Config) (Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Destination)) {
	case "", DestinationNone:
		return Noop{}, nil
	case DestinationNDJSON:
		return NewNDJSONFileExporter(cfg.Path)
	case DestinationMinIO:
		return NewMinIOExporter(cfg)
	default:
		return nil, fmt.Errorf("unsupported export destination: %s", cfg.Destination)
	}
}
