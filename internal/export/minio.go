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

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/cloudwego/boardroom/pipeline"
)

// MinIOExporter writes each record as one JSON object under
// runs/<date>/<run_id>.json.
type MinIOExporter struct {
	client *minio.Client
	bucket string
	region string
}

func NewMinIOExporter(cfg Config) (*MinIOExporter, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "minio client")
	}
	return &MinIOExporter{
		client: client,
		bucket: cfg.Bucket,
		region: cfg.Region,
	}, nil
}

// EnsureBucket creates the configured bucket when it does not exist.
func (e *MinIOExporter) EnsureBucket(ctx context.Context) error {
	exists, err := e.client.BucketExists(ctx, e.bucket)
	if err != nil {
		return errors.Wrapf(err, "bucket %s exists", e.bucket)
	}
	if exists {
		return nil
	}
	return e.client.MakeBucket(ctx, e.bucket, minio.MakeBucketOptions{Region: e.region})
}

func (e *MinIOExporter) Export(ctx context.Context, rec *pipeline.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "marshal run record")
	}
	key := objectKey(rec)
	_, err = e.client.PutObject(ctx, e.bucket, key, bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return errors.Wrapf(err, "put %s", key)
	}
	return nil
}

func objectKey(rec *pipeline.Record) string {
	return fmt.Sprintf("runs/%s/%s.json", rec.StartedAt.UTC().Format("2006-01-02"), rec.RunID)
}
