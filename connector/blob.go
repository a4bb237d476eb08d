// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package connector

import (
	"context"
	"io"
	"path"
	"time"

	"gocloud.dev/blob"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/cache"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/schema"
)

// BlobConnector is the Blob-mode Connector (spec.md §6): a gocloud.dev/blob
// bucket rooted at prefix, partitioned by the Mabel scheme, grounded on
// original_source/opteryx/connectors/disk_connector.py's "Blob" mode and
// __mode__/Cacheable/Partitionable capability flags.
type BlobConnector struct {
	bucket *blob.Bucket
	prefix string
	scheme MabelPartitionScheme
	cache  cache.Cache
}

// NewBlobConnector wraps an already-opened bucket. Opening the bucket
// itself (file://, s3://, gs://, ...) is the caller's concern via
// blob.OpenBucket, keeping this connector storage-backend agnostic.
func NewBlobConnector(bucket *blob.Bucket, prefix string) *BlobConnector {
	return &BlobConnector{bucket: bucket, prefix: prefix}
}

// WithCache installs a read-through cache consulted before every bucket
// read. The connector advertises Cacheable either way; a nil cache just
// means every read is a miss that isn't counted.
func (c *BlobConnector) WithCache(cc cache.Cache) *BlobConnector {
	c.cache = cc
	return c
}

func (c *BlobConnector) Mode() Mode { return Blob }

func (c *BlobConnector) Capabilities() Capabilities {
	return Capabilities{Cacheable: true, Partitionable: true}
}

func (c *BlobConnector) GetDatasetSchema(ctx context.Context, dataset string) (schema.Schema, error) {
	blobs, err := c.listDatasetBlobs(ctx, dataset, TemporalRange{})
	if err != nil {
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, errkind.EmptyDataset.New(dataset)
	}
	data, err := readThrough(ctx, c.cache, blobs[0], func() ([]byte, error) {
		return c.bucket.ReadAll(ctx, blobs[0])
	})
	if err != nil {
		return nil, errkind.DatasetNotFound.New(dataset)
	}
	_, sch, err := Decode(blobs[0], data)
	return sch, err
}

func (c *BlobConnector) ReadDataset(ctx context.Context, dataset string, r TemporalRange) (BatchIterator, error) {
	blobs, err := c.listDatasetBlobs(ctx, dataset, r)
	if err != nil {
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, errkind.EmptyDataset.New(dataset)
	}
	return &lazyBlobIterator{bucket: c.bucket, cache: c.cache, names: blobs}, nil
}

func (c *BlobConnector) listDatasetBlobs(ctx context.Context, dataset string, r TemporalRange) ([]string, error) {
	prefix := path.Join(c.prefix, dataset)
	start, end := r.Start, r.End
	if start.IsZero() {
		start = time.Now().UTC()
		end = start
	}
	return c.scheme.GetBlobsInPartition(start, end, c.listFunc(ctx), prefix)
}

func (c *BlobConnector) listFunc(ctx context.Context) ListFunc {
	return func(prefix string) ([]string, error) {
		var names []string
		iter := c.bucket.List(&blob.ListOptions{Prefix: prefix + "/"})
		for {
			obj, err := iter.Next(ctx)
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			names = append(names, obj.Key)
		}
		return names, nil
	}
}

// lazyBlobIterator decodes one blob per Next call rather than eagerly
// reading the whole dataset into memory, keeping the Scanner operator
// streaming per spec.md §5.
type lazyBlobIterator struct {
	bucket *blob.Bucket
	cache  cache.Cache
	names  []string
	pos    int
}

func (it *lazyBlobIterator) Next(ctx context.Context) (*batch.Batch, error) {
	if it.pos >= len(it.names) {
		return nil, nil
	}
	name := it.names[it.pos]
	it.pos++
	data, err := readThrough(ctx, it.cache, name, func() ([]byte, error) {
		return it.bucket.ReadAll(ctx, name)
	})
	if err != nil {
		return nil, errkind.DatasetNotFound.New(name)
	}
	b, _, err := Decode(name, data)
	return b, err
}

func (it *lazyBlobIterator) Close() error { return nil }
