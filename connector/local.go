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
	"os"
	"path"
	"time"

	"github.com/spf13/afero"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/schema"
)

// DiskConnector is the Blob-mode Connector over a local (or in-memory,
// for tests) filesystem via afero. Same Mabel partition layout as
// BlobConnector, without the bucket indirection; reading the local disk
// through a byte cache would only add a copy, so it advertises
// Cacheable=false.
type DiskConnector struct {
	fs     afero.Fs
	prefix string
	scheme MabelPartitionScheme
}

// NewDiskConnector reads datasets under prefix on fs. Pass afero.NewOsFs()
// for the real disk or afero.NewMemMapFs() in tests.
func NewDiskConnector(fs afero.Fs, prefix string) *DiskConnector {
	return &DiskConnector{fs: fs, prefix: prefix}
}

func (c *DiskConnector) Mode() Mode { return Blob }

func (c *DiskConnector) Capabilities() Capabilities {
	return Capabilities{Partitionable: true}
}

func (c *DiskConnector) GetDatasetSchema(ctx context.Context, dataset string) (schema.Schema, error) {
	blobs, err := c.listDatasetBlobs(dataset, TemporalRange{})
	if err != nil {
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, errkind.EmptyDataset.New(dataset)
	}
	data, err := afero.ReadFile(c.fs, blobs[0])
	if err != nil {
		return nil, errkind.DatasetNotFound.New(dataset)
	}
	_, sch, err := Decode(blobs[0], data)
	return sch, err
}

func (c *DiskConnector) ReadDataset(ctx context.Context, dataset string, r TemporalRange) (BatchIterator, error) {
	blobs, err := c.listDatasetBlobs(dataset, r)
	if err != nil {
		return nil, err
	}
	if len(blobs) == 0 {
		return nil, errkind.EmptyDataset.New(dataset)
	}
	return &diskIterator{fs: c.fs, names: blobs}, nil
}

func (c *DiskConnector) listDatasetBlobs(dataset string, r TemporalRange) ([]string, error) {
	prefix := path.Join(c.prefix, dataset)
	start, end := r.Start, r.End
	if start.IsZero() {
		start = time.Now().UTC()
		end = start
	}
	return c.scheme.GetBlobsInPartition(start, end, c.list, prefix)
}

// list enumerates every file under prefix, the ListFunc shape the Mabel
// scheme walks one directory level at a time.
func (c *DiskConnector) list(prefix string) ([]string, error) {
	exists, err := afero.DirExists(c.fs, prefix)
	if err != nil || !exists {
		return nil, err
	}
	var names []string
	err = afero.Walk(c.fs, prefix, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			names = append(names, p)
		}
		return nil
	})
	return names, err
}

type diskIterator struct {
	fs    afero.Fs
	names []string
	pos   int
}

func (it *diskIterator) Next(ctx context.Context) (*batch.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if it.pos >= len(it.names) {
		return nil, nil
	}
	name := it.names[it.pos]
	it.pos++
	data, err := afero.ReadFile(it.fs, name)
	if err != nil {
		return nil, errkind.DatasetNotFound.New(name)
	}
	b, _, err := Decode(name, data)
	return b, err
}

func (it *diskIterator) Close() error { return nil }
