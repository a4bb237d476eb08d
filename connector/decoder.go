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
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zstd"

	"github.com/morselq/morselq/batch"
	"github.com/morselq/morselq/errkind"
	"github.com/morselq/morselq/schema"
	"github.com/morselq/morselq/types"
)

// Decoder turns raw blob bytes into a columnar batch with a typed schema.
type Decoder func(name string, data []byte) (*batch.Batch, schema.Schema, error)

var decoders = map[string]Decoder{
	"jsonl": decodeJSONL,
	"csv":   decodeCSV,
}

// RegisterDecoder adds (or replaces) a decoder under extension ext
// (without the leading dot). parquet/orc/arrow decoding is intentionally
// left for a caller to register behind a build tag bringing in a CGo or
// pure-Go columnar reader; this registry's job is dispatch, not every
// format's implementation.
func RegisterDecoder(ext string, d Decoder) {
	decoders[strings.ToLower(ext)] = d
}

// Decode dispatches on name's extension, falling back to mimetype
// sniffing when the extension is missing or unrecognised.
func Decode(name string, data []byte) (*batch.Batch, schema.Schema, error) {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
	if ext == "gz" || ext == "zst" || ext == "zstd" {
		// A compressed JSONL blob: `orders.jsonl.zst` style double
		// extension. Decompress, then dispatch on the inner extension.
		inner := strings.TrimSuffix(name, path.Ext(name))
		raw, err := decompress(ext, data)
		if err != nil {
			return nil, nil, errkind.UnsupportedFileType.New(name)
		}
		return Decode(inner, raw)
	}
	if d, ok := decoders[ext]; ok {
		return d(name, data)
	}

	mt := mimetype.Detect(data)
	switch {
	case mt.Is("application/json") || strings.Contains(mt.String(), "ndjson"):
		return decodeJSONL(name, data)
	case mt.Is("text/csv") || mt.Is("text/plain"):
		return decodeCSV(name, data)
	}
	return nil, nil, errkind.UnsupportedFileType.New(name)
}

func decompress(ext string, data []byte) ([]byte, error) {
	switch ext {
	case "gz":
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	}
}

func decodeJSONL(name string, data []byte) (*batch.Batch, schema.Schema, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var rows []map[string]interface{}
	var order []string
	seen := map[string]bool{}
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row map[string]interface{}
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, nil, errkind.Internal.New(fmt.Sprintf("%s: malformed JSON line: %v", name, err))
		}
		for k := range row {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errkind.Internal.New(err.Error())
	}

	sch := make(schema.Schema, 0, len(order))
	cols := make([]batch.Column, 0, len(order))
	for _, k := range order {
		col := schema.Column{
			Identity:    schema.NewIdentity(k),
			QueryColumn: k,
			Type:        types.Of(types.VARCHAR),
			Nullable:    true,
		}
		sch = append(sch, col)
		vals := make([]interface{}, len(rows))
		for i, row := range rows {
			vals[i] = row[k]
		}
		cols = append(cols, batch.Column{Identity: col.Identity, Values: vals})
	}
	return batch.New(sch, cols), sch, nil
}

func decodeCSV(name string, data []byte) (*batch.Batch, schema.Schema, error) {
	r := csv.NewReader(bytes.NewReader(data))
	records, err := r.ReadAll()
	if err != nil && err != io.EOF {
		return nil, nil, errkind.Internal.New(fmt.Sprintf("%s: malformed CSV: %v", name, err))
	}
	if len(records) == 0 {
		return batch.Empty(nil), nil, nil
	}
	header := records[0]
	sch := make(schema.Schema, len(header))
	for i, h := range header {
		sch[i] = schema.Column{Identity: schema.NewIdentity(h), QueryColumn: h, Type: types.Of(types.VARCHAR), Nullable: true}
	}
	cols := make([]batch.Column, len(header))
	for i := range header {
		vals := make([]interface{}, 0, len(records)-1)
		for _, row := range records[1:] {
			if i < len(row) {
				vals = append(vals, inferCSVValue(row[i]))
			} else {
				vals = append(vals, nil)
			}
		}
		cols[i] = batch.Column{Identity: sch[i].Identity, Values: vals}
	}
	return batch.New(sch, cols), sch, nil
}

func inferCSVValue(s string) interface{} {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
