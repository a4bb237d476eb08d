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
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/morselq/morselq/errkind"
)

// ListFunc lists every blob name under prefix; connectors supply this
// over their own storage (gocloud.dev/blob bucket, afero filesystem, ...).
type ListFunc func(prefix string) ([]string, error)

// MabelPartitionScheme interprets paths of the form
// <prefix>/year_YYYY/month_MM/day_DD[/by_hour/hour=HH]/as_at_<token>/...
// the exact layout original_source/opteryx/managers/schemes/mabel_partitions.py
// walks.
type MabelPartitionScheme struct{}

// GetBlobsInPartition lists every blob belonging to the partition for
// every hour in [start, end], resolving each hour's latest complete
// `as_at_<token>` directory and skipping incomplete or ignored ones, with
// results deduplicated across hours and returned in sorted order.
func (MabelPartitionScheme) GetBlobsInPartition(start, end time.Time, list ListFunc, prefix string) ([]string, error) {
	seen := map[string]struct{}{}
	var out []string

	for day := start.Truncate(24 * time.Hour); !day.After(end); day = day.Add(24 * time.Hour) {
		dayPrefix := path.Join(prefix,
			fmt.Sprintf("year_%04d", day.Year()),
			fmt.Sprintf("month_%02d", int(day.Month())),
			fmt.Sprintf("day_%02d", day.Day()),
		)

		entries, err := list(dayPrefix)
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			continue
		}

		byHourDirs, asAtDirs := splitSegmentation(entries, dayPrefix)
		if len(byHourDirs) > 0 {
			for hour := 0; hour < 24; hour++ {
				hourTime := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
				if hourTime.Before(start.Truncate(time.Hour)) || hourTime.After(end) {
					continue
				}
				hourPrefix := path.Join(dayPrefix, "by_hour", fmt.Sprintf("hour=%02d", hour))
				hourEntries, err := list(hourPrefix)
				if err != nil {
					return nil, err
				}
				blobs, err := resolveAsAt(hourEntries, hourPrefix, list)
				if err != nil {
					return nil, err
				}
				addUnique(&out, seen, blobs)
			}
			continue
		}

		if len(asAtDirs) > 0 {
			blobs, err := resolveAsAt(entries, dayPrefix, list)
			if err != nil {
				return nil, err
			}
			addUnique(&out, seen, blobs)
			continue
		}

		return nil, errkind.UnsupportedSegmentation.New(dayPrefix)
	}

	sort.Strings(out)
	return out, nil
}

func splitSegmentation(entries []string, prefix string) (byHour, asAt []string) {
	for _, e := range entries {
		rel := strings.TrimPrefix(strings.TrimPrefix(e, prefix), "/")
		top := strings.SplitN(rel, "/", 2)[0]
		switch {
		case top == "by_hour":
			byHour = append(byHour, e)
		case strings.HasPrefix(top, "as_at_"):
			asAt = append(asAt, e)
		}
	}
	return byHour, asAt
}

// resolveAsAt picks the most recent as_at_<token> directory under prefix
// that has a sibling frame.complete marker and no frame.ignore marker,
// then returns every blob beneath it.
func resolveAsAt(entries []string, prefix string, list ListFunc) ([]string, error) {
	tokens := map[string]bool{}
	for _, e := range entries {
		rel := strings.TrimPrefix(strings.TrimPrefix(e, prefix), "/")
		top := strings.SplitN(rel, "/", 2)[0]
		if strings.HasPrefix(top, "as_at_") {
			tokens[top] = true
		}
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	sorted := make([]string, 0, len(tokens))
	for t := range tokens {
		sorted = append(sorted, t)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))

	for _, token := range sorted {
		dir := path.Join(prefix, token)
		dirEntries, err := list(dir)
		if err != nil {
			return nil, err
		}
		complete, ignore := false, false
		var blobs []string
		for _, e := range dirEntries {
			base := path.Base(e)
			switch base {
			case "frame.complete":
				complete = true
			case "frame.ignore":
				ignore = true
			default:
				blobs = append(blobs, e)
			}
		}
		if ignore || !complete {
			continue
		}
		return blobs, nil
	}
	return nil, nil
}

func addUnique(out *[]string, seen map[string]struct{}, blobs []string) {
	for _, b := range blobs {
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		*out = append(*out, b)
	}
}

// parseAsAtToken extracts the sortable suffix of an as_at_<token>
// directory name. Nothing in the package calls it; ordering uses the
// lexical token (as_at_ tokens are zero-padded timestamps upstream, so
// lexical and chronological order coincide).
func parseAsAtToken(name string) (int64, error) {
	token := strings.TrimPrefix(name, "as_at_")
	return strconv.ParseInt(token, 10, 64)
}
