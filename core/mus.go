// Copyright 2025 Poiesic Systems
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

package core

import (
	"errors"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS format serializers for the persisted types. Field order is the wire
// format; changing it breaks every existing database.
var (
	IndexEntryMUS   = indexEntryMUS{}
	DocumentMUS     = documentMUS{}
	SearchResultMUS = searchResultMUS{}
	CachedSearchMUS = cachedSearchMUS{}
)

// ErrNegativeLength indicates a corrupt length prefix in serialized data.
var ErrNegativeLength = errors.New("negative length")

// ErrLengthOutOfRange indicates a length prefix claiming more elements than
// the remaining serialized data could hold.
var ErrLengthOutOfRange = errors.New("length prefix exceeds data")

type indexEntryMUS struct{}

func (indexEntryMUS) Marshal(e IndexEntry, bs []byte) (n int) {
	n = ord.String.Marshal(e.ChunkID, bs)
	n += ord.String.Marshal(e.DocumentID, bs[n:])
	n += ord.String.Marshal(e.Content, bs[n:])
	n += ord.String.Marshal(e.Title, bs[n:])
	n += ord.String.Marshal(e.Filename, bs[n:])
	n += marshalStrings(e.Tags, bs[n:])
	n += varint.Int.Marshal(e.WordCount, bs[n:])
	n += varint.Int.Marshal(e.Ordinal, bs[n:])
	n += marshalVector(e.Vector, bs[n:])
	n += ord.String.Marshal(string(e.Provider), bs[n:])
	n += ord.String.Marshal(e.Model, bs[n:])
	n += marshalTime(e.CreatedAt, bs[n:])
	return n
}

func (indexEntryMUS) Unmarshal(bs []byte) (e IndexEntry, n int, err error) {
	var n1 int
	e.ChunkID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	e.DocumentID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Filename, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Tags, n1, err = unmarshalStrings(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.WordCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Ordinal, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Vector, n1, err = unmarshalVector(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var provider string
	provider, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.Provider = ProviderKind(provider)
	e.Model, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	e.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (indexEntryMUS) Size(e IndexEntry) (size int) {
	size = ord.String.Size(e.ChunkID)
	size += ord.String.Size(e.DocumentID)
	size += ord.String.Size(e.Content)
	size += ord.String.Size(e.Title)
	size += ord.String.Size(e.Filename)
	size += sizeStrings(e.Tags)
	size += varint.Int.Size(e.WordCount)
	size += varint.Int.Size(e.Ordinal)
	size += sizeVector(e.Vector)
	size += ord.String.Size(string(e.Provider))
	size += ord.String.Size(e.Model)
	size += sizeTime(e.CreatedAt)
	return size
}

type documentMUS struct{}

func (documentMUS) Marshal(d Document, bs []byte) (n int) {
	n = ord.String.Marshal(d.ID, bs)
	n += ord.String.Marshal(d.Title, bs[n:])
	n += ord.String.Marshal(d.Filename, bs[n:])
	n += ord.String.Marshal(d.MimeType, bs[n:])
	n += marshalStrings(d.Tags, bs[n:])
	n += varint.Int.Marshal(d.WordCount, bs[n:])
	n += varint.Int.Marshal(d.ChunkCount, bs[n:])
	n += marshalTime(d.IngestedAt, bs[n:])
	return n
}

func (documentMUS) Unmarshal(bs []byte) (d Document, n int, err error) {
	var n1 int
	d.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	d.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Filename, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.MimeType, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.Tags, n1, err = unmarshalStrings(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.WordCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.ChunkCount, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	d.IngestedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (documentMUS) Size(d Document) (size int) {
	size = ord.String.Size(d.ID)
	size += ord.String.Size(d.Title)
	size += ord.String.Size(d.Filename)
	size += ord.String.Size(d.MimeType)
	size += sizeStrings(d.Tags)
	size += varint.Int.Size(d.WordCount)
	size += varint.Int.Size(d.ChunkCount)
	size += sizeTime(d.IngestedAt)
	return size
}

type searchResultMUS struct{}

func (searchResultMUS) Marshal(r SearchResult, bs []byte) (n int) {
	n = ord.String.Marshal(r.ChunkID, bs)
	n += ord.String.Marshal(r.DocumentID, bs[n:])
	n += ord.String.Marshal(r.Title, bs[n:])
	n += ord.String.Marshal(r.Content, bs[n:])
	n += raw.Float32.Marshal(r.Score, bs[n:])
	n += varint.Int.Marshal(r.Rank, bs[n:])
	return n
}

func (searchResultMUS) Unmarshal(bs []byte) (r SearchResult, n int, err error) {
	var n1 int
	r.ChunkID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	r.DocumentID, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Score, n1, err = raw.Float32.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	r.Rank, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (searchResultMUS) Size(r SearchResult) (size int) {
	size = ord.String.Size(r.ChunkID)
	size += ord.String.Size(r.DocumentID)
	size += ord.String.Size(r.Title)
	size += ord.String.Size(r.Content)
	size += raw.Float32.Size(r.Score)
	size += varint.Int.Size(r.Rank)
	return size
}

type cachedSearchMUS struct{}

func (cachedSearchMUS) Marshal(c CachedSearch, bs []byte) (n int) {
	n = varint.Int.Marshal(len(c.Results), bs)
	for _, r := range c.Results {
		n += SearchResultMUS.Marshal(r, bs[n:])
	}
	n += varint.Int.Marshal(c.Total, bs[n:])
	n += ord.String.Marshal(string(c.Provider), bs[n:])
	n += marshalTime(c.CreatedAt, bs[n:])
	return n
}

func (cachedSearchMUS) Unmarshal(bs []byte) (c CachedSearch, n int, err error) {
	var length, n1 int
	length, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 {
		err = ErrNegativeLength
		return
	}
	if length > len(bs)-n {
		err = ErrLengthOutOfRange
		return
	}
	if length > 0 {
		c.Results = make([]SearchResult, length)
		for i := 0; i < length; i++ {
			c.Results[i], n1, err = SearchResultMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	c.Total, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var provider string
	provider, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Provider = ProviderKind(provider)
	c.CreatedAt, n1, err = unmarshalTime(bs[n:])
	n += n1
	return
}

func (cachedSearchMUS) Size(c CachedSearch) (size int) {
	size = varint.Int.Size(len(c.Results))
	for _, r := range c.Results {
		size += SearchResultMUS.Size(r)
	}
	size += varint.Int.Size(c.Total)
	size += ord.String.Size(string(c.Provider))
	size += sizeTime(c.CreatedAt)
	return size
}

func marshalStrings(v []string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStrings(bs []byte) (v []string, n int, err error) {
	var length, n1 int
	length, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	// Every string carries at least a one-byte length prefix; bound the
	// element count by the remaining bytes before allocating.
	if length > len(bs)-n {
		return nil, n, ErrLengthOutOfRange
	}
	v = make([]string, length)
	for i := 0; i < length; i++ {
		v[i], n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func sizeStrings(v []string) (size int) {
	size = varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

// Vectors are stored as a length prefix followed by fixed-width IEEE 754
// little-endian float32 values, 4 bytes apiece.
func marshalVector(v []float32, bs []byte) (n int) {
	n = varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) (v []float32, n int, err error) {
	var length, n1 int
	length, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length < 0 {
		return nil, n, ErrNegativeLength
	}
	if length == 0 {
		return nil, n, nil
	}
	// Each component is 4 bytes; a prefix beyond the remaining data means
	// corruption, not a vector worth allocating.
	if length > (len(bs)-n)/4 {
		return nil, n, ErrLengthOutOfRange
	}
	v = make([]float32, length)
	for i := 0; i < length; i++ {
		v[i], n1, err = raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return nil, n, err
		}
	}
	return v, n, nil
}

func sizeVector(v []float32) int {
	return varint.Int.Size(len(v)) + len(v)*raw.Float32.Size(0)
}

// Timestamps travel as Unix microseconds.
func marshalTime(t time.Time, bs []byte) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Marshal(micros, bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	micros, n, err := varint.Int64.Unmarshal(bs)
	if err != nil || micros == 0 {
		return time.Time{}, n, err
	}
	return time.UnixMicro(micros).UTC(), n, nil
}

func sizeTime(t time.Time) int {
	var micros int64
	if !t.IsZero() {
		micros = t.UnixMicro()
	}
	return varint.Int64.Size(micros)
}
