/*
 * Copyright 2021 National Library of Norway.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *       http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package warcstream

import (
	"bufio"
	"compress/gzip"
	"io"
)

// countingByteReader hands bytes to the decompressor while tracking the
// absolute raw offset consumed. Implementing io.ByteReader keeps the flate
// decoder from reading ahead of a member boundary, so the count is exact at
// the moment a member ends.
type countingByteReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingByteReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingByteReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

// memberReader decompresses a concatenation of gzip members one member at a
// time. The raw byte offset at which the current member starts is a
// first-class result of advancing to it, available from MemberOffset.
//
// Reads continue transparently into the next member. When a member ends, the
// raw cursor sits exactly at the start of the following member; that position
// is captured before any of the new member's bytes are consumed, which is the
// only point where it can be read reliably.
type memberReader struct {
	cr          *countingByteReader
	zr          *gzip.Reader
	memberStart int64
	done        bool
}

// newMemberReader wraps r, which must be positioned at the start of a gzip
// member. base is the raw byte offset of that position.
func newMemberReader(r io.Reader, base int64) (*memberReader, error) {
	cr := &countingByteReader{r: bufio.NewReaderSize(r, chunkSize), n: base}
	zr, err := gzip.NewReader(cr)
	if err != nil {
		return nil, err
	}
	zr.Multistream(false)
	return &memberReader{cr: cr, zr: zr, memberStart: base}, nil
}

func (m *memberReader) Read(p []byte) (int, error) {
	if m.done {
		return 0, io.EOF
	}
	for {
		n, err := m.zr.Read(p)
		if err == io.EOF {
			// The current member is exhausted and the raw cursor sits at the
			// start of the next member, if any.
			start := m.cr.n
			if e := m.zr.Reset(m.cr); e != nil {
				m.done = true
				if e != io.EOF {
					return n, e
				}
				if n > 0 {
					return n, nil
				}
				return 0, io.EOF
			}
			m.zr.Multistream(false)
			m.memberStart = start
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (m *memberReader) ReadByte() (byte, error) {
	var b [1]byte
	for {
		n, err := m.Read(b[:])
		if n == 1 {
			return b[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

// MemberOffset returns the raw byte offset at which the member currently
// being decoded starts.
func (m *memberReader) MemberOffset() int64 {
	return m.memberStart
}

func (m *memberReader) Close() error {
	if m.zr == nil {
		return nil
	}
	return m.zr.Close()
}
