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
	"errors"
	"fmt"
	"io"

	"github.com/nlnwa/warcstream/internal/countingreader"
)

// chunkSize is the read size used when draining the remainder of a record.
const chunkSize = 8192

// delimiterLen is the length of the end of record delimiter (\r\n\r\n). The
// last delimiterLen bytes of a record's declared length are never surrendered
// to content reads.
const delimiterLen = 4

// window models the remaining-content counter as explicit tagged state:
// either unbounded (no record is being read) or bounded with the number of
// bytes left to the end of the current record. The parser arms it, reads
// consume it and draining unsets it.
type window struct {
	bounded   bool
	remaining int64
}

func (w *window) arm(n int64) {
	w.bounded = true
	w.remaining = n
}

func (w *window) reset() {
	w.bounded = false
	w.remaining = 0
}

func (w *window) consume(n int64) {
	if w.bounded {
		w.remaining -= n
	}
}

// contentLimit returns the clamp for content reads: remaining minus the
// trailing delimiter, floored at zero. A negative result means no limit.
func (w *window) contentLimit() int64 {
	if !w.bounded {
		return -1
	}
	lim := w.remaining - delimiterLen
	if lim < 0 {
		lim = 0
	}
	return lim
}

type byteSource interface {
	io.Reader
	io.ByteReader
}

// Stream reads records from an archive channel. It owns the channel
// exclusively and is not safe for concurrent use: the remaining-content
// window and the channel cursor are shared mutable state, so seek, read and
// parse sequences must be serialized by the caller.
type Stream struct {
	framing   Framing
	opts      *options
	parser    RecordParser
	marshaler Marshaler

	raw    io.ReadCloser
	seeker io.Seeker // nil when the channel is not seekable
	base   int64     // raw offset corresponding to the start of the source

	src      byteSource
	br       *bufio.Reader         // buffered view under plain framing
	counting *countingreader.Reader // raw accounting under plain framing
	members  *memberReader         // per-record gzip framing
	zr       *gzip.Reader          // whole-file gzip framing
	gzw      *gzip.Writer          // whole-file gzip write path

	window window
	closed bool
}

// NewStream wraps an already opened channel in a record stream with an
// explicit framing. The stream takes ownership of the channel and closes it
// when the stream is closed.
func NewStream(channel io.ReadCloser, framing Framing, opts ...Option) (*Stream, error) {
	if framing == FramingAuto {
		return nil, errors.New("warcstream: framing must be resolved before creating a stream")
	}
	o := newOptions(opts...)
	s := &Stream{
		framing:   framing,
		opts:      o,
		parser:    o.parser,
		marshaler: o.marshaler,
		raw:       channel,
	}
	if seeker, ok := channel.(io.Seeker); ok {
		s.seeker = seeker
		pos, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		s.base = pos
	}
	if err := s.resetSource(); err != nil {
		return nil, err
	}
	return s, nil
}

// resetSource rebuilds the decoded view of the raw channel for the stream's
// framing, assuming the raw cursor sits at s.base.
func (s *Stream) resetSource() error {
	switch s.framing {
	case FramingPlain:
		s.counting = countingreader.New(s.raw)
		s.br = bufio.NewReaderSize(s.counting, chunkSize)
		s.src = s.br
	case FramingGzipRecord:
		m, err := newMemberReader(s.raw, s.base)
		if err != nil {
			return err
		}
		s.members = m
		s.src = m
	case FramingGzipFile:
		zr, err := gzip.NewReader(bufio.NewReaderSize(s.raw, chunkSize))
		if err != nil {
			return err
		}
		s.zr = zr
		s.src = bufio.NewReaderSize(zr, chunkSize)
	default:
		return ErrUnknownFraming
	}
	return nil
}

// Seek repositions the raw channel. It is the caller's responsibility to land
// on a record boundary. Under whole-file gzip framing no record-aligned
// boundary exists in the compressed domain, so the offset is interpreted in
// the decompressed domain counted from the start of the archive.
func (s *Stream) Seek(offset int64) error {
	if s.closed {
		return errStreamClosed
	}
	if s.seeker == nil {
		return errNotSeekable
	}
	s.window.reset()
	switch s.framing {
	case FramingGzipFile:
		if _, err := s.seeker.Seek(0, io.SeekStart); err != nil {
			return err
		}
		s.base = 0
		if err := s.resetSource(); err != nil {
			return err
		}
		if offset > 0 {
			if _, err := io.CopyN(io.Discard, s.src, offset); err != nil {
				return err
			}
		}
		return nil
	default:
		if _, err := s.seeker.Seek(offset, io.SeekStart); err != nil {
			return err
		}
		s.base = offset
		return s.resetSource()
	}
}

// Read reads up to n content bytes from the current record. When the
// remaining-content window is armed the request is clamped so that reads
// never cross into the end of record delimiter or the next record. A negative
// n reads to the end of the current record's content, or to the end of the
// stream when no window is armed.
func (s *Stream) Read(n int) ([]byte, error) {
	if s.closed {
		return nil, errStreamClosed
	}
	lim := s.window.contentLimit()
	if n >= 0 && (lim < 0 || int64(n) < lim) {
		lim = int64(n)
	}
	return s.readRaw(lim)
}

// readRaw reads exactly lim bytes if available, tolerating a short read at
// end of stream. A negative lim reads everything. The window is decremented
// by the number of bytes actually consumed.
func (s *Stream) readRaw(lim int64) ([]byte, error) {
	if lim == 0 {
		return nil, nil
	}
	if lim < 0 {
		data, err := io.ReadAll(s.src)
		s.window.consume(int64(len(data)))
		return data, err
	}
	buf := make([]byte, lim)
	n, err := io.ReadFull(s.src, buf)
	s.window.consume(int64(n))
	if err == io.ErrUnexpectedEOF {
		return buf[:n], nil
	}
	if err == io.EOF {
		return nil, io.EOF
	}
	return buf[:n], err
}

// ReadLine reads one content line including its line ending, subject to the
// same clamping as Read. A maxLen of zero or less means no length limit.
func (s *Stream) ReadLine(maxLen int) ([]byte, error) {
	if s.closed {
		return nil, errStreamClosed
	}
	lim := s.window.contentLimit()
	if maxLen > 0 && (lim < 0 || int64(maxLen) < lim) {
		lim = int64(maxLen)
	}
	if lim == 0 {
		return nil, nil
	}
	var line []byte
	for lim < 0 || int64(len(line)) < lim {
		b, err := s.src.ReadByte()
		if err != nil {
			s.window.consume(int64(len(line)))
			if err == io.EOF {
				if len(line) > 0 {
					return line, nil
				}
				return nil, io.EOF
			}
			return line, err
		}
		line = append(line, b)
		if b == lf {
			break
		}
	}
	s.window.consume(int64(len(line)))
	return line, nil
}

// BeginRecord arms the remaining-content window. It is called by the record
// parser once the declared content length of the record being parsed is
// known.
func (s *Stream) BeginRecord(remaining int64) {
	s.window.arm(remaining)
}

// drainRemainder skips any unconsumed bytes of the current record in fixed
// size chunks so the cursor lands exactly at the next record's start. A short
// read is a fatal truncation. Draining with no armed window is a calling
// discipline error, not silently tolerated.
func (s *Stream) drainRemainder() error {
	if !s.window.bounded {
		return errors.New("warcstream: remaining-content window is unset, cannot drain to end of record")
	}
	buf := make([]byte, chunkSize)
	for s.window.remaining > 0 {
		n := chunkSize
		if s.window.remaining < chunkSize {
			n = int(s.window.remaining)
		}
		read, err := io.ReadFull(s.src, buf[:n])
		s.window.remaining -= int64(read)
		if err != nil {
			return fmt.Errorf("warcstream: truncated record: expected %d bytes but read %d: %w", n, read, err)
		}
	}
	s.window.reset()
	return nil
}

// tell returns the raw channel position accounted for buffered readahead.
func (s *Stream) tell() (int64, error) {
	if s.seeker == nil {
		return 0, errNotSeekable
	}
	return s.base + s.counting.N() - int64(s.br.Buffered()), nil
}

// RecordReading is one result of advancing a stream by one record: the
// record's offset when the framing provides one, the record itself when one
// was parsed, and any errors the parser reported. A nil Record with no errors
// is a clean end of stream; a nil Record with errors is a structural failure.
type RecordReading struct {
	Offset    int64
	HasOffset bool
	Record    *Record
	Errors    []error
}

// readRecord drains the previous record's remainder and parses exactly one
// record. The returned error is fatal (truncation); parse level problems are
// reported through the reading's error list.
func (s *Stream) readRecord(withOffset bool) (RecordReading, error) {
	var rr RecordReading
	if s.closed {
		return rr, errStreamClosed
	}
	if s.window.bounded {
		if err := s.drainRemainder(); err != nil {
			return rr, err
		}
	}

	switch s.framing {
	case FramingGzipRecord:
		// The member offset is captured by the decompression layer when the
		// parse advances into the next member.
		rec, errs, _ := s.parser.Parse(s, -1)
		rr.Record = rec
		rr.Errors = errs
		if rec != nil {
			rr.Offset = s.members.MemberOffset()
			rr.HasOffset = true
		}
	case FramingGzipFile:
		// No record-aligned boundary exists in the compressed domain, so no
		// offset is reported.
		rec, errs, _ := s.parser.Parse(s, -1)
		rr.Record = rec
		rr.Errors = errs
	default:
		offset := int64(-1)
		if withOffset {
			if t, err := s.tell(); err == nil {
				offset = t
			}
		}
		rec, errs, used := s.parser.Parse(s, offset)
		rr.Record = rec
		rr.Errors = errs
		if offset >= 0 {
			rr.Offset = used
			rr.HasOffset = true
		}
	}
	return rr, nil
}

// RecordIter lazily produces record readings. See Stream.ReadRecords.
type RecordIter struct {
	s           *Stream
	limit       int
	withOffsets bool
	count       int
	done        bool
}

// ReadRecords returns a lazy iterator over (offset, record, errors) readings.
// A limit of zero or less makes the sequence unbounded. The sequence ends
// after the first reading without a record.
func (s *Stream) ReadRecords(limit int, withOffsets bool) *RecordIter {
	return &RecordIter{s: s, limit: limit, withOffsets: withOffsets}
}

// Next returns the next reading. It returns io.EOF when the sequence is
// exhausted and a fatal error if the previous record's remainder could not be
// drained.
func (it *RecordIter) Next() (RecordReading, error) {
	if it.done || (it.limit > 0 && it.count >= it.limit) {
		return RecordReading{}, io.EOF
	}
	rr, err := it.s.readRecord(it.withOffsets)
	if err != nil {
		it.done = true
		return RecordReading{}, err
	}
	it.count++
	if rr.Record == nil {
		it.done = true
	}
	return rr, nil
}

// Records is a lazy record-only iterator. See Stream.Records.
type Records struct {
	s    *Stream
	done bool
}

// Records returns a lazy iterator over the stream's records. Its Next method
// returns io.EOF on a clean end of stream and a ParseError when the parser
// reported errors without producing a record, so corruption is never mistaken
// for end of stream.
func (s *Stream) Records() *Records {
	return &Records{s: s}
}

func (r *Records) Next() (*Record, error) {
	if r.done {
		return nil, io.EOF
	}
	rr, err := r.s.readRecord(false)
	if err != nil {
		r.done = true
		return nil, err
	}
	if rr.Record != nil {
		return rr.Record, nil
	}
	r.done = true
	if len(rr.Errors) > 0 {
		return nil, newParseError(rr.Errors)
	}
	return nil, io.EOF
}

// Write serializes a record to the channel. Under per-record gzip framing the
// record is written as its own gzip member; under whole-file gzip framing it
// is appended to a single compressed stream flushed on Close.
func (s *Stream) Write(record *Record) (int64, error) {
	if s.closed {
		return 0, errStreamClosed
	}
	w, ok := s.raw.(io.Writer)
	if !ok {
		return 0, errNotWritable
	}
	switch s.framing {
	case FramingGzipRecord:
		gz := gzip.NewWriter(w)
		n, err := s.marshaler.Marshal(gz, record)
		if err != nil {
			_ = gz.Close()
			return n, err
		}
		return n, gz.Close()
	case FramingGzipFile:
		if s.gzw == nil {
			s.gzw = gzip.NewWriter(w)
		}
		return s.marshaler.Marshal(s.gzw, record)
	default:
		return s.marshaler.Marshal(w, record)
	}
}

// Close releases the channel. It is safe to call more than once; subsequent
// calls are no-ops.
func (s *Stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	var errs multiErr
	if s.gzw != nil {
		if err := s.gzw.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.members != nil {
		if err := s.members.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.zr != nil {
		if err := s.zr.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.raw.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
