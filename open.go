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
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Framing selects the physical layout of an archive. It is resolved once at
// open time and threaded through every subsequent call, never inferred again.
type Framing int8

const (
	// FramingAuto detects the framing from the archive name or leading bytes.
	FramingAuto Framing = iota
	// FramingPlain is an uncompressed concatenation of records.
	FramingPlain
	// FramingGzipRecord is a concatenation of independently gzip compressed
	// records, one member per record.
	FramingGzipRecord
	// FramingGzipFile is a single gzip stream compressing the whole archive.
	FramingGzipFile
)

func (f Framing) String() string {
	switch f {
	case FramingAuto:
		return "auto"
	case FramingPlain:
		return "plain"
	case FramingGzipRecord:
		return "gzip-record"
	case FramingGzipFile:
		return "gzip-file"
	default:
		return "unknown"
	}
}

// ParseFraming resolves the command line vocabulary for compression modes:
// "auto", "none", "record" and "file".
func ParseFraming(s string) (Framing, error) {
	switch s {
	case "auto", "":
		return FramingAuto, nil
	case "none", "plain":
		return FramingPlain, nil
	case "record":
		return FramingGzipRecord, nil
	case "file":
		return FramingGzipFile, nil
	default:
		return FramingAuto, fmt.Errorf("warcstream: unknown framing %q", s)
	}
}

// Opener resolves an archive name to a readable channel. The default opener
// handles local files; implementations backed by a remote object store may be
// supplied with WithOpener.
type Opener interface {
	Open(name string) (io.ReadCloser, error)
}

// FileOpener opens archives on the local filesystem.
type FileOpener struct{}

func (FileOpener) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

const gzipSuffix = ".gz"

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	recordMagic = []byte("WARC/")
)

// OpenArchive opens the named archive for reading. Unless a framing is
// explicitly set with WithFraming, it is auto-detected: a name ending in the
// gzip suffix or content beginning with the gzip magic signature selects
// per-record gzip framing, content beginning with a record version line
// selects plain framing, and anything else is an unsupported framing failure.
func OpenArchive(name string, opts ...Option) (*Stream, error) {
	o := newOptions(opts...)
	channel, err := o.opener.Open(name)
	if err != nil {
		return nil, err
	}
	framing := o.framing
	if framing == FramingAuto {
		framing, err = detectFraming(name, channel)
		if err != nil {
			_ = channel.Close()
			return nil, err
		}
		log.Debugf("detected %v framing for %s", framing, name)
	}
	s, err := NewStream(channel, framing, opts...)
	if err != nil {
		_ = channel.Close()
		return nil, err
	}
	return s, nil
}

func detectFraming(name string, channel io.ReadCloser) (Framing, error) {
	if strings.HasSuffix(name, gzipSuffix) {
		return FramingGzipRecord, nil
	}
	seeker, ok := channel.(io.ReadSeeker)
	if !ok {
		// Without a seekable channel the leading bytes cannot be inspected
		// non-destructively; assume an uncompressed archive.
		return FramingPlain, nil
	}
	pos, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return FramingAuto, err
	}
	magic := make([]byte, len(recordMagic))
	n, _ := io.ReadFull(seeker, magic)
	if _, err := seeker.Seek(pos, io.SeekStart); err != nil {
		return FramingAuto, err
	}
	if n >= len(gzipMagic) && bytes.Equal(magic[:len(gzipMagic)], gzipMagic) {
		return FramingGzipRecord, nil
	}
	if n == len(recordMagic) && bytes.Equal(magic, recordMagic) {
		return FramingPlain, nil
	}
	return FramingAuto, ErrUnknownFraming
}
