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
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/nlnwa/whatwg-url/url"
	log "github.com/sirupsen/logrus"
)

// RecordSource is the view of a stream handed to a RecordParser. The source
// is positioned at a record boundary when Parse is called.
type RecordSource interface {
	// Read reads up to n content bytes. A negative n reads to the end of the
	// current record's content.
	Read(n int) ([]byte, error)
	// ReadLine reads one line including its line ending. A maxLen of zero or
	// less means no length limit.
	ReadLine(maxLen int) ([]byte, error)
	// BeginRecord arms the source's remaining-content window with the number
	// of bytes from the current position to the end of the record, including
	// the trailing end of record delimiter.
	BeginRecord(remaining int64)
}

// RecordParser parses exactly one record from a source positioned at a
// record boundary.
//
// Parse returns the record, a list of errors and the offset actually used,
// which may differ from the given offset if leading garbage was skipped. A
// negative offset means the position is unknown. On success the parser must
// have armed the source's remaining-content window from the record's declared
// content length before reading the content.
//
// A nil record with an empty error list signals a clean end of stream. A nil
// record with a non-empty error list signals a structural failure.
type RecordParser interface {
	Parse(src RecordSource, offset int64) (*Record, []error, int64)
}

var colon = []byte{':'}

type warcParser struct {
	opts *options
}

// NewRecordParser returns a parser for the WARC record grammar.
func NewRecordParser(opts ...Option) RecordParser {
	return &warcParser{opts: newOptions(opts...)}
}

func (p *warcParser) Parse(src RecordSource, offset int64) (*Record, []error, int64) {
	var errs []error
	pos := &position{}

	line, err := src.ReadLine(0)
	if err == io.EOF {
		return nil, nil, offset
	}
	if err != nil {
		return nil, append(errs, err), offset
	}
	pos.incrLineNumber()

	// Skip stray bytes between records, adjusting the reported offset so it
	// still points at the start of the record actually parsed.
	skipped := 0
	for len(bytes.Trim(line, sphtcrlf)) == 0 {
		skipped += len(line)
		line, err = src.ReadLine(0)
		if err == io.EOF {
			return nil, nil, offset
		}
		if err != nil {
			return nil, append(errs, err), offset
		}
		pos.incrLineNumber()
	}
	if skipped > 0 {
		log.Debugf("skipped %d bytes before start of record", skipped)
		if offset >= 0 {
			offset += int64(skipped)
		}
	}

	versionLine := string(bytes.Trim(line, sphtcrlf))
	if !strings.HasPrefix(versionLine, "WARC/") {
		return nil, append(errs, newSyntaxError("missing record version", pos)), offset
	}
	version, err := p.resolveRecordVersion(strings.TrimPrefix(versionLine, "WARC/"))
	if err != nil {
		switch p.opts.errSyntax {
		case ErrFail:
			return nil, append(errs, err), offset
		case ErrWarn:
			errs = append(errs, err)
		}
	}

	headers, herrs, err := p.parseHeaders(src, pos)
	errs = append(errs, herrs...)
	if err != nil {
		return nil, append(errs, err), offset
	}

	if verrs := p.validateHeader(headers); len(verrs) > 0 {
		if p.opts.errSyntax == ErrFail {
			return nil, append(errs, verrs...), offset
		}
		errs = append(errs, verrs...)
	}

	length, err := strconv.ParseInt(headers.Get(ContentLength), 10, 64)
	if err != nil || length < 0 {
		return nil, append(errs, newHeaderFieldErrorf(ContentLength, "missing or invalid content length %q", headers.Get(ContentLength))), offset
	}

	// Adding 4 bytes to include the end of record delimiter (\r\n\r\n).
	src.BeginRecord(length + 4)

	content, err := src.Read(-1)
	if err != nil {
		errs = append(errs, err)
	}
	if int64(len(content)) < length {
		errs = append(errs, newSyntaxError("record content shorter than declared content length", pos))
	}

	record := &Record{
		version:     version,
		headers:     headers,
		recordType:  stringToRecordType(strings.ToLower(headers.Get(WarcType))),
		contentType: headers.Get(ContentType),
		content:     content,
	}
	log.Debugf("parsed %s record, content length %d", record.Type(), length)
	return record, errs, offset
}

func (p *warcParser) parseHeaders(src RecordSource, pos *position) (*Fields, []error, error) {
	headers := &Fields{}
	var errs []error
	for {
		line, err := src.ReadLine(0)
		if err != nil {
			return nil, errs, newWrappedSyntaxError("unexpected end of record header", pos, err)
		}
		pos.incrLineNumber()
		trimmed := bytes.Trim(line, sphtcrlf)
		if len(trimmed) == 0 {
			// blank line ends the header block
			return headers, errs, nil
		}
		// Continuation lines are folded into the preceding field.
		if (line[0] == sp || line[0] == ht) && len(*headers) > 0 {
			last := (*headers)[len(*headers)-1]
			last.Value = last.Value + " " + string(trimmed)
			continue
		}
		if err := parseHeaderLine(trimmed, headers, pos); err != nil {
			if p.opts.errSyntax == ErrFail {
				return nil, errs, err
			}
			if p.opts.errSyntax == ErrWarn {
				errs = append(errs, err)
			}
		}
	}
}

func parseHeaderLine(line []byte, headers *Fields, pos *position) error {
	// Support for the 'encoded-word' mechanism of [RFC2047]
	d := mime.WordDecoder{}
	l, err := d.DecodeHeader(string(line))
	if err != nil {
		return newWrappedSyntaxError("error decoding line", pos, err)
	}
	line = []byte(l)

	fv := bytes.SplitN(line, colon, 2)
	if len(fv) != 2 {
		return newSyntaxError("could not parse header line. Missing ':' in "+string(fv[0]), pos)
	}

	name := string(bytes.Trim(fv[0], sphtcrlf))
	value := string(bytes.Trim(fv[1], sphtcrlf))

	headers.Add(name, value)
	return nil
}

func (p *warcParser) validateHeader(headers *Fields) []error {
	if p.opts.errSyntax == ErrIgnore {
		return nil
	}
	var errs []error
	if v := headers.Get(WarcTargetURI); v != "" {
		if _, err := url.Parse(v); err != nil {
			errs = append(errs, newHeaderFieldErrorf(WarcTargetURI, "invalid uri %q: %v", v, err))
		}
	}
	if v := headers.Get(WarcRecordID); v != "" {
		if !strings.HasPrefix(v, "<") || !strings.HasSuffix(v, ">") {
			errs = append(errs, newHeaderFieldErrorf(WarcRecordID, "id should be encapsulated by <>"))
		}
	}
	if v := headers.Get(WarcType); v != "" && stringToRecordType(strings.ToLower(v)) == 0 {
		errs = append(errs, newHeaderFieldErrorf(WarcType, "unknown record type %q", v))
	}
	return errs
}

func (p *warcParser) resolveRecordVersion(s string) (*Version, error) {
	switch s {
	case V1_0.txt:
		return V1_0, nil
	case V1_1.txt:
		return V1_1, nil
	default:
		return &Version{txt: s}, newSyntaxError("unsupported WARC version: "+s, &position{lineNumber: 1})
	}
}
