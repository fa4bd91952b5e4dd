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

/*
Package httpmsg decodes raw HTTP messages incrementally.

A ResponseMessage is fed raw bytes and works through a headers-then-body state
machine. Feed reports unconsumed leftover bytes once the message is complete,
Complete reports whether the whole message has been seen and Body exposes the
decoded body after Close. Archived HTTP payloads are routinely malformed, so
the decoder never discards what it has recovered: a truncated message simply
stays incomplete with a partial body.
*/
package httpmsg

import (
	"bytes"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
)

type state int8

const (
	stateHead state = iota
	stateBody
	stateChunkSize
	stateChunkData
	stateChunkDataEnd
	stateTrailer
	stateComplete
)

// RequestMessage carries the request context needed to decode a response,
// such as the request method. A HEAD request implies a response without a
// body regardless of its headers.
type RequestMessage struct {
	method string
}

func NewRequestMessage() *RequestMessage {
	return &RequestMessage{method: http.MethodGet}
}

func (m *RequestMessage) SetMethod(method string) {
	m.method = method
}

func (m *RequestMessage) Method() string {
	return m.method
}

// ResponseMessage decodes one HTTP response message.
type ResponseMessage struct {
	req *RequestMessage

	state      state
	pending    []byte
	statusLine string
	statusCode int
	header     http.Header

	untilClose     bool
	bodyRemaining  int64
	chunkRemaining int64
	body           bytes.Buffer
	closed         bool
}

func NewResponseMessage(req *RequestMessage) *ResponseMessage {
	if req == nil {
		req = NewRequestMessage()
	}
	return &ResponseMessage{
		req:    req,
		header: http.Header{},
	}
}

// Feed consumes as much of p as the message needs and returns the unconsumed
// remainder. The remainder is non-empty only once the message is complete;
// until then everything is retained for further decoding.
func (m *ResponseMessage) Feed(p []byte) ([]byte, error) {
	if m.state == stateComplete {
		return p, nil
	}
	m.pending = append(m.pending, p...)
	if err := m.process(); err != nil {
		return nil, err
	}
	if m.state == stateComplete {
		leftover := m.pending
		m.pending = nil
		return leftover, nil
	}
	return nil, nil
}

// Complete reports whether the whole message has been decoded.
func (m *ResponseMessage) Complete() bool {
	return m.state == stateComplete
}

// Close finalizes decoding. A body delimited by connection close is complete
// at this point; anything else still waiting for bytes stays incomplete.
func (m *ResponseMessage) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	if m.state == stateBody && m.untilClose {
		m.state = stateComplete
	}
	return nil
}

// Body returns the decoded message body recovered so far.
func (m *ResponseMessage) Body() []byte {
	return m.body.Bytes()
}

func (m *ResponseMessage) StatusCode() int {
	return m.statusCode
}

func (m *ResponseMessage) StatusLine() string {
	return m.statusLine
}

func (m *ResponseMessage) Header() http.Header {
	return m.header
}

func (m *ResponseMessage) process() error {
	for {
		switch m.state {
		case stateHead:
			idx := endOfHeaders(m.pending)
			if idx < 0 {
				return nil
			}
			head := m.pending[:idx]
			m.pending = m.pending[idx:]
			if err := m.parseHead(head); err != nil {
				return err
			}

		case stateBody:
			if m.untilClose {
				m.body.Write(m.pending)
				m.pending = nil
				return nil
			}
			take := m.bodyRemaining
			if int64(len(m.pending)) < take {
				take = int64(len(m.pending))
			}
			m.body.Write(m.pending[:take])
			m.pending = m.pending[take:]
			m.bodyRemaining -= take
			if m.bodyRemaining > 0 {
				return nil
			}
			m.state = stateComplete

		case stateChunkSize:
			i := bytes.IndexByte(m.pending, '\n')
			if i < 0 {
				return nil
			}
			line := strings.TrimSpace(string(m.pending[:i]))
			m.pending = m.pending[i+1:]
			if j := strings.IndexByte(line, ';'); j >= 0 {
				line = strings.TrimSpace(line[:j])
			}
			size, err := strconv.ParseInt(line, 16, 63)
			if err != nil || size < 0 {
				return fmt.Errorf("httpmsg: malformed chunk size %q", line)
			}
			if size == 0 {
				m.state = stateTrailer
			} else {
				m.chunkRemaining = size
				m.state = stateChunkData
			}

		case stateChunkData:
			take := m.chunkRemaining
			if int64(len(m.pending)) < take {
				take = int64(len(m.pending))
			}
			m.body.Write(m.pending[:take])
			m.pending = m.pending[take:]
			m.chunkRemaining -= take
			if m.chunkRemaining > 0 {
				return nil
			}
			m.state = stateChunkDataEnd

		case stateChunkDataEnd:
			if len(m.pending) == 0 {
				return nil
			}
			switch m.pending[0] {
			case '\r':
				if len(m.pending) < 2 {
					return nil
				}
				m.pending = m.pending[2:]
			case '\n':
				m.pending = m.pending[1:]
			default:
				return fmt.Errorf("httpmsg: missing line separator after chunk data")
			}
			m.state = stateChunkSize

		case stateTrailer:
			i := bytes.IndexByte(m.pending, '\n')
			if i < 0 {
				return nil
			}
			line := strings.TrimSpace(string(m.pending[:i]))
			m.pending = m.pending[i+1:]
			if len(line) == 0 {
				m.state = stateComplete
			}

		case stateComplete:
			return nil
		}
	}
}

// endOfHeaders returns the index just past the blank line ending the header
// block, or -1 if the block is not complete yet.
func endOfHeaders(p []byte) int {
	if i := bytes.Index(p, []byte("\r\n\r\n")); i >= 0 {
		return i + 4
	}
	if i := bytes.Index(p, []byte("\n\n")); i >= 0 {
		return i + 2
	}
	return -1
}

func (m *ResponseMessage) parseHead(head []byte) error {
	lines := strings.Split(string(head), "\n")
	m.statusLine = strings.TrimRight(lines[0], "\r")

	parts := strings.SplitN(m.statusLine, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/") {
		return fmt.Errorf("httpmsg: malformed status line %q", m.statusLine)
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("httpmsg: malformed status code in %q", m.statusLine)
	}
	m.statusCode = code

	var lastKey string
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if len(line) == 0 {
			continue
		}
		// Continuation lines are folded into the preceding field.
		if (line[0] == ' ' || line[0] == '\t') && lastKey != "" {
			values := m.header[lastKey]
			values[len(values)-1] += " " + strings.TrimSpace(line)
			continue
		}
		i := strings.IndexByte(line, ':')
		if i < 0 {
			return fmt.Errorf("httpmsg: malformed header line %q", line)
		}
		lastKey = textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(line[:i]))
		m.header[lastKey] = append(m.header[lastKey], strings.TrimSpace(line[i+1:]))
	}

	m.state = m.bodyState()
	return nil
}

// bodyState decides how the body is delimited, following the precedence rules
// of RFC 7230 section 3.3.3.
func (m *ResponseMessage) bodyState() state {
	if m.req.Method() == http.MethodHead ||
		m.statusCode/100 == 1 || m.statusCode == 204 || m.statusCode == 304 {
		return stateComplete
	}
	if strings.Contains(strings.ToLower(m.header.Get("Transfer-Encoding")), "chunked") {
		return stateChunkSize
	}
	if v := m.header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n >= 0 {
			if n == 0 {
				return stateComplete
			}
			m.bodyRemaining = n
			return stateBody
		}
	}
	m.untilClose = true
	return stateBody
}
