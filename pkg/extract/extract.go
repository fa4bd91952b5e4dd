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

// Package extract recovers the payload of a single record addressed by
// archive name and byte offset.
package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nlnwa/warcstream"
	"github.com/nlnwa/warcstream/httpmsg"
)

var (
	// ErrTrailingData is the diagnostic for undecoded bytes remaining after a
	// complete HTTP message.
	ErrTrailingData = errors.New("trailing data in http response")
	// ErrTruncatedResponse is the diagnostic for an HTTP message that never
	// reached a complete state.
	ErrTruncatedResponse = errors.New("truncated http response")
)

// ParseLocator splits a "<path>:<offset>" locator on the last colon. The path
// may itself contain colons, e.g. a remote object store reference.
func ParseLocator(locator string) (string, int64, error) {
	i := strings.LastIndex(locator, ":")
	if i < 0 {
		return "", 0, fmt.Errorf("extract: invalid locator %q, expected <path>:<offset>", locator)
	}
	offset, err := strconv.ParseInt(locator[i+1:], 10, 64)
	if err != nil || offset < 0 {
		return "", 0, fmt.Errorf("extract: invalid offset in locator %q", locator)
	}
	return locator[:i], offset, nil
}

// Payload opens the named archive, seeks to offset and reads exactly one
// record. If the record is an HTTP response its decoded message body is
// returned, otherwise the record's raw content. Decoder anomalies do not fail
// the extraction; they are returned as diagnostics next to the best-effort
// body. The archive handle is released on every exit path.
func Payload(name string, offset int64, opts ...warcstream.Option) ([]byte, []error, error) {
	s, err := warcstream.OpenArchive(name, opts...)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = s.Close() }()

	if err := s.Seek(offset); err != nil {
		return nil, nil, err
	}

	reading, err := s.ReadRecords(1, false).Next()
	if err != nil {
		return nil, nil, err
	}
	if reading.Record == nil {
		if len(reading.Errors) > 0 {
			return nil, nil, fmt.Errorf("extract: no record at %s:%d: %s", name, offset, errsString(reading.Errors))
		}
		return nil, nil, fmt.Errorf("extract: no record at %s:%d", name, offset)
	}

	record := reading.Record
	contentType, content := record.Content()
	if record.Type() == warcstream.Response && strings.HasPrefix(contentType, warcstream.ApplicationHttp) {
		log.Debugf("decoding http response record %s", record.Header().Get(warcstream.WarcRecordID))
		return decodeResponse(record, content)
	}
	return content, nil, nil
}

// decodeResponse feeds the record content through the HTTP decoder and
// returns the message body. Trailing or missing bytes degrade to diagnostics
// rather than failures; real archives routinely hold malformed payloads.
func decodeResponse(record *warcstream.Record, content []byte) ([]byte, []error, error) {
	message := httpmsg.NewResponseMessage(httpmsg.NewRequestMessage())
	leftover, err := message.Feed(content)
	_ = message.Close()

	var diagnostics []error
	if err != nil {
		diagnostics = append(diagnostics, fmt.Errorf("malformed http response for %s: %w", record.TargetURI(), err))
	}
	if len(leftover) > 0 {
		diagnostics = append(diagnostics, fmt.Errorf("%w for %s", ErrTrailingData, record.TargetURI()))
	}
	if !message.Complete() {
		diagnostics = append(diagnostics, fmt.Errorf("%w for %s", ErrTruncatedResponse, record.TargetURI()))
	}
	return message.Body(), diagnostics, nil
}

func errsString(errs []error) string {
	s := make([]string, len(errs))
	for i, err := range errs {
		s[i] = err.Error()
	}
	return strings.Join(s, ", ")
}
