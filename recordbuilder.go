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
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nlnwa/warcstream/internal/timestamp"
)

// Allow overriding of time.Now for tests
var now = time.Now

// RecordBuilder builds records for the write path. WARC-Type, WARC-Record-ID
// and WARC-Date are prepopulated; Content-Length is computed on Build.
type RecordBuilder struct {
	version    *Version
	headers    *Fields
	recordType RecordType
	content    bytes.Buffer
}

func NewRecordBuilder(recordType RecordType) *RecordBuilder {
	rb := &RecordBuilder{
		version:    V1_1,
		headers:    &Fields{},
		recordType: recordType,
	}
	rb.headers.Set(WarcType, recordType.String())
	rb.headers.Set(WarcRecordID, "<urn:uuid:"+uuid.New().String()+">")
	rb.headers.Set(WarcDate, timestamp.UTCW3cIso8601(now()))
	return rb
}

func (rb *RecordBuilder) AddHeader(name string, value string) *RecordBuilder {
	rb.headers.Set(name, value)
	return rb
}

func (rb *RecordBuilder) Write(p []byte) (int, error) {
	return rb.content.Write(p)
}

func (rb *RecordBuilder) WriteString(s string) (int, error) {
	return rb.content.WriteString(s)
}

// Build validates the headers against the written content and returns the
// finished record.
func (rb *RecordBuilder) Build() (*Record, error) {
	size := strconv.Itoa(rb.content.Len())
	if rb.headers.Has(ContentLength) {
		if rb.headers.Get(ContentLength) != size {
			return nil, errors.New("warcstream: content length mismatch")
		}
	} else {
		rb.headers.Set(ContentLength, size)
	}

	return &Record{
		version:     rb.version,
		headers:     rb.headers,
		recordType:  rb.recordType,
		contentType: rb.headers.Get(ContentType),
		content:     rb.content.Bytes(),
	}, nil
}
