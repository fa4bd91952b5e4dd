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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, input string, opts ...Option) (*Record, []error, int64) {
	t.Helper()
	s, err := NewStream(newTestChannel([]byte(input)), FramingPlain, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewRecordParser(opts...).Parse(s, 0)
}

func Test_warcParser_Parse(t *testing.T) {
	type expected struct {
		version    *Version
		recordType RecordType
		headers    *Fields
		content    []byte
	}
	tests := []struct {
		name       string
		input      string
		want       expected
		wantErrs   int
		wantOffset int64
	}{
		{"warcinfo", "WARC/1.0\r\n" +
			"WARC-Date: 2017-03-06T04:03:53Z\r\n" +
			"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n" +
			"WARC-Filename: temp-20170306040353.warc.gz\r\n" +
			"WARC-Type: warcinfo\r\n" +
			"Content-Type: application/warc-fields\r\n" +
			"Content-Length: 64\r\n" +
			"\r\n" +
			"software: Webrecorder Platform v3.7\r\n" +
			"format: WARC File Format 1.0\r\n" +
			"\r\n\r\n",
			expected{
				version:    V1_0,
				recordType: Warcinfo,
				headers: &Fields{
					{WarcDate, "2017-03-06T04:03:53Z"},
					{WarcRecordID, "<urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>"},
					{WarcFilename, "temp-20170306040353.warc.gz"},
					{WarcType, "warcinfo"},
					{ContentType, "application/warc-fields"},
					{ContentLength, "64"},
				},
				content: []byte("software: Webrecorder Platform v3.7\r\nformat: WARC File Format 1.0\r\n"),
			}, 0, 0},
		{"v1.1 with continuation line", "WARC/1.1\r\n" +
			"WARC-Type: metadata\r\n" +
			"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120009>\r\n" +
			"Content-Type: application/warc-fields;\r\n" +
			" charset=utf-8\r\n" +
			"Content-Length: 18\r\n" +
			"\r\n" +
			"fetchTimeMs: 937\r\n" +
			"\r\n\r\n",
			expected{
				version:    V1_1,
				recordType: Metadata,
				headers: &Fields{
					{WarcType, "metadata"},
					{WarcRecordID, "<urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120009>"},
					{ContentType, "application/warc-fields; charset=utf-8"},
					{ContentLength, "18"},
				},
				content: []byte("fetchTimeMs: 937\r\n"),
			}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, errs, offset := parseOne(t, tt.input)

			assert := assert.New(t)
			require.NotNil(t, record)
			assert.Len(errs, tt.wantErrs)
			assert.Equal(tt.wantOffset, offset)
			assert.Equal(tt.want.version, record.Version())
			assert.Equal(tt.want.recordType, record.Type())
			assert.ElementsMatch(*tt.want.headers, *record.Header())
			_, content := record.Content()
			assert.Equal(tt.want.content, content)
		})
	}
}

func Test_warcParser_Parse_cleanEndOfStream(t *testing.T) {
	for _, input := range []string{"", "\r\n", "\r\n\r\n  \r\n"} {
		record, errs, _ := parseOne(t, input)
		assert.Nil(t, record)
		assert.Empty(t, errs)
	}
}

func Test_warcParser_Parse_skipsLeadingGarbage(t *testing.T) {
	input := "\r\n\r\n" + resourceRecordText
	record, errs, offset := parseOne(t, input)
	require.NotNil(t, record)
	assert.Empty(t, errs)
	// The offset points at the record actually parsed, not at the gap.
	assert.Equal(t, int64(4), offset)
}

func Test_warcParser_Parse_missingVersionLine(t *testing.T) {
	record, errs, _ := parseOne(t, "Not-A-Record: true\r\n\r\n")
	assert.Nil(t, record)
	require.NotEmpty(t, errs)
	assert.IsType(t, &SyntaxError{}, errs[0])
}

func Test_warcParser_Parse_missingContentLength(t *testing.T) {
	input := "WARC/1.0\r\n" +
		"WARC-Type: resource\r\n" +
		"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n" +
		"\r\n"
	record, errs, _ := parseOne(t, input)
	assert.Nil(t, record)
	require.NotEmpty(t, errs)
	assert.IsType(t, &HeaderFieldError{}, errs[len(errs)-1])
}

func Test_warcParser_Parse_unsupportedVersion(t *testing.T) {
	input := "WARC/0.9\r\n" +
		"WARC-Type: resource\r\n" +
		"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n" +
		"Content-Length: 5\r\n" +
		"\r\n" +
		"hello\r\n\r\n"

	t.Run("warn", func(t *testing.T) {
		record, errs, _ := parseOne(t, input)
		require.NotNil(t, record)
		assert.Len(t, errs, 1)
		assert.Equal(t, "WARC/0.9", record.Version().String())
	})

	t.Run("fail", func(t *testing.T) {
		record, errs, _ := parseOne(t, input, WithSyntaxErrorPolicy(ErrFail))
		assert.Nil(t, record)
		assert.NotEmpty(t, errs)
	})

	t.Run("ignore", func(t *testing.T) {
		record, errs, _ := parseOne(t, input, WithSyntaxErrorPolicy(ErrIgnore))
		require.NotNil(t, record)
		assert.Empty(t, errs)
	})
}

func Test_warcParser_validateHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantErrs int
	}{
		{"record id not encapsulated", "WARC/1.0\r\n" +
			"WARC-Type: resource\r\n" +
			"WARC-Record-ID: urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008\r\n" +
			"Content-Length: 5\r\n" +
			"\r\n" +
			"hello\r\n\r\n", 1},
		{"unknown record type", "WARC/1.0\r\n" +
			"WARC-Type: upsert\r\n" +
			"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n" +
			"Content-Length: 5\r\n" +
			"\r\n" +
			"hello\r\n\r\n", 1},
		{"invalid target uri", "WARC/1.0\r\n" +
			"WARC-Type: resource\r\n" +
			"WARC-Record-ID: <urn:uuid:e9a0cecc-0221-11e7-adb1-0242ac120008>\r\n" +
			"WARC-Target-URI: :not-a-uri\r\n" +
			"Content-Length: 5\r\n" +
			"\r\n" +
			"hello\r\n\r\n", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, errs, _ := parseOne(t, tt.input)
			require.NotNil(t, record)
			assert.Len(t, errs, tt.wantErrs)

			// The same input parses silently when errors are ignored.
			record, errs, _ = parseOne(t, tt.input, WithSyntaxErrorPolicy(ErrIgnore))
			require.NotNil(t, record)
			assert.Empty(t, errs)
		})
	}
}

func Test_warcParser_Parse_consecutiveRecords(t *testing.T) {
	// Parsing through a stream leaves the cursor on the next record boundary.
	s, err := NewStream(newTestChannel([]byte(resourceRecordText+metadataRecordText)), FramingPlain)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	p := NewRecordParser()

	r1, errs, _ := p.Parse(s, 0)
	require.NotNil(t, r1)
	assert.Empty(t, errs)
	require.NoError(t, s.drainRemainder())

	r2, errs, _ := p.Parse(s, int64(len(resourceRecordText)))
	require.NotNil(t, r2)
	assert.Empty(t, errs)
	assert.Equal(t, Metadata, r2.Type())
}
