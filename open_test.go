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
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeChannel is a channel without seek support.
type pipeChannel struct {
	io.Reader
}

func (pipeChannel) Close() error { return nil }

func TestParseFraming(t *testing.T) {
	tests := []struct {
		input   string
		want    Framing
		wantErr bool
	}{
		{"auto", FramingAuto, false},
		{"", FramingAuto, false},
		{"none", FramingPlain, false},
		{"plain", FramingPlain, false},
		{"record", FramingGzipRecord, false},
		{"file", FramingGzipFile, false},
		{"deflate", FramingAuto, true},
	}
	for _, tt := range tests {
		got, err := ParseFraming(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestFraming_String(t *testing.T) {
	assert.Equal(t, "auto", FramingAuto.String())
	assert.Equal(t, "plain", FramingPlain.String())
	assert.Equal(t, "gzip-record", FramingGzipRecord.String())
	assert.Equal(t, "gzip-file", FramingGzipFile.String())
	assert.Equal(t, "unknown", Framing(99).String())
}

func Test_detectFraming(t *testing.T) {
	gzipped, _ := gzipMembers(t, resourceRecordText)

	tests := []struct {
		name     string
		fileName string
		channel  io.ReadCloser
		want     Framing
		wantErr  error
	}{
		{"gzip suffix", "test.warc.gz", newTestChannel(nil), FramingGzipRecord, nil},
		{"gzip magic", "test.warc", newTestChannel(gzipped), FramingGzipRecord, nil},
		{"record magic", "test.warc", newTestChannel([]byte(resourceRecordText)), FramingPlain, nil},
		{"not seekable", "test.warc", pipeChannel{Reader: bytes.NewBuffer(gzipped)}, FramingPlain, nil},
		{"unknown", "test.warc", newTestChannel([]byte("garbage")), FramingAuto, ErrUnknownFraming},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := detectFraming(tt.fileName, tt.channel)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_detectFraming_restoresPosition(t *testing.T) {
	// Peeking at the magic must not consume the leading bytes.
	channel := newTestChannel([]byte(resourceRecordText))
	_, err := detectFraming("test.warc", channel)
	require.NoError(t, err)

	pos, err := channel.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)
}

func TestOpenArchive_plainFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "test.warc")
	require.NoError(t, os.WriteFile(name, []byte(resourceRecordText+metadataRecordText), 0644))

	s, err := OpenArchive(name)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, FramingPlain, s.framing)

	r1, err := s.Records().Next()
	require.NoError(t, err)
	assert.Equal(t, Resource, r1.Type())
}

func TestOpenArchive_gzipFileWithoutSuffix(t *testing.T) {
	// A per-record compressed archive is recognized by its magic signature
	// even when the name lacks the gzip suffix.
	data, offsets := gzipMembers(t, resourceRecordText, metadataRecordText)
	name := filepath.Join(t.TempDir(), "test.warc")
	require.NoError(t, os.WriteFile(name, data, 0644))

	s, err := OpenArchive(name)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, FramingGzipRecord, s.framing)

	records := s.ReadRecords(0, true)
	r1, err := records.Next()
	require.NoError(t, err)
	require.NotNil(t, r1.Record)
	assert.Equal(t, offsets[0], r1.Offset)

	r2, err := records.Next()
	require.NoError(t, err)
	require.NotNil(t, r2.Record)
	assert.Equal(t, offsets[1], r2.Offset)
}

func TestOpenArchive_explicitFraming(t *testing.T) {
	// Whole-file compression is indistinguishable from per-record compression
	// by magic, so it must be selected explicitly.
	name := filepath.Join(t.TempDir(), "whole.warc.gz")
	f, err := os.Create(name)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write([]byte(resourceRecordText + metadataRecordText))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	s, err := OpenArchive(name, WithFraming(FramingGzipFile))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	assert.Equal(t, FramingGzipFile, s.framing)

	records := s.Records()
	r1, err := records.Next()
	require.NoError(t, err)
	assert.Equal(t, Resource, r1.Type())
	r2, err := records.Next()
	require.NoError(t, err)
	assert.Equal(t, Metadata, r2.Type())
}

func TestOpenArchive_unknownFraming(t *testing.T) {
	name := filepath.Join(t.TempDir(), "test.warc")
	require.NoError(t, os.WriteFile(name, []byte("garbage"), 0644))

	_, err := OpenArchive(name)
	assert.Equal(t, ErrUnknownFraming, err)
}

type memOpener struct {
	data []byte
}

func (o memOpener) Open(name string) (io.ReadCloser, error) {
	return newTestChannel(o.data), nil
}

func TestOpenArchive_withOpener(t *testing.T) {
	s, err := OpenArchive("anything.warc", WithOpener(memOpener{data: []byte(resourceRecordText)}))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	r, err := s.Records().Next()
	require.NoError(t, err)
	assert.Equal(t, Resource, r.Type())
}
