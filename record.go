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
	"fmt"
	"strconv"
)

const (
	sphtcrlf = " \t\r\n"  // Space, Tab, Carriage return, Newline
	cr       = '\r'       // Carriage return
	lf       = '\n'       // Newline
	sp       = ' '        // Space
	ht       = '\t'       // Tab
	crlf     = "\r\n"     // Carriage return, Newline
	crlfcrlf = "\r\n\r\n" // Carriage return, Newline, Carriage return, Newline
)

const (
	// WARC header field name constants
	ContentLength  = "Content-Length"
	ContentType    = "Content-Type"
	WarcDate       = "WARC-Date"
	WarcFilename   = "WARC-Filename"
	WarcIPAddress  = "WARC-IP-Address"
	WarcRecordID   = "WARC-Record-ID"
	WarcTargetURI  = "WARC-Target-URI"
	WarcTruncated  = "WARC-Truncated"
	WarcType       = "WARC-Type"
	WarcWarcinfoID = "WARC-Warcinfo-ID"
)

const (
	// Well known content types
	ApplicationWarcFields = "application/warc-fields"
	ApplicationHttp       = "application/http"
)

// Version identifies the WARC version of a record.
type Version struct {
	txt   string
	major uint8
	minor uint8
}

func (v *Version) String() string {
	return "WARC/" + v.txt
}

func (v *Version) Major() uint8 {
	return v.major
}

func (v *Version) Minor() uint8 {
	return v.minor
}

var (
	// WARC versions
	V1_0 = &Version{txt: "1.0", major: 1, minor: 0} // WARC 1.0
	V1_1 = &Version{txt: "1.1", major: 1, minor: 1} // WARC 1.1
)

type RecordType uint16

const (
	// WARC record types
	Warcinfo     RecordType = 1
	Response     RecordType = 2
	Resource     RecordType = 4
	Request      RecordType = 8
	Metadata     RecordType = 16
	Revisit      RecordType = 32
	Conversion   RecordType = 64
	Continuation RecordType = 128
)

func (rt RecordType) String() string {
	switch rt {
	case Warcinfo:
		return "warcinfo"
	case Response:
		return "response"
	case Resource:
		return "resource"
	case Request:
		return "request"
	case Metadata:
		return "metadata"
	case Revisit:
		return "revisit"
	case Conversion:
		return "conversion"
	case Continuation:
		return "continuation"
	default:
		return "unknown"
	}
}

func stringToRecordType(rt string) RecordType {
	switch rt {
	case "warcinfo":
		return Warcinfo
	case "response":
		return Response
	case "resource":
		return Resource
	case "request":
		return Request
	case "metadata":
		return Metadata
	case "revisit":
		return Revisit
	case "conversion":
		return Conversion
	case "continuation":
		return Continuation
	default:
		return 0
	}
}

// Record is one parsed archive record: header metadata including the declared
// content length, and the raw content bytes paired with their content type.
//
// Records are transient values. A Record is created per read and is not
// retained by the stream that produced it.
type Record struct {
	version     *Version
	headers     *Fields
	recordType  RecordType
	contentType string
	content     []byte
}

func (r *Record) Version() *Version { return r.version }

func (r *Record) Type() RecordType { return r.recordType }

func (r *Record) Header() *Fields { return r.headers }

// Content returns the record's content pair: the content type declared in the
// record header and the raw content bytes, excluding the trailing end of
// record delimiter.
func (r *Record) Content() (string, []byte) {
	return r.contentType, r.content
}

// ContentLength returns the content length declared in the record header.
func (r *Record) ContentLength() int64 {
	length, _ := strconv.ParseInt(r.headers.Get(ContentLength), 10, 64)
	return length
}

func (r *Record) TargetURI() string {
	return r.headers.Get(WarcTargetURI)
}

func (r *Record) String() string {
	return fmt.Sprintf("WARC record: version: %s, type: %s, id: %s", r.version, r.Type(), r.headers.Get(WarcRecordID))
}
