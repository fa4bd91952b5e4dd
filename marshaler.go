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
	"io"
)

// Marshaler is the interface that wraps the Marshal function.
//
// Marshal converts a record to its serialized form and returns the number of
// bytes written or any error encountered.
type Marshaler interface {
	Marshal(w io.Writer, record *Record) (int64, error)
}

type defaultMarshaler struct {
}

func NewMarshaler() Marshaler {
	return &defaultMarshaler{}
}

func (m *defaultMarshaler) Marshal(w io.Writer, record *Record) (int64, error) {
	// Write record version
	n, err := fmt.Fprintf(w, "%v\r\n", record.Version())
	bytesWritten := int64(n)
	if err != nil {
		return bytesWritten, err
	}

	// Write header fields
	bw, err := record.Header().Write(w)
	bytesWritten += bw
	if err != nil {
		return bytesWritten, err
	}

	// Write separator
	n, err = w.Write([]byte(crlf))
	bytesWritten += int64(n)
	if err != nil {
		return bytesWritten, err
	}

	// Write content
	_, content := record.Content()
	n, err = w.Write(content)
	bytesWritten += int64(n)
	if err != nil {
		return bytesWritten, err
	}

	// Write end of record separator
	n, err = w.Write([]byte(crlfcrlf))
	bytesWritten += int64(n)
	return bytesWritten, err
}
