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
	"compress/gzip"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/tsdb/fileutil"
)

// WriteResponse is the result of writing one record to a FileWriter.
type WriteResponse struct {
	FileOffset   int64 // the record's offset in the file
	BytesWritten int64 // number of uncompressed bytes written
}

// FileWriter writes records sequentially to a single archive file. While open
// the file name carries the open file suffix; Close removes it with an atomic
// rename so readers never observe a half written archive.
//
// With the WithCompression option each record is written as its own gzip
// member, so the offsets reported in WriteResponse stay valid for random
// access under per-record gzip framing.
type FileWriter struct {
	opts      *options
	fileName  string // final file name, without the open file suffix
	file      *os.File
	offset    int64
	marshaler Marshaler
	gz        *gzip.Writer // holds gzip writer, enabling reuse
}

func NewFileWriter(fileName string, opts ...Option) (*FileWriter, error) {
	o := newOptions(opts...)
	file, err := os.OpenFile(fileName+o.openFileSuffix, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666)
	if err != nil {
		return nil, err
	}
	w := &FileWriter{
		opts:      o,
		fileName:  fileName,
		file:      file,
		marshaler: o.marshaler,
	}
	if o.compress {
		w.gz = gzip.NewWriter(nil)
	}
	return w, nil
}

// Write marshals one record to the file and reports the offset it was
// written at.
func (w *FileWriter) Write(record *Record) (WriteResponse, error) {
	response := WriteResponse{FileOffset: w.offset}
	if w.file == nil {
		return response, errStreamClosed
	}

	var err error
	if w.gz != nil {
		w.gz.Reset(w.file)
		response.BytesWritten, err = w.marshaler.Marshal(w.gz, record)
		if err == nil {
			err = w.gz.Close()
		}
	} else {
		response.BytesWritten, err = w.marshaler.Marshal(w.file, record)
	}
	if err != nil {
		return response, err
	}

	fi, err := w.file.Stat()
	if err != nil {
		return response, err
	}
	w.offset = fi.Size()
	return response, nil
}

// Close closes the file and renames it to its final name. It is safe to call
// more than once.
func (w *FileWriter) Close() error {
	if w.file == nil {
		return nil
	}
	f := w.file
	w.file = nil
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file: %s: %w", f.Name(), err)
	}
	if err := fileutil.Rename(f.Name(), strings.TrimSuffix(f.Name(), w.opts.openFileSuffix)); err != nil {
		return fmt.Errorf("failed to rename file: %s: %w", f.Name(), err)
	}
	return nil
}

// Name returns the final file name records are written to.
func (w *FileWriter) Name() string {
	return w.fileName
}
