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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFraming is returned when neither the archive name nor its
	// leading bytes identify a known framing.
	ErrUnknownFraming = errors.New("warcstream: unable to detect archive framing")

	errStreamClosed = errors.New("warcstream: stream is closed")
	errNotSeekable  = errors.New("warcstream: channel is not seekable")
	errNotWritable  = errors.New("warcstream: channel is not writable")
)

// HeaderFieldError is used for violations of the WARC header field grammar.
type HeaderFieldError struct {
	fieldName string
	msg       string
}

func newHeaderFieldErrorf(fieldName string, msg string, param ...interface{}) *HeaderFieldError {
	return &HeaderFieldError{fieldName: fieldName, msg: fmt.Sprintf(msg, param...)}
}

func (e *HeaderFieldError) Error() string {
	if e.fieldName != "" {
		return fmt.Sprintf("warcstream: %s at header %s", e.msg, e.fieldName)
	}
	return fmt.Sprintf("warcstream: %s", e.msg)
}

// SyntaxError is used for syntactical errors like a missing version line or
// wrong line endings.
type SyntaxError struct {
	msg     string
	line    int
	wrapped error
}

func newSyntaxError(msg string, pos *position) *SyntaxError {
	return &SyntaxError{msg: msg, line: pos.lineNumber}
}

func newWrappedSyntaxError(msg string, pos *position, wrapped error) *SyntaxError {
	return &SyntaxError{msg: msg, line: pos.lineNumber, wrapped: wrapped}
}

func (e *SyntaxError) Error() string {
	if e.line > 0 {
		return fmt.Sprintf("warcstream: %s at line %d", e.msg, e.line)
	}
	return fmt.Sprintf("warcstream: %s", e.msg)
}

func (e *SyntaxError) Unwrap() error {
	return e.wrapped
}

// ParseError is the hard failure raised by the record-only iterator when the
// parser produced errors but no record. It keeps end of stream, which simply
// ends the iteration, distinct from corruption.
type ParseError struct {
	errs multiErr
}

func newParseError(errs []error) *ParseError {
	return &ParseError{errs: errs}
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("warcstream: errors while decoding: %s", e.errs.Error())
}

func (e *ParseError) Errors() []error {
	return e.errs
}

type position struct {
	lineNumber int
}

func (p *position) incrLineNumber() *position {
	p.lineNumber++
	return p
}

type multiErr []error

func (e multiErr) Error() string {
	switch len(e) {

	case 0:
		return ""

	case 1:
		return e[0].Error()
	}

	const (
		start = "["
		sep   = ", "
		end   = "]"
	)

	n := len(start) + len(end) + (len(sep) * (len(e) - 1))
	for i := 0; i < len(e); i++ {
		n += len(e[i].Error())
	}

	var b strings.Builder
	b.Grow(n)
	b.WriteString(start)
	b.WriteString(e[0].Error())
	for _, s := range e[1:] {
		b.WriteString(sep)
		b.WriteString(s.Error())
	}
	b.WriteString(end)
	return b.String()
}
