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

// The ErrorPolicy constants describe how to handle record syntax errors.
type ErrorPolicy int8

const (
	ErrIgnore ErrorPolicy = 0 // Ignore the given error.
	ErrWarn   ErrorPolicy = 1 // Ignore given error, but add a warning to the error list.
	ErrFail   ErrorPolicy = 2 // Fail on given error.
)

type options struct {
	framing        Framing
	parser         RecordParser
	marshaler      Marshaler
	opener         Opener
	errSyntax      ErrorPolicy
	compress       bool
	openFileSuffix string
}

// Option configures how archives are opened, parsed and written.
type Option interface {
	apply(*options)
}

// funcOption wraps a function that modifies options into an
// implementation of the Option interface.
type funcOption struct {
	f func(*options)
}

func (fo *funcOption) apply(o *options) {
	fo.f(o)
}

func newFuncOption(f func(*options)) *funcOption {
	return &funcOption{
		f: f,
	}
}

func defaultOptions() options {
	return options{
		framing:        FramingAuto,
		marshaler:      NewMarshaler(),
		opener:         FileOpener{},
		errSyntax:      ErrWarn,
		compress:       false,
		openFileSuffix: ".open",
	}
}

func newOptions(opts ...Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt.apply(&o)
	}
	if o.parser == nil {
		o.parser = &warcParser{opts: &o}
	}
	return &o
}

// WithFraming sets the physical framing of the archive, bypassing
// auto-detection.
// defaults to FramingAuto
func WithFraming(framing Framing) Option {
	return newFuncOption(func(o *options) {
		o.framing = framing
	})
}

// WithRecordParser sets the parser used to decode the record grammar.
// defaults to the built in WARC parser
func WithRecordParser(parser RecordParser) Option {
	return newFuncOption(func(o *options) {
		o.parser = parser
	})
}

// WithMarshaler sets the record marshaler used by the write path.
// defaults to the built in WARC marshaler
func WithMarshaler(marshaler Marshaler) Option {
	return newFuncOption(func(o *options) {
		o.marshaler = marshaler
	})
}

// WithOpener sets the channel opener used to resolve archive names. The
// default opens local files; a remote object store opener may be supplied
// instead.
func WithOpener(opener Opener) Option {
	return newFuncOption(func(o *options) {
		o.opener = opener
	})
}

// WithSyntaxErrorPolicy sets the policy for handling syntax errors in records.
// defaults to ErrWarn
func WithSyntaxErrorPolicy(policy ErrorPolicy) Option {
	return newFuncOption(func(o *options) {
		o.errSyntax = policy
	})
}

// WithCompression sets if the file writer should gzip compress each record.
// defaults to false
func WithCompression(compress bool) Option {
	return newFuncOption(func(o *options) {
		o.compress = compress
	})
}

// WithOpenFileSuffix sets a suffix to be added to a file name while the file
// is open for writing. The suffix is removed when the file is closed.
// defaults to ".open"
func WithOpenFileSuffix(suffix string) Option {
	return newFuncOption(func(o *options) {
		o.openFileSuffix = suffix
	})
}
