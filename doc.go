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
Package warcstream provides a byte-accurate record stream over WARC archive
files in their three physical layouts: uncompressed concatenation, per-record
gzip compressed concatenation and whole-file gzip compression.

A Stream exposes one reading contract across all three layouts. Content reads
never cross a record boundary, and under per-record gzip compression the
reported record offsets are exact: re-opening a fresh stream at a reported
offset and reading one record yields the same record without decoding any
earlier bytes.

Use OpenArchive to open a named archive with automatic framing detection, or
NewStream to wrap an already opened channel with an explicit framing.
*/
package warcstream
