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

// Package timestamp formats times the way WARC headers expect.
package timestamp

import "time"

// UTCW3cIso8601 formats t as a W3C ISO8601 date in UTC, the format used by
// the WARC-Date header.
func UTCW3cIso8601(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
