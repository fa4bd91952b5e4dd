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
)

func TestFields_Get(t *testing.T) {
	assert := assert.New(t)

	f := &Fields{}
	f.Add("Content-Type", "text/plain")
	f.Add("X-Custom", "one")
	f.Add("X-Custom", "two")

	assert.Equal("text/plain", f.Get("Content-Type"))
	assert.Equal("text/plain", f.Get("content-type"))
	assert.Equal("", f.Get("Missing"))
	assert.Equal("one", f.Get("x-custom"))
	assert.Equal([]string{"one", "two"}, f.GetAll("X-Custom"))
	assert.True(f.Has("x-CUSTOM"))
	assert.False(f.Has("missing"))
}

func TestFields_Set(t *testing.T) {
	assert := assert.New(t)

	f := &Fields{}
	f.Add("X-Custom", "one")
	f.Add("X-Custom", "two")
	f.Set("x-custom", "three")

	assert.Equal([]string{"three"}, f.GetAll("X-Custom"))

	f.Set("New", "value")
	assert.Equal("value", f.Get("New"))
}

func TestFields_Delete(t *testing.T) {
	f := &Fields{}
	f.Add("A", "1")
	f.Add("B", "2")
	f.Add("a", "3")
	f.Delete("a")

	assert.False(t, f.Has("A"))
	assert.Equal(t, "2", f.Get("B"))
}

func TestFields_Sort(t *testing.T) {
	f := &Fields{}
	f.Add("B", "2")
	f.Add("A", "1")
	f.Sort()

	assert.Equal(t, "A: 1\r\nB: 2\r\n", f.String())
}

func TestFields_Write(t *testing.T) {
	f := &Fields{}
	f.Add("Content-Type", "text/plain")
	f.Add("Content-Length", "5")

	want := "Content-Type: text/plain\r\nContent-Length: 5\r\n"
	assert.Equal(t, want, f.String())
}
