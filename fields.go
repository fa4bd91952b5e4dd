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
	"sort"
	"strings"
)

type nameValue struct {
	Name  string
	Value string
}

func (n *nameValue) String() string {
	return n.Name + ": " + n.Value
}

// Fields is an ordered list of name/value pairs holding a record's header
// fields. Lookups are case insensitive, but the case used when a field was
// added is preserved when writing.
type Fields []*nameValue

// Get gets the first value associated with the given name.
// If the name doesn't exist or there are no values associated with it, Get returns "".
// To access multiple values of a name, use GetAll.
func (f *Fields) Get(name string) string {
	for _, nv := range *f {
		if strings.EqualFold(nv.Name, name) {
			return nv.Value
		}
	}
	return ""
}

func (f *Fields) GetAll(name string) []string {
	var result []string
	for _, nv := range *f {
		if strings.EqualFold(nv.Name, name) {
			result = append(result, nv.Value)
		}
	}
	return result
}

func (f *Fields) Has(name string) bool {
	for _, nv := range *f {
		if strings.EqualFold(nv.Name, name) {
			return true
		}
	}
	return false
}

func (f *Fields) Add(name string, value string) {
	*f = append(*f, &nameValue{Name: name, Value: value})
}

func (f *Fields) Set(name string, value string) {
	isSet := false
	for idx, nv := range *f {
		if strings.EqualFold(nv.Name, name) {
			if isSet {
				*f = append((*f)[:idx], (*f)[idx+1:]...)
			} else {
				nv.Value = value
				isSet = true
			}
		}
	}
	if !isSet {
		*f = append(*f, &nameValue{Name: name, Value: value})
	}
}

func (f *Fields) Delete(name string) {
	var result []*nameValue
	for _, nv := range *f {
		if !strings.EqualFold(nv.Name, name) {
			result = append(result, nv)
		}
	}
	*f = result
}

func (f *Fields) Sort() {
	sort.SliceStable(*f, func(i, j int) bool {
		return (*f)[i].Name < (*f)[j].Name
	})
}

func (f *Fields) Write(w io.Writer) (bytesWritten int64, err error) {
	var n int
	for _, field := range *f {
		n, err = fmt.Fprintf(w, "%s: %s\r\n", field.Name, field.Value)
		bytesWritten += int64(n)
		if err != nil {
			return
		}
	}
	return
}

func (f *Fields) String() string {
	sb := &strings.Builder{}
	if _, err := f.Write(sb); err != nil {
		return err.Error()
	}
	return sb.String()
}
