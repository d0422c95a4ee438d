/*
Copyright 2025 The FFS Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package pathutil_test

import (
	"reflect"
	"testing"

	"github.com/cyantree/ffs/pkg/pathutil"
)

func TestSplit(t *testing.T) {
	cases := []struct {
		path                         string
		comps                        []string
		rooted, homeRooted, dirOnly bool
	}{
		{"", nil, false, false, false},
		{"/", nil, true, false, true},
		{"/a/b/c", []string{"a", "b", "c"}, true, false, false},
		{"/a/b/", []string{"a", "b"}, true, false, true},
		{"a/b", []string{"a", "b"}, false, false, false},
		{"~", nil, false, true, false},
		{"~/", nil, false, true, true},
		{"~/docs", []string{"docs"}, false, true, false},
		{"./a/./b", []string{"a", "b"}, false, false, false},
		{"a//b", []string{"a", "b"}, false, false, false},
		{"../up", []string{"..", "up"}, false, false, false},
		{"a/../b", []string{"a", "..", "b"}, false, false, false},
	}
	for _, c := range cases {
		comps, rooted, homeRooted, dirOnly := pathutil.Split(c.path)
		if !reflect.DeepEqual(comps, c.comps) {
			t.Errorf("Split(%q) comps = %v, want %v", c.path, comps, c.comps)
		}
		if rooted != c.rooted || homeRooted != c.homeRooted || dirOnly != c.dirOnly {
			t.Errorf("Split(%q) = rooted=%v homeRooted=%v dirOnly=%v, want rooted=%v homeRooted=%v dirOnly=%v",
				c.path, rooted, homeRooted, dirOnly, c.rooted, c.homeRooted, c.dirOnly)
		}
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		comps []string
		want  string
	}{
		{nil, "/"},
		{[]string{"a"}, "/a"},
		{[]string{"a", "b", "c"}, "/a/b/c"},
	}
	for _, c := range cases {
		if got := pathutil.Join(c.comps); got != c.want {
			t.Errorf("Join(%v) = %q, want %q", c.comps, got, c.want)
		}
	}
}

func TestSplitJoinRoundTrip(t *testing.T) {
	for _, path := range []string{"/a/b/c", "/x", "/"} {
		comps, _, _, _ := pathutil.Split(path)
		if got := pathutil.Join(comps); got != path {
			t.Errorf("Join(Split(%q)) = %q, want %q", path, got, path)
		}
	}
}
