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

// Package osutil resolves host-side defaults for the ffsh/mkffs command
// line tools: where to find an image file and shell history by default.
// None of this touches the virtual filesystem's own cwd/home state (those
// are purely in-image concepts, see pkg/pathutil).
package osutil

import (
	"os"
	"path/filepath"
	"runtime"
)

// HomeDir returns the host user's home directory, or the empty string if
// unknown.
func HomeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("USERPROFILE")
	}
	return os.Getenv("HOME")
}

// ConfigDir returns the directory ffsh/mkffs use for their own defaults,
// overridable with FFS_CONFIG_DIR.
func ConfigDir() string {
	if d := os.Getenv("FFS_CONFIG_DIR"); d != "" {
		return d
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" && runtime.GOOS != "windows" {
		return filepath.Join(xdg, "ffs")
	}
	return filepath.Join(HomeDir(), ".ffs")
}

// DefaultImagePath returns the image file ffsh/mkffs operate on absent an
// explicit -image flag, overridable with FFS_IMAGE.
func DefaultImagePath() string {
	if p := os.Getenv("FFS_IMAGE"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "image.ffs")
}

// DefaultHistoryPath returns the ffsh line-history file, overridable with
// FFS_HISTORY.
func DefaultHistoryPath() string {
	if p := os.Getenv("FFS_HISTORY"); p != "" {
		return p
	}
	return filepath.Join(ConfigDir(), "history")
}
