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

// Package env detects environment-driven behavior toggles for FFS.
package env

import (
	"io"
	"os"
)

// IsDebug reports whether verbose journal/replay tracing is requested via
// the FFS_DEBUG environment variable.
func IsDebug() bool {
	return os.Getenv("FFS_DEBUG") != ""
}

// LogWriter returns the writer FFS tools should log to.
func LogWriter() io.Writer {
	return os.Stderr
}
