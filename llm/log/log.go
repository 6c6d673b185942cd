/**
 * Copyright 2026 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package log

import (
	"io"
	stdlog "log"
	"os"
	"sync/atomic"
)

type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	ErrorLevel
	NoneLevel
)

var (
	level  atomic.Int32
	logger atomic.Pointer[stdlog.Logger]
)

func init() {
	level.Store(int32(InfoLevel))
	logger.Store(stdlog.New(os.Stderr, "", stdlog.LstdFlags))
}

func SetLogLevel(l Level) {
	level.Store(int32(l))
}

func GetLogLevel() Level {
	return Level(level.Load())
}

// SetOutput redirects all log output, mainly for tests.
func SetOutput(w io.Writer) {
	logger.Store(stdlog.New(w, "", stdlog.LstdFlags))
}

func Debug(format string, args ...interface{}) {
	if GetLogLevel() > DebugLevel {
		return
	}
	logger.Load().Printf("[DEBUG] "+format, args...)
}

func Info(format string, args ...interface{}) {
	if GetLogLevel() > InfoLevel {
		return
	}
	logger.Load().Printf("[INFO] "+format, args...)
}

func Error(format string, args ...interface{}) {
	if GetLogLevel() > ErrorLevel {
		return
	}
	logger.Load().Printf("[ERROR] "+format, args...)
}
