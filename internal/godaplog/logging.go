/*
 * godap
 *
 * Copyright 2024 The godap Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the MIT
 * License, If a copy of the MIT License was not distributed with this
 * file, You can obtain one at https://opensource.org/licenses/MIT.
 */

/*
Package godaplog provides a small level-filtered logger used for the core's
own diagnostics. It never carries DAP protocol state — that is exclusively
the job of DAP events emitted by the dispatcher.
*/
package godaplog

import (
	"fmt"
	"io"
	"log"
	"strings"
)

/*
Level represents a logging level.
*/
type Level string

/*
Log levels, ordered from most to least verbose.
*/
const (
	Debug Level = "debug"
	Info  Level = "info"
	Error Level = "error"
)

var levelRank = map[Level]int{Debug: 0, Info: 1, Error: 2}

/*
Logger wraps a stdlib *log.Logger and filters messages below its configured
level.
*/
type Logger struct {
	out   *log.Logger
	level Level
}

/*
New creates a new Logger writing to w, prefixed with name, filtering out
anything below level. An unrecognized level defaults to Info.
*/
func New(w io.Writer, name string, level string) *Logger {
	l := Level(strings.ToLower(level))
	if _, ok := levelRank[l]; !ok {
		l = Info
	}
	return &Logger{
		out:   log.New(w, fmt.Sprintf("[%s] ", name), log.Ldate|log.Ltime|log.Lmicroseconds),
		level: l,
	}
}

/*
Level returns the current log level.
*/
func (l *Logger) Level() Level {
	return l.level
}

func (l *Logger) enabled(level Level) bool {
	return levelRank[level] >= levelRank[l.level]
}

/*
Debugf logs a debug-level message if the logger's level permits it.
*/
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.enabled(Debug) {
		l.out.Printf(format, args...)
	}
}

/*
Infof logs an info-level message if the logger's level permits it.
*/
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.enabled(Info) {
		l.out.Printf(format, args...)
	}
}

/*
Errorf logs an error-level message if the logger's level permits it.
*/
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.enabled(Error) {
		l.out.Printf(format, args...)
	}
}
