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
Package source implements the normalized source location described in
§3: either a resolved absolute path, or a synthetic token such as
"<stdin>" verbatim. Two Source values are interchangeable whenever their
normalized forms are byte-equal.
*/
package source

import "path/filepath"

/*
Source identifies a debuggee source file or synthetic location. It is
comparable and usable as a map key, which is what the breakpoint store
relies on.
*/
type Source struct {
	normalized string
}

/*
New normalizes raw (a path reported by the client or by the Runtime Facade)
to its canonical absolute form. Synthetic tokens — any raw value starting
with '<', e.g. "<stdin>" — are kept verbatim, as is the empty string.
*/
func New(raw string) Source {
	if raw == "" {
		return Source{normalized: raw}
	}
	if raw[0] == '<' {
		return Source{normalized: raw}
	}
	abs, err := filepath.Abs(raw)
	if err != nil {
		return Source{normalized: raw}
	}
	return Source{normalized: filepath.Clean(abs)}
}

/*
String returns the normalized form, suitable for display in DAP Source
bodies and log messages.
*/
func (s Source) String() string {
	return s.normalized
}

/*
IsZero reports whether s is the zero value (no source known).
*/
func (s Source) IsZero() bool {
	return s.normalized == ""
}
