// Copyright 2026 EDW Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package analyst

import "errors"

// ErrorKind classifies generation/execution failures.
type ErrorKind string

const (
	// KindUnreachable: the generation service could not be reached or
	// returned a transport-level failure.
	KindUnreachable ErrorKind = "unreachable"

	// KindEmptyResponse: the service answered but produced no usable SQL.
	KindEmptyResponse ErrorKind = "empty_response"

	// KindExecution: the generated SQL failed to execute downstream.
	KindExecution ErrorKind = "execution"
)

// Error is a generation/execution failure. Message carries everything the
// caller should present, including any schema context gathered for
// unknown-column failures.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the ErrorKind from an error chain. Returns "" for errors
// that did not originate here.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
