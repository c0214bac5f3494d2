// Copyright  Project Contour Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License.  You may obtain
// a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the
// License for the specific language governing permissions and limitations
// under the License.

// Package status classifies the errors this relay can encounter into
// the error taxonomy the relay follows, attaching the class to the
// error so it can be logged and inspected with errors.As. Exit codes
// and goroutine termination are decided by the callers, not by the
// class.
package status

// Class identifies one of the relay's error categories.
type Class string

const (
	// Protocol is an upstream frame that failed to decompress or
	// decode. Counted and logged; the ingest loop backs off and
	// continues.
	Protocol Class = "protocol"

	// Construction is an invalid predicate description: a bad
	// regex, an unparsable date bound, an unknown or missing field.
	Construction Class = "construction"

	// SubscriberIO is a failed or backed-up send to a subscriber
	// channel. Swallowed; only the owning subscriber is affected.
	SubscriberIO Class = "subscriber_io"

	// Retention is a retention-store connectivity or index error.
	Retention Class = "retention"

	// Configuration is an invalid or missing startup configuration
	// value.
	Configuration Class = "configuration"
)

// Fatal reports whether an error of this class should abort the
// process rather than be logged and absorbed by its owning component.
func (c Class) Fatal() bool {
	return c == Configuration
}

// Error pairs a Class with the underlying cause, so callers can log
// structured fields and callers further up the stack can classify the
// failure with errors.As.
type Error struct {
	Class Class
	Err   error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap annotates err with the given Class. Returns nil if err is nil.
func Wrap(class Class, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Class: class, Err: err}
}
