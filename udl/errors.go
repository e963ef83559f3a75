// Copyright 2023 UrbanDataLab AG

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package udl

import (
	"errors"
	"fmt"
)

// Kind classifies a client failure.
type Kind int

// Values of Kind. The zero value is reserved for non-API errors.
const (
	KindInvalidArgument Kind = iota + 1 // local validation, no request issued
	KindAuthentication                  // missing, bad or expired token
	KindNotFound                        // unknown ID or endpoint
	KindRateLimit                       // server throttling
	KindServer                          // 5xx and other server-side failures
	KindTransport                       // network failure or timeout
	KindSchema                          // response shape not understood
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindAuthentication:
		return "authentication failed"
	case KindNotFound:
		return "not found"
	case KindRateLimit:
		return "rate limited"
	case KindServer:
		return "server error"
	case KindTransport:
		return "transport error"
	case KindSchema:
		return "unexpected response schema"
	}
	return fmt.Sprintf("unknown kind %d", int(k))
}

// Error is a typed failure of an API operation.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status code, when applicable
	Message string // the server's error field, or a local description
	Details string // the server's details field, if any
	Err     error  // underlying error, if any
}

var _ error = &Error{}

func (e *Error) Error() string {
	s := e.Message
	if e.Details != "" {
		s += ": " + e.Details
	}
	if e.Status != 0 {
		s += fmt.Sprintf(" [status %d]", e.Status)
	}
	if e.Err != nil {
		if s != "" {
			s += ": "
		}
		s += e.Err.Error()
	}
	if s == "" {
		s = e.Kind.String()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error, looking through any
// annotation wrappers. It returns the zero Kind for errors that did not
// originate in this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func errInvalidArgument(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func errSchema(err error, what string) error {
	return &Error{Kind: KindSchema, Message: "unexpected " + what + " response", Err: err}
}

// statusKind maps an HTTP status code to a failure kind.
func statusKind(code int) Kind {
	switch {
	case code == 400:
		return KindInvalidArgument
	case code == 401 || code == 403:
		return KindAuthentication
	case code == 404:
		return KindNotFound
	case code == 429:
		return KindRateLimit
	}
	return KindServer
}
