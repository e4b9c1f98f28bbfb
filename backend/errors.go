// SPDX-License-Identifier: EPL-2.0

package backend

import "errors"

// ErrUnavailable is returned when the host has no usable audio output.
var ErrUnavailable = errors.New("audio backend unavailable")
