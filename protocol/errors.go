// SPDX-License-Identifier: EPL-2.0

package protocol

import "errors"

var (
	ErrUnknownAction = errors.New("unknown audio action")
	ErrUnknownEvent  = errors.New("unknown event type")
	ErrMissingField  = errors.New("missing required field")
)
