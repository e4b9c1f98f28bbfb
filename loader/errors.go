// SPDX-License-Identifier: EPL-2.0

package loader

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrBadStatus         = errors.New("unexpected http status")
	ErrTooLarge          = errors.New("asset exceeds size limit")
	ErrEmptyAsset        = errors.New("asset decoded to no audio")
)
