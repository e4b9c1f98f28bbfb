// SPDX-License-Identifier: EPL-2.0

package dispatch

import "errors"

// ErrUnknownAsset means a start command referenced an asset id that was
// never handed out. It signals a bug in the caller, not a runtime condition.
var ErrUnknownAsset = errors.New("unknown asset id")
