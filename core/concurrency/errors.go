// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "github.com/momentics/sockshell/api"

// ErrLoopClosed is returned by helpers that post to a torn down loop.
var ErrLoopClosed = api.ErrQueueClosed
