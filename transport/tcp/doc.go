// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements an asynchronous TCP client socket on top of the
// readiness reactor. A ClientSocket is confined to its owner task queue:
// every method must be called there, and every completion callback runs
// there.
//
// Operations either complete immediately or return api.ErrIOPending, in
// which case the supplied callback fires exactly once later:
//
//	s := tcp.NewClientSocket(r, loop, addrs)
//	switch err := s.Connect(onConnect); {
//	case err == nil:
//		onConnect(nil)
//	case api.IsPending(err):
//		// onConnect runs later on loop
//	default:
//		// every candidate failed; err is the last one
//	}
package tcp
