// Copyright 2026 The Corral Authors
// SPDX-License-Identifier: Apache-2.0

// Package rpc implements the CBOR request-response protocol spoken on
// every Corral Unix socket: the herder control socket, the simulator
// socket, and the relay socket.
//
// Each connection carries exactly one request-response cycle. The
// client writes a single CBOR map containing an "action" field plus
// action-specific fields, half-closes the write side, and reads a
// single CBOR [Response] envelope. CBOR is self-delimiting, so no
// framing protocol is needed.
//
// Servers register an [ActionFunc] per action with
// [SocketServer.Handle]. Every server answers the builtin "ping"
// action, which [WaitReady] uses to probe dependency readiness during
// startup ordering.
//
// [Client.Call] wraps the connect-send-receive cycle and decodes
// response data into a caller-provided value. Application errors from
// the server surface as [*ServiceError]; transport and encoding
// failures are plain errors.
package rpc
