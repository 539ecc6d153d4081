// Package audit implements async event dispatching for
// security-relevant session operations.
//
// # Components
//
//   - [Sink] — interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher] — buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event] — structured audit record with id, timestamp, type, identity, tenant, IP, metadata.
//
// The package owns buffering and sink delivery only. Which events get
// emitted, and with what payloads, is decided by the session manager.
// It never filters events on business grounds and carries no token or
// credential material.
package audit
