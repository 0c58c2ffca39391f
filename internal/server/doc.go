// Package server implements the HTTP surface using the Echo framework.
//
// Routes: chat (WebSocket upgrade into the hub), health (liveness/readiness),
// version, metrics. Connection admission (global cap, per-IP cap, per-IP rate
// limit) happens here, before a connection ever reaches the hub.
package server
