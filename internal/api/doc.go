// Package api implements the HTTP REST API and push channel of the GoHome core.
//
// This package provides:
//   - REST endpoints under /api for devices, protocols, plugins, widgets and history
//   - The /ws push hub, where clients subscribe sockets to topics
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - /health, a JSON /api/system/metrics snapshot and prometheus /metrics
//
// # Architecture
//
// The API sits between the dashboard and the core services. Device changes
// go through the device registry and are announced to adapters over MQTT
// via the plugin manager. Plugin start/stop requests wait for the plugin's
// ack. Live data flows the other way: the event bus broadcasts on the hub,
// and the hub delivers {"topic","message"} frames to subscribed sockets.
//
// # Push protocol
//
// Client frames are {"action":"subscribe"|"unsubscribe"|"publish","topic":T,"message":M}.
// A publish is delivered to every other subscriber of T. There are no
// acknowledgements or error frames; bad frames are logged and dropped.
//
// # Errors
//
// Error responses have the form {"error":{"code":"...","message":"..."}}.
package api
