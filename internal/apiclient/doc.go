// Package apiclient is the dashboard's HTTP client for the GoHome REST API.
//
// Every call is bounded by the client's request timeout and by the
// caller's context. Non-2xx responses are returned as *Error, decoded
// from the server's {"error":{"code","message"}} body when present.
package apiclient
