// Package server hosts the service's network surfaces: the websocket
// audio ingest server, the HTTP monitoring API and the optional static
// frontend host.
package server
