// Package protocol defines the JSON messages exchanged with clients over
// the websocket: inbound audio chunks and outbound per-frame detection
// results. Parsing validates payloads before any sample reaches the
// processing pipeline.
package protocol
