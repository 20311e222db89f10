// Package stream manages per-connection audio sessions. Each session
// owns its own detection engine, resampler and frame assembler; the
// manager tracks sessions by ID and reaps idle ones in the background.
package stream
