// Package vad implements multi-feature Voice Activity Detection.
// Each analysis frame is scored by RMS energy, zero-crossing rate and
// spectral flatness; features are smoothed over a short history, compared
// against adaptive noise floors, combined by majority vote, and debounced
// by a hangover state machine before a frame is reported as speech.
package vad
