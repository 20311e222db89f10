// Package audio handles the sample-domain plumbing in front of the VAD
// engine: resampling captured audio down to the analysis rate and
// reassembling the resampled stream into fixed-length analysis frames.
package audio
