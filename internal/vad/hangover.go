package vad

// HangoverStateMachine converts the raw per-frame vote into a debounced
// activity signal. Speech must persist for minSpeechFrames consecutive
// voting frames before the machine latches active; once latched, activity
// is held while the hangover counter drains, regardless of per-frame
// votes, so short gaps inside an utterance do not flicker the decision.
type HangoverStateMachine struct {
	minSpeechFrames int
	hangoverFrames  int

	speechFrameCount int
	hangoverCounter  int
	voiceActive      bool
}

// NewHangoverStateMachine creates a state machine that activates after
// minSpeechFrames consecutive speech votes and holds activity for
// hangoverFrames frames once votes stop.
func NewHangoverStateMachine(minSpeechFrames, hangoverFrames int) *HangoverStateMachine {
	return &HangoverStateMachine{
		minSpeechFrames: minSpeechFrames,
		hangoverFrames:  hangoverFrames,
	}
}

// Update advances the machine by one frame and returns whether voice is
// active after the transition. Every voting frame past the activation
// threshold refills the hangover counter; the counter drains by one per
// frame, so the hold window spans hangoverFrames frames counted from the
// last refilling frame.
func (h *HangoverStateMachine) Update(speechDetected bool) bool {
	if speechDetected {
		h.speechFrameCount++
		if h.speechFrameCount >= h.minSpeechFrames {
			h.hangoverCounter = h.hangoverFrames
		}
	} else {
		h.speechFrameCount = 0
	}

	if h.hangoverCounter > 0 {
		h.voiceActive = true
		h.hangoverCounter--
	} else {
		h.voiceActive = false
	}

	return h.voiceActive
}

// VoiceActive reports the debounced activity state.
func (h *HangoverStateMachine) VoiceActive() bool {
	return h.voiceActive
}

// HangoverCounter reports the remaining hold frames.
func (h *HangoverStateMachine) HangoverCounter() int {
	return h.hangoverCounter
}

// SpeechFrameCount reports the current consecutive speech vote count.
func (h *HangoverStateMachine) SpeechFrameCount() int {
	return h.speechFrameCount
}

// InSilence reports true silence: voice inactive with no hangover tail.
// Noise floor adaptation is gated on this, not on the raw per-frame vote.
func (h *HangoverStateMachine) InSilence() bool {
	return !h.voiceActive && h.hangoverCounter == 0
}
