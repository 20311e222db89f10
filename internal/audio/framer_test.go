package audio

import "testing"

func TestNewFrameAssemblerValidation(t *testing.T) {
	if _, err := NewFrameAssembler(0); err == nil {
		t.Error("Expected error for zero frame size")
	}
	if _, err := NewFrameAssembler(-10); err == nil {
		t.Error("Expected error for negative frame size")
	}
	if _, err := NewFrameAssembler(320); err != nil {
		t.Errorf("Expected no error for valid frame size, got: %v", err)
	}
}

func TestFrameAssemblerCarryOver(t *testing.T) {
	assembler, err := NewFrameAssembler(320)
	if err != nil {
		t.Fatalf("Failed to create assembler: %v", err)
	}

	// A short push produces nothing and carries everything over.
	frames := assembler.Push(make([]float64, 200))
	if len(frames) != 0 {
		t.Errorf("Expected no frames from 200 samples, got %d", len(frames))
	}
	if assembler.Pending() != 200 {
		t.Errorf("Expected 200 pending samples, got %d", assembler.Pending())
	}

	// The next push completes one frame with 80 left over.
	frames = assembler.Push(make([]float64, 200))
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if len(frames[0]) != 320 {
		t.Errorf("Expected frame of 320 samples, got %d", len(frames[0]))
	}
	if assembler.Pending() != 80 {
		t.Errorf("Expected 80 pending samples, got %d", assembler.Pending())
	}
}

func TestFrameAssemblerMultipleFrames(t *testing.T) {
	assembler, err := NewFrameAssembler(320)
	if err != nil {
		t.Fatalf("Failed to create assembler: %v", err)
	}

	// 1486 resampled samples (a 4096-sample capture chunk at 44.1k -> 16k)
	// yield 4 frames with 206 samples carried over.
	frames := assembler.Push(make([]float64, 1486))
	if len(frames) != 4 {
		t.Errorf("Expected 4 frames, got %d", len(frames))
	}
	if assembler.Pending() != 206 {
		t.Errorf("Expected 206 pending samples, got %d", assembler.Pending())
	}
}

func TestFrameAssemblerSampleOrder(t *testing.T) {
	assembler, err := NewFrameAssembler(4)
	if err != nil {
		t.Fatalf("Failed to create assembler: %v", err)
	}

	frames := assembler.Push([]float64{1, 2, 3})
	if len(frames) != 0 {
		t.Fatalf("Expected no frames yet, got %d", len(frames))
	}

	frames = assembler.Push([]float64{4, 5, 6, 7, 8, 9})
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}

	want := [][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}}
	for f, frame := range frames {
		for i, s := range frame {
			if s != want[f][i] {
				t.Errorf("Frame %d sample %d: got %v, want %v", f, i, s, want[f][i])
			}
		}
	}
	if assembler.Pending() != 1 {
		t.Errorf("Expected 1 pending sample, got %d", assembler.Pending())
	}
}

func TestFrameAssemblerFramesAreOwnedCopies(t *testing.T) {
	assembler, err := NewFrameAssembler(2)
	if err != nil {
		t.Fatalf("Failed to create assembler: %v", err)
	}

	frames := assembler.Push([]float64{1, 2, 3, 4})
	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}

	// Mutating one returned frame must not affect another or the
	// assembler's internal state.
	frames[0][0] = 99
	if frames[1][0] != 3 {
		t.Errorf("Frames share backing storage: %v", frames[1])
	}
}

func TestFrameAssemblerReset(t *testing.T) {
	assembler, err := NewFrameAssembler(320)
	if err != nil {
		t.Fatalf("Failed to create assembler: %v", err)
	}

	assembler.Push(make([]float64, 100))
	assembler.Reset()
	if assembler.Pending() != 0 {
		t.Errorf("Expected no pending samples after reset, got %d", assembler.Pending())
	}
}
