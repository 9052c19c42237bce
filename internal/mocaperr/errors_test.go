package mocaperr

import (
	"fmt"
	"testing"
)

func TestErrorKindsMatchThroughWrapping(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"dimension", Dimension("positions", 4, 5), IsInputDimension},
		{"missing", Missing("marker", "LASI"), IsMissing},
		{"insufficient", &InsufficientDataError{Subject: "RASI", Reason: "no gap filled"}, IsInsufficient},
		{"unsupported", Unsupported("force plate type", 7), IsUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			if !tt.check(wrapped) {
				t.Errorf("expected %T to be detected through wrapping", tt.err)
			}
		})
	}
}

func TestErrorKindsDoNotCrossMatch(t *testing.T) {
	err := Missing("channel", "Fz1")
	if IsUnsupported(err) || IsInputDimension(err) || IsInsufficient(err) {
		t.Errorf("MissingDataError matched another kind")
	}
}

func TestErrorMessages(t *testing.T) {
	if got := Missing("marker", "LASI").Error(); got != `marker "LASI" not found` {
		t.Errorf("unexpected message: %s", got)
	}
	if got := Dimension("residuals", 3, 10).Error(); got != "residuals: got 3, want 10" {
		t.Errorf("unexpected message: %s", got)
	}
	if got := Unsupported("force plate type", 9).Error(); got != "unsupported force plate type: 9" {
		t.Errorf("unexpected message: %s", got)
	}
}
