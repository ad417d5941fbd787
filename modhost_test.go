package modhost

import "testing"

func TestStatus(t *testing.T) {
	tests := []struct {
		status Status
		ok     bool
		str    string
	}{
		{StatusOK, true, "0"},
		{7, false, "7"},
		{StatusTrap, false, "4294967295"},
	}
	for _, tt := range tests {
		if got := tt.status.OK(); got != tt.ok {
			t.Errorf("Status(%d).OK() = %v, want %v", uint32(tt.status), got, tt.ok)
		}
		if got := tt.status.String(); got != tt.str {
			t.Errorf("Status(%d).String() = %q, want %q", uint32(tt.status), got, tt.str)
		}
	}
}
