package network_wifi

import "testing"

func TestSignalPercent(t *testing.T) {
	tests := []struct {
		dbm  int
		want uint8
	}{
		{-30, 100},
		{-50, 100},
		{-70, 60},
		{-90, 20},
		{-100, 0},
		{-120, 0},
	}

	for _, tt := range tests {
		if got := SignalPercent(tt.dbm); got != tt.want {
			t.Errorf("SignalPercent(%d) = %d, want %d", tt.dbm, got, tt.want)
		}
	}
}
