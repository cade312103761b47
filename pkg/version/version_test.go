package version

import "testing"

func TestGetRelease(t *testing.T) {
	tests := []struct {
		name     string
		injected string
		want     string
	}{
		{"injected", "v1.2.3", "v1.2.3"},
		{"not injected", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := release
			release = tt.injected
			defer func() { release = old }()

			got := GetRelease()
			if got.Release == "" {
				t.Fatal("empty release")
			}
			if tt.want != "" && got.Release != tt.want {
				t.Errorf("Release = %q, want %q", got.Release, tt.want)
			}
		})
	}
}
