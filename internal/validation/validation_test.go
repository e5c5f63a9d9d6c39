package validation

import "testing"

func TestValidDestination(t *testing.T) {
	tests := []struct {
		name        string
		destination string
		want        bool
	}{
		{
			name:        "plain address",
			destination: "user@bank",
			want:        true,
		},
		{
			name:        "address with dots and digits",
			destination: "john.doe_99@okaxis",
			want:        true,
		},
		{
			name:        "missing separator",
			destination: "userbank",
			want:        false,
		},
		{
			name:        "single character id",
			destination: "a@bank",
			want:        false,
		},
		{
			name:        "digits in provider",
			destination: "user@bank123",
			want:        false,
		},
		{
			name:        "empty string",
			destination: "",
			want:        false,
		},
		{
			name:        "trailing whitespace",
			destination: "user@bank ",
			want:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidDestination(tt.destination); got != tt.want {
				t.Errorf("ValidDestination(%q) = %v, want %v", tt.destination, got, tt.want)
			}
		})
	}
}
