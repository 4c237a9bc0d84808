package auth

import "testing"

func TestValidatorValidate(t *testing.T) {
	v := NewValidator("sk-admin-0123456789abcdef")

	tests := []struct {
		name      string
		candidate string
		want      bool
	}{
		{"correct key", "sk-admin-0123456789abcdef", true},
		{"wrong key", "sk-admin-0000000000000000", false},
		{"empty key", "", false},
		{"prefix of correct key", "sk-admin-0123456789abcd", false},
		{"correct key plus suffix", "sk-admin-0123456789abcdefXX", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Validate(tt.candidate); got != tt.want {
				t.Errorf("Validate(%q) = %v, want %v", tt.candidate, got, tt.want)
			}
		})
	}
}

func TestValidatorConcurrentAccess(t *testing.T) {
	v := NewValidator("sk-admin-0123456789abcdef")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			if !v.Validate("sk-admin-0123456789abcdef") {
				t.Error("concurrent validation failed")
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
