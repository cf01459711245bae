package auth

import "testing"

func TestGenerateOpaqueToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := GenerateOpaqueToken()
		if err != nil {
			t.Fatalf("unexpected error generating token: %v", err)
		}
		if len(token) < 32 {
			t.Fatalf("token too short: %q", token)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token generated: %q", token)
		}
		seen[token] = struct{}{}
	}
}
