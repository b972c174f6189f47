package models

import "testing"

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     ChatRequest
		wantErr bool
		wantK   int
	}{
		{"empty question", ChatRequest{}, true, 0},
		{"defaults top_k", ChatRequest{Question: "when?"}, false, 5},
		{"negative top_k defaults", ChatRequest{Question: "when?", TopK: -2}, false, 5},
		{"keeps explicit top_k", ChatRequest{Question: "when?", TopK: 3}, false, 3},
		{"caps at max", ChatRequest{Question: "when?", TopK: 99}, false, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(5, 20)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.req.TopK != tt.wantK {
				t.Errorf("TopK = %d, want %d", tt.req.TopK, tt.wantK)
			}
		})
	}
}
