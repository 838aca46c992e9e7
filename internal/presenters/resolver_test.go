package presenters

import (
	"context"
	"testing"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
	"github.com/benariet/SemScan-Project-sub001/internal/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dana", "dana"},
		{"Dana", "dana"},
		{"  Dana  ", "dana"},
		{"Dana@post.example.ac.il", "dana"},
		{"dana@", "dana"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMapResolver(t *testing.T) {
	r := MapResolver{"dana": {Username: "dana", Degree: ""}}

	p, err := r.Resolve(context.Background(), "Dana@post.example.ac.il")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.Username != "dana" {
		t.Errorf("username = %q", p.Username)
	}
	if p.Degree != models.DegreeMSc {
		t.Errorf("degree = %q, unset should normalize to MSc", p.Degree)
	}

	_, err = r.Resolve(context.Background(), "unknown")
	if !domain.IsKind(err, domain.KindMissingIdentity) {
		t.Fatalf("err = %v, want MISSING_IDENTITY", err)
	}
	_, err = r.Resolve(context.Background(), "   ")
	if !domain.IsKind(err, domain.KindMissingIdentity) {
		t.Fatalf("empty handle: err = %v, want MISSING_IDENTITY", err)
	}
}
