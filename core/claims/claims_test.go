package claims

import (
	"context"
	"testing"
)

func TestCapabilities(t *testing.T) {
	admin := Set(context.Background(), Claims{UserID: "a", Role: RoleAdmin})
	instructor := Set(context.Background(), Claims{UserID: "i", Role: RoleInstructor})
	buyer := Set(context.Background(), Claims{UserID: "u", Role: RoleUser})
	anonymous := context.Background()

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"admin has instructor role", HasRole(admin, RoleInstructor), true},
		{"instructor has instructor role", HasRole(instructor, RoleInstructor), true},
		{"buyer lacks instructor role", HasRole(buyer, RoleInstructor), false},
		{"anonymous lacks user role", HasRole(anonymous, RoleUser), false},
		{"owner owns", IsOwner(buyer, "u"), true},
		{"stranger does not own", IsOwner(buyer, "i"), false},
		{"admin owns everything", IsOwner(admin, "u"), true},
		{"anonymous owns nothing", IsOwner(anonymous, ""), false},
		{"admin is admin", IsAdmin(admin), true},
		{"instructor is not admin", IsAdmin(instructor), false},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, tt.got)
		}
	}
}

func TestGetMissing(t *testing.T) {
	if _, err := Get(context.Background()); err != ErrMissing {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleAdmin, RoleInstructor, RoleUser} {
		if !ValidRole(r) {
			t.Fatalf("%s should be valid", r)
		}
	}
	if ValidRole("OWNER") {
		t.Fatal("unknown role accepted")
	}
}
