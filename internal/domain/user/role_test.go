package user

import "testing"

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{"admin", RoleAdmin},
		{"Admin", RoleAdmin},
		{" ADMIN ", RoleAdmin},
		{"organizer", RoleAdmin},
		{"user", RoleUser},
		{"", RoleUser},
		{"superuser", RoleUser},
		{"administrator", RoleUser},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseRole(tt.raw); got != tt.want {
				t.Fatalf("ParseRole(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRoleIsAdmin(t *testing.T) {
	if !RoleAdmin.IsAdmin() {
		t.Fatalf("RoleAdmin must report admin")
	}
	if RoleUser.IsAdmin() {
		t.Fatalf("RoleUser must not report admin")
	}
	// raw strings never carry privileges, only parsed roles do
	if Role("ADMIN").IsAdmin() {
		t.Fatalf("unparsed role string must not report admin")
	}
}
