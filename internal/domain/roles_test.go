package domain

import "testing"

func TestParseAdminIDs(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "single", raw: "42", want: []int64{42}},
		{name: "spaces and trailing comma", raw: " 1, 2 ,", want: []int64{1, 2}},
		{name: "garbage", raw: "1,abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := ParseAdminIDs(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAdminIDs(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAdminIDs(%q) unexpected error: %v", tt.raw, err)
			}
			if len(set) != len(tt.want) {
				t.Fatalf("ParseAdminIDs(%q) = %d ids, want %d", tt.raw, len(set), len(tt.want))
			}
			for _, id := range tt.want {
				if !set.Contains(id) {
					t.Fatalf("ParseAdminIDs(%q) missing %d", tt.raw, id)
				}
			}
		})
	}
}

func TestMemberStatusSubscribed(t *testing.T) {
	tests := map[MemberStatus]bool{
		MemberStatusMember:        true,
		MemberStatusAdministrator: true,
		MemberStatusOwner:         true,
		MemberStatusRestricted:    false,
		MemberStatusLeft:          false,
		MemberStatusKicked:        false,
		"":                        false,
	}
	for status, want := range tests {
		if got := status.Subscribed(); got != want {
			t.Fatalf("%q.Subscribed() = %v, want %v", status, got, want)
		}
	}
}
