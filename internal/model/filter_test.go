package model

import "testing"

func TestParseFilter(t *testing.T) {
	cases := []struct {
		in      string
		want    Filter
		wantErr bool
	}{
		{"", FilterAll, false},
		{"all", FilterAll, false},
		{"pending", FilterPending, false},
		{"auto_resolved", FilterAutoResolved, false},
		{"escalated", FilterEscalated, false},
		{"in_progress", "", true}, // not a listing filter despite being a status
		{"closed", "", true},
	}
	for _, tc := range cases {
		got, err := ParseFilter(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseFilter(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFilter(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseFilter(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFilterMatches(t *testing.T) {
	resolved := Ticket{ID: "TCK-1", Outcome: AutoResolved{Response: "ok"}}
	pending := Ticket{ID: "TCK-2", Outcome: Pending{}}

	if !FilterAll.Matches(resolved) || !FilterAll.Matches(pending) {
		t.Fatal("FilterAll must match every ticket")
	}
	if !FilterAutoResolved.Matches(resolved) {
		t.Fatal("auto_resolved filter should match a resolved ticket")
	}
	if FilterAutoResolved.Matches(pending) {
		t.Fatal("auto_resolved filter matched a pending ticket")
	}
	if !FilterPending.Matches(pending) {
		t.Fatal("pending filter should match a pending ticket")
	}
}
