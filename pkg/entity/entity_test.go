package entity

import "testing"

func TestGroupKey(t *testing.T) {
	tests := []struct {
		id   string
		want Key
	}{
		{"safety", "group:safety"},
		{"", UngroupedKey},
		{"~ungrouped", "group:~ungrouped"},
	}
	for _, tt := range tests {
		if got := GroupKey(tt.id); got != tt.want {
			t.Errorf("GroupKey(%q) = %q, want %q", tt.id, got, tt.want)
		}
		if !GroupKey(tt.id).IsGroup() {
			t.Errorf("GroupKey(%q).IsGroup() = false", tt.id)
		}
	}
	if (Group{ID: "~ungrouped"}).Key() == (Group{}).Key() {
		t.Error("named group collides with the ungrouped sentinel")
	}
}
