package config

import (
	"reflect"
	"testing"
)

func TestParseIDSet(t *testing.T) {
	tests := []struct {
		raw  string
		want map[string]bool
	}{
		{"", map[string]bool{}},
		{"123", map[string]bool{"123": true}},
		{"123, 456 ,789", map[string]bool{"123": true, "456": true, "789": true}},
		{",,123,", map[string]bool{"123": true}},
	}
	for _, tt := range tests {
		if got := parseIDSet(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseIDSet(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseEmojiRoles(t *testing.T) {
	tests := []struct {
		raw  string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"🔵:111", map[string]string{"🔵": "111"}},
		{"🔵:111, 🟢:222", map[string]string{"🔵": "111", "🟢": "222"}},
		{"🔵:111,broken,:333,🟡:", map[string]string{"🔵": "111"}},
	}
	for _, tt := range tests {
		if got := parseEmojiRoles(tt.raw); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseEmojiRoles(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}
