package intent

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase and url", "Check https://example.com/a NOW!!!", "check now"},
		{"www url", "see www.example.org please", "see please"},
		{"repeated latin", "goooood", "good"},
		{"repeated arabic", "مرحباااا", "مرحباا"},
		{"hamza variants and tashkeel", "أَنا", "انا"},
		{"alef maqsura", "إلى", "الي"},
		{"ta marbuta", "مدرسة", "مدرسه"},
		{"keheh", "گلام", "كلام"},
		{"presentation form ligature kept", "ﻻ", "ﻻ"},
		{"full-width latin kept", "Ｈａｓｈｉｓｈ", "ｈａｓｈｉｓｈ"},
		{"underscore and digits kept", "hello_world 42", "hello_world 42"},
		{"whitespace collapsed", "  a \t\n b  ", "a b"},
		{"symbols only", "?!.,", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q): got %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Je veux ARRÊTER!!! www.x.fr",
		"واش نقدر نحبس الحشيش؟؟؟",
		"bghiiiit n3awnek 😀",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestCollapseRepeats(t *testing.T) {
	if got := collapseRepeats("aaabbbbcc", 2); got != "aabbcc" {
		t.Errorf("got %q, want %q", got, "aabbcc")
	}
	if got := collapseRepeats("", 2); got != "" {
		t.Errorf("empty: got %q", got)
	}
}
