package transport

import "testing"

func TestParseCommand(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		wantCmd  string
		wantArgs string
		wantOK   bool
	}{
		{"bare verb", "/start", "/start", "", true},
		{"verb with args", "/addprompt best office snack?", "/addprompt", "best office snack?", true},
		{"addressed to us", "/start@quip_bot", "/start", "", true},
		{"addressed to us, mixed case", "/Start@Quip_Bot", "/start", "", true},
		{"addressed elsewhere", "/start@other_bot", "", "", false},
		{"not a command", "hello there", "", "", false},
		{"leading whitespace", "  /vote  ", "/vote", "", true},
		{"args keep inner spacing", "/addprompt  two  words", "/addprompt", "two  words", true},
		{"empty", "", "", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmd, args, ok := ParseCommand(tc.text, "quip_bot")
			if ok != tc.wantOK {
				t.Fatalf("ok: want %v, got %v", tc.wantOK, ok)
			}
			if cmd != tc.wantCmd || args != tc.wantArgs {
				t.Fatalf("want %q %q, got %q %q", tc.wantCmd, tc.wantArgs, cmd, args)
			}
		})
	}
}
