package verification

import (
	"fmt"
	"strconv"
	"testing"
)

func TestChallengeAnswerMatchesQuestion(t *testing.T) {
	for i := 0; i < 100; i++ {
		ch := newChallenge()

		m := questionRe.FindStringSubmatch(ch.question)
		if m == nil {
			t.Fatalf("malformed question %q", ch.question)
		}

		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[3])
		if a < 1 || a > 20 || b < 1 || b > 20 {
			t.Fatalf("operands out of range in %q", ch.question)
		}

		want := a + b
		if m[2] == "-" {
			want = a - b
		}
		if ch.answer != want {
			t.Fatalf("question %q has answer %d, want %d", ch.question, ch.answer, want)
		}
	}
}

func TestGrade(t *testing.T) {
	tests := []struct {
		reply    string
		expected int
		want     Outcome
	}{
		{"12", 12, OutcomePassed},
		{"  12  ", 12, OutcomePassed},
		{"-3", -3, OutcomePassed},
		{"13", 12, OutcomeWrong},
		{"twelve", 12, OutcomeMalformed},
		{"", 12, OutcomeMalformed},
		{"12.0", 12, OutcomeMalformed},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.reply), func(t *testing.T) {
			if got := grade(tt.reply, tt.expected); got != tt.want {
				t.Fatalf("grade(%q, %d) = %v, want %v", tt.reply, tt.expected, got, tt.want)
			}
		})
	}
}
