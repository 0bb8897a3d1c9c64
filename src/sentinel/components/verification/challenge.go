package verification

import (
	"fmt"
	"math/rand/v2"
)

// challenge is a two-operand arithmetic question with its expected
// integer answer. Operands stay small so the question is trivial for a
// human and the answer space is still large enough to stop blind raids.
type challenge struct {
	question string
	answer   int
}

func newChallenge() challenge {
	a := rand.IntN(20) + 1
	b := rand.IntN(20) + 1

	if rand.IntN(2) == 0 {
		return challenge{
			question: fmt.Sprintf("What is %d + %d?", a, b),
			answer:   a + b,
		}
	}
	return challenge{
		question: fmt.Sprintf("What is %d - %d?", a, b),
		answer:   a - b,
	}
}
