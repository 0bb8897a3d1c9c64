package verification

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stake-plus/sentinel/src/sentinel/data"
	"github.com/stake-plus/sentinel/src/sentinel/registry"
)

// Gateway is the slice of Discord the verifier talks to.
type Gateway interface {
	SendDM(userID, content string) (channelID string, err error)
	Kick(guildID, userID, reason string) error
}

// Outcome is the terminal state of one verification flow. Timeout and
// bad answers are expected outcomes, not errors.
type Outcome int

const (
	OutcomePassed Outcome = iota
	OutcomeWrong
	OutcomeMalformed
	OutcomeTimeout
	OutcomeAbandoned // DM undeliverable or shutdown mid-flow
)

func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeWrong:
		return "wrong"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "abandoned"
	}
}

const DefaultTimeout = 120 * time.Second

type Config struct {
	Gateway   Gateway
	Registry  *registry.Registry
	Redis     *redis.Client
	GuildID   string
	GuildName string
	Timeout   time.Duration
}

// Verifier runs one independent challenge flow per joining member. Each
// flow owns its record for its whole lifetime; the only shared piece is
// the reply routing table, keyed by member ID.
type Verifier struct {
	config Config

	mu      sync.Mutex
	waiting map[string]*flow
}

type flow struct {
	dmChannelID string
	replies     chan string
}

func New(config Config) *Verifier {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	return &Verifier{
		config:  config,
		waiting: make(map[string]*flow),
	}
}

// Begin runs a full verification flow for a freshly joined member and
// blocks until it reaches a terminal state. Callers run it on its own
// goroutine so concurrent joins never wait on each other.
func (v *Verifier) Begin(ctx context.Context, userID, username string) Outcome {
	ch := newChallenge()

	greeting := fmt.Sprintf(
		"Welcome to %s! Please answer this to verify you're human:\n%s",
		v.guildName(), ch.question,
	)

	dmChannelID, err := v.config.Gateway.SendDM(userID, greeting)
	if err != nil {
		// DMs disabled or the member left already. The flow cannot
		// proceed; leave the member alone rather than kick blind.
		log.Printf("verification: challenge DM to %s failed: %v", username, err)
		return OutcomeAbandoned
	}

	f := &flow{
		dmChannelID: dmChannelID,
		replies:     make(chan string, 1),
	}
	v.register(userID, f)
	defer v.unregister(userID)

	timer := time.NewTimer(v.config.Timeout)
	defer timer.Stop()

	var outcome Outcome
	select {
	case reply := <-f.replies:
		outcome = grade(reply, ch.answer)
	case <-timer.C:
		outcome = OutcomeTimeout
	case <-ctx.Done():
		return OutcomeAbandoned
	}

	v.finish(userID, username, outcome)
	return outcome
}

// HandleReply routes a DM back to the flow waiting on it. Returns true
// if the message belonged to an in-flight verification. Messages from
// other members or other channels are never delivered.
func (v *Verifier) HandleReply(channelID, userID, content string) bool {
	v.mu.Lock()
	f, ok := v.waiting[userID]
	if ok && f.dmChannelID != channelID {
		ok = false
	}
	v.mu.Unlock()

	if !ok {
		return false
	}

	select {
	case f.replies <- content:
	default:
		// Flow already got its single reply; extras are dropped.
	}
	return true
}

// Pending reports whether a member has an in-flight verification.
func (v *Verifier) Pending(userID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.waiting[userID]
	return ok
}

// SetGuildName updates the server name used in challenge greetings,
// learned from the Ready event.
func (v *Verifier) SetGuildName(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.config.GuildName = name
}

func (v *Verifier) guildName() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.config.GuildName == "" {
		return "the server"
	}
	return v.config.GuildName
}

func (v *Verifier) register(userID string, f *flow) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.waiting[userID] = f
}

func (v *Verifier) unregister(userID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.waiting, userID)
}

func grade(reply string, expected int) Outcome {
	answer, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return OutcomeMalformed
	}
	if answer != expected {
		return OutcomeWrong
	}
	return OutcomePassed
}

// finish applies the terminal side effects: notify, kick on failure and
// bump the counters. Remote failures are logged, never retried, and do
// not change the outcome already decided.
func (v *Verifier) finish(userID, username string, outcome Outcome) {
	switch outcome {
	case OutcomePassed:
		v.config.Registry.AddPassed()
		v.notify(userID, "Verified successfully. Welcome to the server!")
	case OutcomeTimeout:
		v.config.Registry.AddFailed()
		v.notify(userID, "You didn't respond in time. You will be removed; feel free to rejoin and try again.")
		v.kick(userID, username, "Verification failed: timeout")
	case OutcomeMalformed:
		v.config.Registry.AddFailed()
		v.notify(userID, "That wasn't a number. You will be removed; feel free to rejoin and try again.")
		v.kick(userID, username, "Verification failed: invalid answer")
	case OutcomeWrong:
		v.config.Registry.AddFailed()
		v.notify(userID, "Incorrect answer. You will be removed; feel free to rejoin and try again.")
		v.kick(userID, username, "Verification failed: wrong answer")
	}

	if v.config.Redis != nil {
		_ = data.PublishEvent(context.Background(), v.config.Redis, map[string]interface{}{
			"event":   "verification",
			"user":    userID,
			"outcome": outcome.String(),
			"time":    time.Now().Unix(),
		})
	}
}

func (v *Verifier) notify(userID, content string) {
	if _, err := v.config.Gateway.SendDM(userID, content); err != nil {
		log.Printf("verification: notify %s: %v", userID, err)
	}
}

func (v *Verifier) kick(userID, username, reason string) {
	if err := v.config.Gateway.Kick(v.config.GuildID, userID, reason); err != nil {
		log.Printf("verification: kick %s: %v", username, err)
	}
}
