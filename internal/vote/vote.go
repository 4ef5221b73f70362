// Package vote holds the per-item vote state machine shared by comments and
// publications, and an optimistic wrapper that can roll a local score back
// when the store rejects the change.
package vote

import (
	"fmt"
	"strings"
)

// State is the acting user's vote on one item.
type State int

const (
	None State = iota
	Up
	Down
)

func (s State) String() string {
	switch s {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// Value is the stored vote value: +1, -1, or 0 for no row.
func (s State) Value() int {
	switch s {
	case Up:
		return 1
	case Down:
		return -1
	default:
		return 0
	}
}

// FromValue maps a stored vote value back to a State.
func FromValue(v int) State {
	switch {
	case v > 0:
		return Up
	case v < 0:
		return Down
	default:
		return None
	}
}

// Direction is the vote being cast.
type Direction int

const (
	Upvote   Direction = 1
	Downvote Direction = -1
)

// ParseDirection accepts "up"/"+1"/"+" and "down"/"-1"/"-".
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "+1", "+", "1":
		return Upvote, nil
	case "down", "-1", "-":
		return Downvote, nil
	}
	return 0, fmt.Errorf("vote: invalid direction %q", s)
}

// Transition applies a cast to the current state. Casting the same direction
// again retracts the vote; casting the opposite direction switches it, which
// moves the score by two.
func Transition(current State, cast Direction) (next State, delta int) {
	target := Up
	if cast == Downvote {
		target = Down
	}
	switch current {
	case target:
		return None, -target.Value()
	case None:
		return target, target.Value()
	default:
		return target, target.Value() - current.Value()
	}
}

// Optimistic is a locally displayed vote and score.
type Optimistic struct {
	State State
	Score int
}

// Pending is an optimistic change awaiting confirmation from the store.
type Pending struct {
	target *Optimistic
	prior  Optimistic
	Delta  int
}

// Apply moves o to the post-vote state immediately and returns the pending
// change so the caller can commit or roll it back.
func (o *Optimistic) Apply(cast Direction) *Pending {
	p := &Pending{target: o, prior: *o}
	next, delta := Transition(o.State, cast)
	o.State = next
	o.Score += delta
	p.Delta = delta
	return p
}

// Commit accepts the optimistic change. If the store reports an authoritative
// score it replaces the local one.
func (p *Pending) Commit(authoritative *int) {
	if authoritative != nil {
		p.target.Score = *authoritative
	}
}

// Rollback restores the state and score seen before Apply.
func (p *Pending) Rollback() {
	*p.target = p.prior
}
