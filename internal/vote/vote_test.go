package vote

import "testing"

func TestTransition(t *testing.T) {
	cases := []struct {
		from  State
		cast  Direction
		next  State
		delta int
	}{
		{None, Upvote, Up, 1},
		{None, Downvote, Down, -1},
		{Up, Upvote, None, -1},
		{Down, Downvote, None, 1},
		{Up, Downvote, Down, -2},
		{Down, Upvote, Up, 2},
	}
	for _, tc := range cases {
		next, delta := Transition(tc.from, tc.cast)
		if next != tc.next || delta != tc.delta {
			t.Errorf("%s + %d: got (%s, %d), want (%s, %d)", tc.from, tc.cast, next, delta, tc.next, tc.delta)
		}
	}
}

// The score must always equal a base plus the value of the current state,
// whatever sequence of casts produced it.
func TestTransitionScoreTracksState(t *testing.T) {
	seqs := [][]Direction{
		{Upvote, Downvote, Downvote, Upvote, Upvote},
		{Downvote, Downvote, Downvote},
		{Upvote, Upvote, Upvote, Downvote},
	}
	for _, seq := range seqs {
		state, score := None, 10
		for _, d := range seq {
			var delta int
			state, delta = Transition(state, d)
			score += delta
			if score != 10+state.Value() {
				t.Fatalf("seq %v: score %d inconsistent with state %s", seq, score, state)
			}
		}
	}
}

func TestOptimisticRollback(t *testing.T) {
	o := &Optimistic{State: Up, Score: 7}
	p := o.Apply(Downvote)
	if o.State != Down || o.Score != 5 {
		t.Fatalf("after switch: got (%s, %d), want (down, 5)", o.State, o.Score)
	}
	if p.Delta != -2 {
		t.Fatalf("delta = %d, want -2", p.Delta)
	}
	p.Rollback()
	if o.State != Up || o.Score != 7 {
		t.Fatalf("after rollback: got (%s, %d), want (up, 7)", o.State, o.Score)
	}
}

func TestOptimisticCommit(t *testing.T) {
	o := &Optimistic{}
	p := o.Apply(Upvote)
	p.Commit(nil)
	if o.State != Up || o.Score != 1 {
		t.Fatalf("got (%s, %d), want (up, 1)", o.State, o.Score)
	}
	server := 4
	o.Apply(Upvote).Commit(&server)
	if o.State != None || o.Score != 4 {
		t.Fatalf("got (%s, %d), want (none, 4)", o.State, o.Score)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"up": Upvote, "+1": Upvote, "DOWN": Downvote, "-": Downvote} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Errorf("ParseDirection(%q) = %d, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("sideways"); err == nil {
		t.Errorf("expected error for invalid direction")
	}
}

func TestFromValue(t *testing.T) {
	if FromValue(1) != Up || FromValue(-1) != Down || FromValue(0) != None {
		t.Fatalf("FromValue mapping broken")
	}
}
