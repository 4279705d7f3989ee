package state

import (
	"errors"
	"sync"
	"testing"

	"github.com/avelow/voxbridge/pkg/provider/callctl"
)

type nopChannel struct{}

func (nopChannel) SendMessage([]byte) error { return nil }

func TestStartEndCall(t *testing.T) {
	s := New()
	if s.Active() {
		t.Fatal("fresh state must not be active")
	}
	if _, err := s.Channel(); !errors.Is(err, ErrNoActiveCall) {
		t.Fatalf("got %v, want ErrNoActiveCall", err)
	}

	h := callctl.Handle{ID: "CA1"}
	if err := s.StartCall(nopChannel{}, h); err != nil {
		t.Fatalf("StartCall: %v", err)
	}
	if !s.Active() {
		t.Fatal("state must be active after StartCall")
	}
	got, err := s.Handle()
	if err != nil || got.ID != "CA1" {
		t.Fatalf("Handle = %+v, %v", got, err)
	}

	if err := s.StartCall(nopChannel{}, callctl.Handle{ID: "CA2"}); !errors.Is(err, ErrCallActive) {
		t.Fatalf("second StartCall: got %v, want ErrCallActive", err)
	}

	s.EndCall()
	if s.Active() {
		t.Fatal("state must be idle after EndCall")
	}
	// EndCall on idle state is fine.
	s.EndCall()
}

func TestStartCallResetsSeqAndMute(t *testing.T) {
	s := New()
	s.StartCall(nopChannel{}, callctl.Handle{ID: "a"})
	s.NextSeq()
	s.NextSeq()
	s.SetMuted(true)
	s.EndCall()

	if s.Muted() {
		t.Fatal("EndCall must clear the mute gate")
	}
	s.StartCall(nopChannel{}, callctl.Handle{ID: "b"})
	if got := s.NextSeq(); got != 1 {
		t.Fatalf("first seq of new call = %d, want 1", got)
	}
}

func TestSeqCounter(t *testing.T) {
	s := New()
	if s.NextSeq() != 1 || s.NextSeq() != 2 {
		t.Fatal("NextSeq must count from 1")
	}
	if s.Seq() != 2 {
		t.Fatalf("Seq = %d, want 2", s.Seq())
	}
}

func TestSetMutedReturnsPrevious(t *testing.T) {
	s := New()
	if prev := s.SetMuted(true); prev {
		t.Fatal("initial mute state must be false")
	}
	if prev := s.SetMuted(false); !prev {
		t.Fatal("SetMuted must return the previous value")
	}
}

func TestSeqConcurrentUnique(t *testing.T) {
	s := New()
	const goroutines, perG = 8, 1000
	seen := make([]map[uint64]bool, goroutines)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		seen[g] = make(map[uint64]bool, perG)
		wg.Add(1)
		go func(m map[uint64]bool) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				m[s.NextSeq()] = true
			}
		}(seen[g])
	}
	wg.Wait()

	all := make(map[uint64]bool, goroutines*perG)
	for _, m := range seen {
		for k := range m {
			if all[k] {
				t.Fatalf("duplicate sequence number %d", k)
			}
			all[k] = true
		}
	}
	if len(all) != goroutines*perG {
		t.Fatalf("got %d unique sequence numbers, want %d", len(all), goroutines*perG)
	}
}
