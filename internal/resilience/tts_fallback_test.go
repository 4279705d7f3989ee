package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avelow/voxbridge/pkg/provider/tts"
	"github.com/avelow/voxbridge/pkg/provider/tts/mock"
)

func TestSynthesizeFailsOverToSecondary(t *testing.T) {
	primary := &mock.Service{EngineName: "neural", SynthesizeErr: errors.New("model crashed")}
	secondary := &mock.Service{EngineName: "formant", Path: "/tmp/fallback.wav"}

	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(secondary)

	path, err := f.Synthesize(context.Background(), "Hello.", tts.Params{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if path != "/tmp/fallback.wav" {
		t.Fatalf("path = %q, want the secondary's output", path)
	}
	if len(primary.Calls()) != 1 || len(secondary.Calls()) != 1 {
		t.Fatalf("call counts: primary=%d secondary=%d",
			len(primary.Calls()), len(secondary.Calls()))
	}
}

func TestSynthesizeForwardsParams(t *testing.T) {
	primary := &mock.Service{EngineName: "neural", SynthesizeErr: errors.New("model crashed")}
	secondary := &mock.Service{EngineName: "formant", Path: "/tmp/f.wav"}
	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(secondary)

	want := tts.Params{Voice: "en-gb", Rate: 140}
	if _, err := f.Synthesize(context.Background(), "Hello.", want); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	for _, svc := range []*mock.Service{primary, secondary} {
		got := svc.Params()
		if len(got) != 1 || got[0] != want {
			t.Fatalf("%s saw params %+v, want %+v", svc.Name(), got, want)
		}
	}
}

func TestSynthesizeSkipsUnavailablePrimary(t *testing.T) {
	primary := &mock.Service{EngineName: "neural", Unavailable: true}
	secondary := &mock.Service{EngineName: "formant", Path: "/tmp/f.wav"}

	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(secondary)

	if _, err := f.Synthesize(context.Background(), "Hi.", tts.Params{}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(primary.Calls()) != 0 {
		t.Fatal("unavailable primary must not receive synthesis calls")
	}
}

func TestSynthesizeAllFailed(t *testing.T) {
	primary := &mock.Service{SynthesizeErr: errors.New("a")}
	secondary := &mock.Service{SynthesizeErr: errors.New("b")}
	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(secondary)

	_, err := f.Synthesize(context.Background(), "Hi.", tts.Params{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("got %v, want ErrAllFailed", err)
	}
}

func TestSynthesizeEmptyTextDoesNotFailOver(t *testing.T) {
	primary := &mock.Service{SynthesizeErr: tts.ErrEmptyText}
	f := NewTTSFallback(primary, FallbackConfig{})

	_, err := f.Synthesize(context.Background(), "", tts.Params{})
	if !errors.Is(err, tts.ErrEmptyText) {
		t.Fatalf("got %v, want bare ErrEmptyText", err)
	}
	if errors.Is(err, ErrAllFailed) {
		t.Fatal("empty text must not surface as a backend failure")
	}
}

func TestAvailableAnyEngine(t *testing.T) {
	primary := &mock.Service{Unavailable: true}
	secondary := &mock.Service{}
	f := NewTTSFallback(primary, FallbackConfig{})
	if f.Available() {
		t.Fatal("chain with only an unavailable engine must report unavailable")
	}
	f.AddFallback(secondary)
	if !f.Available() {
		t.Fatal("chain must be available when any engine is")
	}
}

func TestVoicesMergesCatalogues(t *testing.T) {
	primary := &mock.Service{VoiceList: []tts.VoiceInfo{{ID: "a", Engine: "neural"}}}
	secondary := &mock.Service{VoicesErr: tts.ErrNotSupported}
	f := NewTTSFallback(primary, FallbackConfig{})
	f.AddFallback(secondary)

	voices, err := f.Voices(context.Background())
	if err != nil {
		t.Fatalf("Voices: %v", err)
	}
	if len(voices) != 1 || voices[0].ID != "a" {
		t.Fatalf("voices = %+v", voices)
	}
}

func TestVoicesNotSupportedAnywhere(t *testing.T) {
	f := NewTTSFallback(&mock.Service{VoicesErr: tts.ErrNotSupported}, FallbackConfig{})
	if _, err := f.Voices(context.Background()); !errors.Is(err, tts.ErrNotSupported) {
		t.Fatalf("got %v, want ErrNotSupported", err)
	}
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:         "test",
		MaxFailures:  2,
		ResetTimeout: 10 * time.Millisecond,
	})
	boom := errors.New("boom")
	fail := func() error { return boom }
	ok := func() error { return nil }

	if err := cb.Execute(fail); !errors.Is(err, boom) {
		t.Fatalf("first failure: %v", err)
	}
	if err := cb.Execute(fail); !errors.Is(err, boom) {
		t.Fatalf("second failure: %v", err)
	}
	if st := cb.State(); st != StateOpen {
		t.Fatalf("state = %v, want open", st)
	}
	if err := cb.Execute(ok); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker must reject: %v", err)
	}

	time.Sleep(15 * time.Millisecond)
	if st := cb.State(); st != StateHalfOpen {
		t.Fatalf("state = %v, want half-open after timeout", st)
	}
	if err := cb.Execute(ok); err != nil {
		t.Fatalf("probe call: %v", err)
	}
	if st := cb.State(); st != StateClosed {
		t.Fatalf("state = %v, want closed after successful probe", st)
	}
}

func TestCircuitBreakerReopensOnProbeFailure(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		MaxFailures:  1,
		ResetTimeout: 5 * time.Millisecond,
	})
	boom := errors.New("boom")
	cb.Execute(func() error { return boom })
	time.Sleep(10 * time.Millisecond)
	cb.Execute(func() error { return boom })
	if st := cb.State(); st != StateOpen {
		t.Fatalf("state = %v, want open after failed probe", st)
	}
}
