package guardrails

import (
	"strings"
	"testing"
)

func mustScreen(t *testing.T, cfg Config) *Screen {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestCheckBlockedTerm(t *testing.T) {
	s := mustScreen(t, Config{BlockedTerms: []string{"password", "wire transfer"}})

	if ok, _ := s.Check("Let me read you our opening hours."); !ok {
		t.Fatal("benign text must pass")
	}
	if ok, rule := s.Check("Please tell me your PASSWORD now."); ok || !strings.HasPrefix(rule, "term:") {
		t.Fatalf("term must block regardless of case, rule=%q", rule)
	}
	if ok, _ := s.Check("We will set up a wire transfer today."); ok {
		t.Fatal("phrase term must block")
	}
}

func TestCheckBlockedPattern(t *testing.T) {
	s := mustScreen(t, Config{BlockedPatterns: []string{`\b\d{3}-\d{2}-\d{4}\b`}})
	if ok, rule := s.Check("My number is 123-45-6789."); ok || !strings.HasPrefix(rule, "pattern:") {
		t.Fatalf("SSN pattern must block, rule=%q", rule)
	}
	if ok, _ := s.Check("Call 555-0199 instead."); !ok {
		t.Fatal("non-matching digits must pass")
	}
}

func TestCheckFuzzyTerm(t *testing.T) {
	s := mustScreen(t, Config{BlockedTerms: []string{"password"}})
	if ok, rule := s.Check("Give me your pasword please."); ok || !strings.HasPrefix(rule, "fuzzy:") {
		t.Fatalf("near-miss spelling must block, rule=%q", rule)
	}
	// Fuzzy matching must not block unrelated words.
	if ok, _ := s.Check("The parcel was posted yesterday."); !ok {
		t.Fatal("unrelated words must pass the fuzzy check")
	}
}

func TestApplyRefusal(t *testing.T) {
	s := mustScreen(t, Config{BlockedTerms: []string{"secret"}, Refusal: "Let's talk about something else."})
	spoken, rule := s.Apply("Here is the secret.")
	if spoken != "Let's talk about something else." || rule == "" {
		t.Fatalf("Apply = %q, %q", spoken, rule)
	}
	spoken, rule = s.Apply("Here is the schedule.")
	if spoken != "Here is the schedule." || rule != "" {
		t.Fatalf("clean text must pass unchanged, got %q, %q", spoken, rule)
	}
}

func TestDefaultRefusal(t *testing.T) {
	s := mustScreen(t, Config{BlockedTerms: []string{"secret"}})
	if spoken, _ := s.Apply("the secret"); spoken != DefaultRefusal {
		t.Fatalf("spoken = %q, want default refusal", spoken)
	}
}

func TestNewRejectsBadPattern(t *testing.T) {
	if _, err := New(Config{BlockedPatterns: []string{"("}}); err == nil {
		t.Fatal("invalid regex must fail construction")
	}
}
