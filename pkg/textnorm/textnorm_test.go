package textnorm

import (
	"reflect"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "empty",
			in:   "   ",
			want: nil,
		},
		{
			name: "single sentence",
			in:   "Hello there.",
			want: []string{"Hello there."},
		},
		{
			name: "two sentences",
			in:   "Hello there. How are you today?",
			want: []string{"Hello there.", "How are you today?"},
		},
		{
			name: "question and exclamation",
			in:   "Really? Yes! Absolutely.",
			want: []string{"Really?", "Yes!", "Absolutely."},
		},
		{
			name: "abbreviation does not split",
			in:   "Please see Dr. Smith tomorrow. Bring your records.",
			want: []string{"Please see Dr. Smith tomorrow.", "Bring your records."},
		},
		{
			name: "multi-period abbreviation",
			in:   "She moved to the U.S.A. last year. It was sudden.",
			want: []string{"She moved to the U.S.A. last year.", "It was sudden."},
		},
		{
			name: "abbreviation at clause start",
			in:   "Mr. Jones called at 3 p.m. on Friday. He left a message.",
			want: []string{"Mr. Jones called at 3 p.m. on Friday.", "He left a message."},
		},
		{
			name: "no trailing punctuation",
			in:   "First sentence. second continues without a capital so no split",
			want: []string{"First sentence. second continues without a capital so no split"},
		},
		{
			name: "digit starts next sentence",
			in:   "The total is due. 30 days remain.",
			want: []string{"The total is due.", "30 days remain."},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SplitSentences(tc.in)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("SplitSentences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPreprocessForTTS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"**bold** and _quiet_", "bold and quiet"},
		{"check https://example.com/a?b=1 for details", "check for details"},
		{"too    many\n\nspaces", "too many spaces"},
		{"`code` stays plain", "code stays plain"},
	}
	for _, tc := range tests {
		if got := PreprocessForTTS(tc.in); got != tc.want {
			t.Errorf("PreprocessForTTS(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize("**Hi!** Visit https://x.test now. Thanks.")
	want := []string{"Hi!", "Visit now.", "Thanks."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize = %q, want %q", got, want)
	}
}
