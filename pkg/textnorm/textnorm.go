// Package textnorm prepares free-form text for sentence-at-a-time speech
// synthesis: it splits text into sentences without breaking on common
// abbreviations and strips markup the synthesizer would read aloud.
package textnorm

import (
	"regexp"
	"strings"
)

// abbreviations that end with a period but do not end a sentence. Longer
// forms come before their prefixes so "U.S.A." is shielded whole. Matching
// is case-sensitive on purpose; "mr." mid-sentence is rare enough not to
// matter and lowercasing would catch words like "no.".
var abbreviations = []string{
	"Dr.", "Mr.", "Mrs.", "Ms.", "Prof.", "Sr.", "Jr.", "St.",
	"vs.", "etc.", "e.g.", "i.e.", "approx.", "dept.", "est.",
	"U.S.A.", "U.S.", "U.K.", "a.m.", "p.m.", "No.",
}

const placeholder = "\x00"

var (
	// Sentence boundary: terminal punctuation, whitespace, then a capital
	// letter or digit starting the next sentence.
	boundaryRe = regexp.MustCompile(`[.!?]\s+[A-Z0-9]`)

	multiSpaceRe = regexp.MustCompile(`\s+`)
	markdownRe   = regexp.MustCompile("[*_`#]+")
	urlRe        = regexp.MustCompile(`https?://\S+`)
)

// SplitSentences breaks text into sentences at terminal punctuation followed
// by a capitalized word, keeping the punctuation with its sentence. Periods
// inside known abbreviations ("Dr. Smith", "U.S.A. policy") do not split.
// Empty input yields no sentences.
func SplitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	// Shield abbreviation periods so the boundary regex cannot see them.
	shielded := text
	for _, abbr := range abbreviations {
		safe := strings.ReplaceAll(abbr, ".", placeholder)
		shielded = strings.ReplaceAll(shielded, abbr, safe)
	}

	var sentences []string
	start := 0
	for _, loc := range boundaryRe.FindAllStringIndex(shielded, -1) {
		// loc spans "X.<ws>C"; the sentence ends after the punctuation.
		end := loc[0] + 1
		sentences = append(sentences, shielded[start:end])
		// The capital that matched starts the next sentence.
		start = loc[1] - 1
	}
	sentences = append(sentences, shielded[start:])

	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		s = strings.TrimSpace(strings.ReplaceAll(s, placeholder, "."))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// PreprocessForTTS removes content a synthesizer would mangle: markdown
// emphasis markers, URLs, and runs of whitespace.
func PreprocessForTTS(text string) string {
	text = urlRe.ReplaceAllString(text, "")
	text = markdownRe.ReplaceAllString(text, "")
	text = multiSpaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Normalize runs the full TTS preparation: cleanup then sentence split.
func Normalize(text string) []string {
	return SplitSentences(PreprocessForTTS(text))
}
