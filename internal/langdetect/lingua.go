// Package langdetect resolves "auto" source languages before cache
// keys are built, so detection happens once per request rather than
// per provider.
package langdetect

import (
	"strings"
	"sync"
	"unicode"

	lingua "github.com/pemistahl/lingua-go"
)

// minSampleLetters guards against detection on fragments too short to
// classify reliably; callers fall back to their configured default.
const minSampleLetters = 6

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// candidateLanguages is the set the translation providers route
// between. Keeping the detector to this set avoids loading models for
// languages no provider accepts.
var candidateLanguages = []lingua.Language{
	lingua.Arabic,
	lingua.Chinese,
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Japanese,
	lingua.Korean,
	lingua.Portuguese,
	lingua.Russian,
	lingua.Spanish,
	lingua.Thai,
	lingua.Vietnamese,
}

// DetectISO6391 returns the two-letter code of the detected language,
// or an empty string when the sample is too short or ambiguous.
func DetectISO6391(text string) string {
	sample := strings.TrimSpace(text)
	if sample == "" {
		return ""
	}

	letterCount := 0
	for _, r := range sample {
		if unicode.IsLetter(r) {
			letterCount++
		}
	}
	if letterCount < minSampleLetters {
		return ""
	}

	language, exists := getDetector().DetectLanguageOf(sample)
	if !exists {
		return ""
	}

	code := strings.ToLower(language.IsoCode639_1().String())
	if len(code) != 2 {
		return ""
	}
	return code
}

func getDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidateLanguages...).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}
