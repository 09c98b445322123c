package parser

import "github.com/abadojack/whatlanggo"

// LanguageDetector reports the language of a text. The second return is
// false when detection is unavailable or unreliable; the metadata field
// is then omitted silently.
type LanguageDetector func(text string) (lang string, ok bool)

// DetectLanguage is the built-in detector used for txt parsers created by
// the registry. It returns an ISO 639-3 code.
func DetectLanguage(text string) (string, bool) {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", false
	}
	code := whatlanggo.LangToString(info.Lang)
	if code == "" {
		return "", false
	}
	return code, true
}
