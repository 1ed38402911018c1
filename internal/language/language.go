package language

import (
	"fmt"
	"strings"
)

// Language is a spoken language an interview answer can be transcribed in.
type Language struct {
	Code string // ISO 639-1
	Name string // English name
}

// Auto lets the provider detect the language
var Auto = Language{Code: "", Name: "Auto-detect"}

// languages mirrors the languages Whisper transcribes
var languages = []Language{
	{"af", "Afrikaans"},
	{"ar", "Arabic"},
	{"hy", "Armenian"},
	{"az", "Azerbaijani"},
	{"be", "Belarusian"},
	{"bs", "Bosnian"},
	{"bg", "Bulgarian"},
	{"ca", "Catalan"},
	{"zh", "Chinese"},
	{"hr", "Croatian"},
	{"cs", "Czech"},
	{"da", "Danish"},
	{"nl", "Dutch"},
	{"en", "English"},
	{"et", "Estonian"},
	{"fi", "Finnish"},
	{"fr", "French"},
	{"gl", "Galician"},
	{"de", "German"},
	{"el", "Greek"},
	{"he", "Hebrew"},
	{"hi", "Hindi"},
	{"hu", "Hungarian"},
	{"is", "Icelandic"},
	{"id", "Indonesian"},
	{"it", "Italian"},
	{"ja", "Japanese"},
	{"kn", "Kannada"},
	{"kk", "Kazakh"},
	{"ko", "Korean"},
	{"lv", "Latvian"},
	{"lt", "Lithuanian"},
	{"mk", "Macedonian"},
	{"ms", "Malay"},
	{"mr", "Marathi"},
	{"mi", "Maori"},
	{"ne", "Nepali"},
	{"no", "Norwegian"},
	{"fa", "Persian"},
	{"pl", "Polish"},
	{"pt", "Portuguese"},
	{"ro", "Romanian"},
	{"ru", "Russian"},
	{"sr", "Serbian"},
	{"sk", "Slovak"},
	{"sl", "Slovenian"},
	{"es", "Spanish"},
	{"sw", "Swahili"},
	{"sv", "Swedish"},
	{"tl", "Tagalog"},
	{"ta", "Tamil"},
	{"th", "Thai"},
	{"tr", "Turkish"},
	{"uk", "Ukrainian"},
	{"ur", "Urdu"},
	{"vi", "Vietnamese"},
	{"cy", "Welsh"},
}

var codeIndex map[string]Language

func init() {
	codeIndex = make(map[string]Language, len(languages)+1)
	codeIndex[""] = Auto
	for _, lang := range languages {
		codeIndex[lang.Code] = lang
	}
}

// FromCode returns the Language for a code. Regional codes such as "id-ID"
// resolve to their base language; unknown codes resolve to Auto.
func FromCode(code string) Language {
	if lang, ok := codeIndex[Base(code)]; ok {
		return lang
	}
	return Auto
}

// List returns all known languages (excluding Auto)
func List() []Language {
	result := make([]Language, len(languages))
	copy(result, languages)
	return result
}

// Codes returns all language codes (excluding empty string for auto)
func Codes() []string {
	codes := make([]string, len(languages))
	for i, lang := range languages {
		codes[i] = lang.Code
	}
	return codes
}

// IsValidCode reports whether the base of code is known. Empty means auto.
func IsValidCode(code string) bool {
	_, ok := codeIndex[Base(code)]
	return ok
}

// Base strips a region suffix: "id-ID" and "id_ID" become "id".
func Base(code string) string {
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return strings.ToLower(code)
}

// Label renders a code for menus and status output, e.g. "Indonesian (id)".
func Label(code string) string {
	if code == "" {
		return Auto.Name
	}
	lang := FromCode(code)
	if lang == Auto {
		return code
	}
	return fmt.Sprintf("%s (%s)", lang.Name, code)
}
