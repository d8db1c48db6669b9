package persona

import (
	"fmt"
	"strings"
)

// LanguageAuto asks the model to answer in the figure's own primary language.
const LanguageAuto = "auto"

type language struct {
	name   string
	locale string
}

var languages = map[string]language{
	"en": {"English", "en-US"},
	"es": {"Spanish", "es-ES"},
	"fr": {"French", "fr-FR"},
	"de": {"German", "de-DE"},
	"it": {"Italian", "it-IT"},
	"pt": {"Portuguese", "pt-PT"},
	"ru": {"Russian", "ru-RU"},
	"zh": {"Chinese", "zh-CN"},
	"ja": {"Japanese", "ja-JP"},
	"ko": {"Korean", "ko-KR"},
	"ar": {"Arabic", "ar-SA"},
	"hi": {"Hindi", "hi-IN"},
	"nl": {"Dutch", "nl-NL"},
	"pl": {"Polish", "pl-PL"},
	"tr": {"Turkish", "tr-TR"},
	"sv": {"Swedish", "sv-SE"},
	"da": {"Danish", "da-DK"},
	"fi": {"Finnish", "fi-FI"},
	"no": {"Norwegian", "no-NO"},
}

// lookupLanguage resolves a code through the language table. Tests replace
// it to observe which codes consult the table.
var lookupLanguage = func(code string) (language, bool) {
	l, ok := languages[code]
	return l, ok
}

// LanguageName returns the display name for code. Unknown codes map to
// "English".
func LanguageName(code string) string {
	if l, ok := lookupLanguage(code); ok {
		return l.name
	}
	return "English"
}

// Locale returns the BCP-47 locale used for translation targets and native
// voices. Unknown codes map to "en-US".
func Locale(code string) string {
	if l, ok := lookupLanguage(code); ok {
		return l.locale
	}
	return "en-US"
}

// Codes returns the supported language codes in a stable order.
func Codes() []string {
	return []string{"en", "hi", "es", "fr", "de", "it", "ar", "zh", "ja", "pt", "ru", "ko", "nl", "pl", "tr", "sv", "da", "fi", "no"}
}

// IsEnglish reports whether code selects English output. The empty code
// means English.
func IsEnglish(code string) bool {
	return code == "" || code == "en"
}

// LanguageDirective returns the language instruction for figure. "auto"
// leaves the choice to the model and never consults the language table.
func LanguageDirective(figure, code string) string {
	switch {
	case code == LanguageAuto:
		return fmt.Sprintf("Respond ONLY in the language most associated with %s (their native or historically primary language). If uncertain, use English.", figure)
	case code == "":
		return "Respond ONLY in English. All your responses must be in English."
	default:
		name := LanguageName(strings.ToLower(code))
		return fmt.Sprintf("Respond ONLY in %s. All your responses must be in %s.", name, name)
	}
}
