package speech

import "strings"

// SelectNativeVoice picks the best voice for locale: an exact locale match,
// then a Google voice of the same language, then any voice of the same
// language, then the first voice. It returns false only when voices is
// empty.
func SelectNativeVoice(voices []NativeVoice, locale string) (NativeVoice, bool) {
	if len(voices) == 0 {
		return NativeVoice{}, false
	}
	target := strings.ToLower(locale)
	lang, _, _ := strings.Cut(target, "-")

	for _, v := range voices {
		if strings.ToLower(v.Lang) == target {
			return v, true
		}
	}
	var sameLang *NativeVoice
	for i, v := range voices {
		if !strings.HasPrefix(strings.ToLower(v.Lang), lang) {
			continue
		}
		if strings.Contains(strings.ToLower(v.Name), "google") {
			return v, true
		}
		if sameLang == nil {
			sameLang = &voices[i]
		}
	}
	if sameLang != nil {
		return *sameLang, true
	}
	return voices[0], true
}
