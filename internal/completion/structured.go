package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/MrWong99/chronos/internal/observe"
	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/pkg/types"
)

// Language is a figure's primary language as a TTS-style locale code
// ("en-US", "hi-IN") plus display name.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultLanguage is used whenever language detection fails.
var DefaultLanguage = Language{Code: "en-US", Name: "English"}

const genderPrompt = `Determine the gender of the historical figure "%s".
Return only JSON with this exact format:
{"gender":"male"} or {"gender":"female"}

Rules:
- Only return "male" or "female"
- Base on historical records
- If uncertain, return "male" as default
No commentary.`

const languagePrompt = `Return only JSON with the likely primary language for the historical figure "%s".
Exact format:
{"code":"xx-XX","name":"Language Name"}
Rules:
- Use a valid BCP-47 or ISO-like code commonly used in TTS, e.g., en-US, hi-IN, es-ES, fr-FR, de-DE, it-IT, ar-SA, zh-CN, ja-JP, ru-RU, pt-PT.
- If uncertain, use {"code":"en-US","name":"English"}.
No commentary.`

// DetectGender infers figure's gender for voice selection. Any failure
// yields [types.GenderMale].
func (c *Client) DetectGender(ctx context.Context, figure string) types.Gender {
	text, err := c.ask(ctx, fmt.Sprintf(genderPrompt, figure), GenderDetection)
	if err != nil {
		return types.GenderMale
	}
	d := DecodeJSON(text, struct {
		Gender string `json:"gender"`
	}{})
	if !d.OK {
		observe.Logger(ctx).Warn("gender detection returned malformed output", "figure", figure, "err", d.Err)
	}
	return types.ParseGender(d.Value.Gender)
}

// DetectLanguage infers figure's primary language. Any failure yields
// [DefaultLanguage]; missing fields are filled from it.
func (c *Client) DetectLanguage(ctx context.Context, figure string) Language {
	text, err := c.ask(ctx, fmt.Sprintf(languagePrompt, figure), LanguageDetection)
	if err != nil {
		return DefaultLanguage
	}
	d := DecodeJSON(text, DefaultLanguage)
	if !d.OK {
		observe.Logger(ctx).Warn("language detection returned malformed output", "figure", figure, "err", d.Err)
	}
	l := d.Value
	if strings.TrimSpace(l.Code) == "" {
		l.Code = DefaultLanguage.Code
	}
	if strings.TrimSpace(l.Name) == "" {
		l.Name = DefaultLanguage.Name
	}
	return l
}

// ToEnglish translates text written in sourceLanguage (a language code) to
// English. English input is returned unchanged without a request.
func (c *Client) ToEnglish(ctx context.Context, text, sourceLanguage string) (string, error) {
	if persona.IsEnglish(sourceLanguage) {
		return text, nil
	}
	source := "the source language"
	if sourceLanguage != persona.LanguageAuto {
		source = persona.LanguageName(sourceLanguage)
	}
	prompt := fmt.Sprintf("Translate the following %s text to English. Provide ONLY the English translation, no explanations or additional text:\n\n%s", source, text)
	out, err := c.ask(ctx, prompt, Translation)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// WriteDirective returns the "write in ..." instruction for written output
// (summaries, reflections) in the given language code.
func WriteDirective(figure, code string) string {
	switch {
	case code == persona.LanguageAuto:
		return fmt.Sprintf("Write ONLY in the language most associated with %s (their native or historically primary language). If uncertain, use English.", figure)
	case code == "":
		return "Write ONLY in English unless the context implies otherwise."
	default:
		name := persona.LanguageName(code)
		return fmt.Sprintf("Write ONLY in %s. All your writing must be in %s.", name, name)
	}
}
