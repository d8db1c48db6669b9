package completion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/MrWong99/chronos/internal/persona"
	"github.com/MrWong99/chronos/pkg/types"
)

// ErrEmptyConversation is returned when a summary is requested for an empty
// transcript.
var ErrEmptyConversation = errors.New("completion: conversation is empty")

// Summary is the learning summary of one conversation.
type Summary struct {
	Points   []string        `json:"points"`
	Timeline []TimelineEntry `json:"timeline"`
}

// TimelineEntry is one dated event of a [Summary].
type TimelineEntry struct {
	Date  string `json:"date"`
	Event string `json:"event"`
}

const summaryPrompt = `Extract a concise learning summary from a conversation with %s.

Conversation:
%s

Return ONLY valid JSON with this exact structure (no markdown):
{
  "points": ["... up to 10 key points ..."],
  "timeline": [
    { "date": "YEAR or DATE", "event": "Short description" }
  ]
}

Rules:
- Keep points concise, factual, and based on the conversation.
- Timeline should be chronological and 3-10 entries when possible.
- If uncertain, omit rather than invent.
- Write ONLY in %s for all points and timeline text.
`

// Summarise extracts key points and a timeline from msgs. Unlike the
// detection helpers it reports malformed output as an error, since there is
// no meaningful default summary.
func (c *Client) Summarise(ctx context.Context, figure string, msgs []types.Message, language string) (Summary, error) {
	if len(msgs) == 0 {
		return Summary{}, ErrEmptyConversation
	}
	text, err := c.ask(ctx, fmt.Sprintf(summaryPrompt, figure, Transcript(msgs), summaryLanguage(figure, language)), Summarisation)
	if err != nil {
		return Summary{}, err
	}
	d := DecodeJSON(text, Summary{})
	if !d.OK {
		return Summary{}, d.Err
	}
	s := d.Value
	if s.Points == nil {
		s.Points = []string{}
	}
	if s.Timeline == nil {
		s.Timeline = []TimelineEntry{}
	}
	return s, nil
}

func summaryLanguage(figure, code string) string {
	switch code {
	case persona.LanguageAuto:
		return fmt.Sprintf("the language most associated with %s (their native or primary language), otherwise English", figure)
	case "":
		return "English"
	default:
		return persona.LanguageName(code)
	}
}

var summaryPage = template.Must(template.New("summary").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Chronos Guru - {{.Figure}} Summary</title>
<style>
body{font-family:ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Helvetica,Arial;padding:24px;color:#111}
h1{font-size:24px;margin:0 0 8px}
h2{font-size:18px;margin:24px 0 8px}
.muted{color:#555}
ul{margin:0 0 16px 20px}
li{margin:6px 0}
table{border-collapse:collapse;width:100%;margin-top:8px}
th,td{border:1px solid #ddd;padding:8px;text-align:left}
th{background:#f6f6f6}
.footer{margin-top:24px;font-size:12px;color:#777}
</style></head>
<body>
<h1>{{.Figure}}</h1>
<div class="muted">Learning summary generated from your Chronos Guru conversation.</div>
<h2>Important Points</h2>
{{if .Summary.Points}}<ul>{{range .Summary.Points}}<li>{{.}}</li>{{end}}</ul>{{else}}<p class="muted">No key points available.</p>{{end}}
<h2>Timeline</h2>
{{if .Summary.Timeline}}<table><thead><tr><th>Date</th><th>Event</th></tr></thead><tbody>{{range .Summary.Timeline}}<tr><td>{{.Date}}</td><td>{{.Event}}</td></tr>{{end}}</tbody></table>{{else}}<p class="muted">No timeline items available.</p>{{end}}
<div class="footer">Saved from Chronos Guru - {{.At.Format "2006-01-02 15:04"}}</div>
<script>window.onload = () => { window.print(); };</script>
</body></html>
`))

// RenderSummaryHTML renders the printable export page for s. All model text
// is HTML-escaped.
func RenderSummaryHTML(figure string, s Summary, at time.Time) ([]byte, error) {
	var buf bytes.Buffer
	err := summaryPage.Execute(&buf, struct {
		Figure  string
		Summary Summary
		At      time.Time
	}{figure, s, at})
	if err != nil {
		return nil, fmt.Errorf("completion: render summary: %w", err)
	}
	return buf.Bytes(), nil
}
