// Package subtitles renders ASS captions for a stitched clip.
package subtitles

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/gistcut/internal/domain/stitch"
	"github.com/forPelevin/gistcut/internal/types"
)

// ErrNoSpeech is returned when no transcript text overlaps the plan.
var ErrNoSpeech = errors.New("subtitles: no speech inside the cut plan")

const (
	lineChars = 42
	lineWords = 9
)

// RenderPlanASS captions a stitched clip. Every event is placed on the
// output time axis of plan, so the file can be burned into the joined clip
// directly. Word timings give karaoke lines; segments without word timings
// fall back to one plain line per cut.
func RenderPlanASS(tr types.Transcript, plan stitch.Plan) (string, error) {
	if len(plan.Cuts) == 0 {
		return "", stitch.ErrEmptyPlan
	}
	words := collectWords(tr, plan)
	if len(words) > 0 {
		return renderKaraoke(packWords(words)), nil
	}
	events := plainEvents(tr, plan)
	if len(events) == 0 {
		return "", ErrNoSpeech
	}
	return renderPlain(events), nil
}

type word struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

type line struct {
	Start time.Duration
	End   time.Duration
	Words []word
}

// collectWords clips every word to the cut it overlaps and shifts it onto
// the output axis. Cuts never overlap, so a word lands at most once per cut.
func collectWords(tr types.Transcript, plan stitch.Plan) []word {
	var out []word
	for _, c := range plan.Cuts {
		cs, ce, shift := dur(c.Start), dur(c.End), dur(c.OutStart)-dur(c.Start)
		for _, s := range tr.Segments {
			if dur(s.End) <= cs || dur(s.Start) >= ce {
				continue
			}
			for _, w := range s.Words {
				ws, we := dur(w.Start), dur(w.End)
				if we <= cs || ws >= ce {
					continue
				}
				text := sanitizeASS(w.Word)
				if text == "" {
					continue
				}
				ws, we = max(ws, cs), min(we, ce)
				out = append(out, word{Start: ws + shift, End: we + shift, Text: text})
			}
		}
	}
	return out
}

func plainEvents(tr types.Transcript, plan stitch.Plan) []line {
	var out []line
	for _, c := range plan.Cuts {
		var parts []string
		for _, s := range tr.Segments {
			if s.End <= c.Start || s.Start >= c.End {
				continue
			}
			if t := sanitizeASS(s.Text); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, line{
			Start: dur(c.OutStart),
			End:   dur(c.OutEnd),
			Words: []word{{Text: strings.Join(parts, " ")}},
		})
	}
	return out
}

// packWords groups words into lines of at most lineWords words and
// lineChars characters.
func packWords(words []word) []line {
	var out []line
	cur := line{Start: words[0].Start}
	curLen := 0
	for _, w := range words {
		wl := len([]rune(w.Text))
		next := curLen + wl
		if curLen > 0 {
			next++
		}
		if len(cur.Words) > 0 && (len(cur.Words) >= lineWords || next > lineChars) {
			cur.End = cur.Words[len(cur.Words)-1].End
			out = append(out, cur)
			cur = line{Start: w.Start}
			curLen, next = 0, wl
		}
		cur.Words = append(cur.Words, w)
		curLen = next
	}
	cur.End = cur.Words[len(cur.Words)-1].End
	return append(out, cur)
}

func renderKaraoke(lines []line) string {
	var b strings.Builder
	writeHeader(&b)
	for _, ln := range lines {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,", assTime(ln.Start), assTime(ln.End))
		for i, w := range ln.Words {
			cs := int((w.End - w.Start) / (10 * time.Millisecond))
			if cs < 1 {
				cs = 1
			}
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "{\\k%d}%s", cs, w.Text)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func renderPlain(events []line) string {
	var b strings.Builder
	writeHeader(&b)
	for _, ev := range events {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n", assTime(ev.Start), assTime(ev.End), ev.Words[0].Text)
	}
	return b.String()
}

func writeHeader(b *strings.Builder) {
	b.WriteString(`[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Caption, Inter, 64, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,5,2,2, 80,80,70,1

[Events]
Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	h := int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
