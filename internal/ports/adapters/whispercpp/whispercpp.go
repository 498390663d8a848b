package whispercpp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/gistcut/internal/types"
)

type Adapter struct {
	bin   string
	model string
}

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath}
}

// Transcribe runs whisper.cpp on a 16 kHz mono wav. The parsed transcript is
// cached in cacheDir and reused on the next run for the same input.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	cached := filepath.Join(cacheDir, "transcript.json")
	if b, err := os.ReadFile(cached); err == nil {
		var tr types.Transcript
		if err := json.Unmarshal(b, &tr); err == nil && len(tr.Segments) > 0 {
			return tr, nil
		}
	}

	outPrefix := filepath.Join(cacheDir, "whisper")
	cmd := exec.CommandContext(ctx, a.bin,
		"-m", a.model,
		"-f", wavPath,
		"-ojf",
		"-of", outPrefix,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read whisper output: %w", err)
	}
	tr, err := parseOutput(jb)
	if err != nil {
		return types.Transcript{}, err
	}

	if out, err := json.Marshal(tr); err == nil {
		_ = os.WriteFile(cached, out, 0o644)
	}
	return tr, nil
}

type output struct {
	Transcription []struct {
		Offsets offsets `json:"offsets"`
		Text    string  `json:"text"`
		Tokens  []struct {
			Text    string  `json:"text"`
			Offsets offsets `json:"offsets"`
		} `json:"tokens"`
	} `json:"transcription"`
}

// offsets are milliseconds from the start of the audio.
type offsets struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

func parseOutput(b []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper output: %w", err)
	}

	var tr types.Transcript
	for _, seg := range out.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		s := types.Segment{
			Start: ms(seg.Offsets.From),
			End:   ms(seg.Offsets.To),
			Text:  text,
		}
		for _, tok := range seg.Tokens {
			if strings.HasPrefix(tok.Text, "[_") || strings.TrimSpace(tok.Text) == "" {
				continue
			}
			// A leading space starts a new word; other tokens continue it.
			if len(s.Words) == 0 || strings.HasPrefix(tok.Text, " ") {
				s.Words = append(s.Words, types.Word{
					Start: ms(tok.Offsets.From),
					End:   ms(tok.Offsets.To),
					Word:  strings.TrimSpace(tok.Text),
				})
				continue
			}
			last := &s.Words[len(s.Words)-1]
			last.Word += strings.TrimSpace(tok.Text)
			last.End = ms(tok.Offsets.To)
		}
		if s.End <= s.Start {
			continue
		}
		tr.Segments = append(tr.Segments, s)
	}
	if len(tr.Segments) == 0 {
		return types.Transcript{}, errors.New("whisper output has no speech segments")
	}
	tr.Duration = tr.Segments[len(tr.Segments)-1].End
	return tr, nil
}

func ms(v int64) float64 { return float64(v) / 1000 }
