package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/forPelevin/gistcut/internal/domain/stitch"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, in, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", in,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, tail(b))
	}
	return nil
}

// RenderPlan cuts every interval of plan out of in, joins them in order and
// fades the joined clip in and out. burnASS, when set, is burned in on the
// output time axis.
func (a *Adapter) RenderPlan(ctx context.Context, in string, plan stitch.Plan, out string, burnASS string) error {
	args, err := renderArgs(in, plan, out, burnASS)
	if err != nil {
		return err
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render plan: %w\n%s", err, tail(b))
	}
	return nil
}

func renderArgs(in string, plan stitch.Plan, out string, burnASS string) ([]string, error) {
	if len(plan.Cuts) == 0 {
		return nil, stitch.ErrEmptyPlan
	}
	return []string{
		"-y",
		"-i", in,
		"-filter_complex", filterGraph(plan, burnASS),
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-c:a", "aac",
		"-b:a", "192k",
		"-movflags", "+faststart",
		out,
	}, nil
}

func filterGraph(plan stitch.Plan, burnASS string) string {
	var b strings.Builder
	for i, c := range plan.Cuts {
		fmt.Fprintf(&b, "[0:v]trim=start=%s:end=%s,setpts=PTS-STARTPTS[v%d];", fmtSeconds(c.Start), fmtSeconds(c.End), i)
		fmt.Fprintf(&b, "[0:a]atrim=start=%s:end=%s,asetpts=PTS-STARTPTS[a%d];", fmtSeconds(c.Start), fmtSeconds(c.End), i)
	}
	for i := range plan.Cuts {
		fmt.Fprintf(&b, "[v%d][a%d]", i, i)
	}
	fmt.Fprintf(&b, "concat=n=%d:v=1:a=1[vc][ac];", len(plan.Cuts))

	video := []string{}
	audio := []string{}
	if plan.FadeIn > 0 {
		video = append(video, "fade=t=in:st=0:d="+fmtSeconds(plan.FadeIn))
		audio = append(audio, "afade=t=in:st=0:d="+fmtSeconds(plan.FadeIn))
	}
	if plan.FadeOut > 0 {
		st := fmtSeconds(plan.Total - plan.FadeOut)
		video = append(video, "fade=t=out:st="+st+":d="+fmtSeconds(plan.FadeOut))
		audio = append(audio, "afade=t=out:st="+st+":d="+fmtSeconds(plan.FadeOut))
	}
	if burnASS != "" {
		video = append(video, "subtitles="+escapeFilterPath(burnASS))
	}
	if len(video) == 0 {
		video = append(video, "null")
	}
	if len(audio) == 0 {
		audio = append(audio, "anull")
	}
	b.WriteString("[vc]" + strings.Join(video, ",") + "[vout];")
	b.WriteString("[ac]" + strings.Join(audio, ",") + "[aout]")
	return b.String()
}

func (a *Adapter) ProbeDuration(ctx context.Context, in string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		in,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, tail(b))
	}
	return parseDuration(string(b))
}

func parseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	if sec < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return sec, nil
}

func fmtSeconds(sec float64) string {
	return strconv.FormatFloat(sec, 'f', 3, 64)
}

// escapeFilterPath escapes a path for use inside a filtergraph option.
func escapeFilterPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	p = strings.ReplaceAll(p, "'", "\\'")
	p = strings.ReplaceAll(p, ",", "\\,")
	p = strings.ReplaceAll(p, ";", "\\;")
	p = strings.ReplaceAll(p, "[", "\\[")
	p = strings.ReplaceAll(p, "]", "\\]")
	return p
}

// tail keeps the end of ffmpeg's output, where the error is.
func tail(b []byte) string {
	const n = 2000
	if len(b) <= n {
		return string(b)
	}
	return "..." + string(b[len(b)-n:])
}
