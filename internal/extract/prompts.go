package extract

import (
	"fmt"

	"github.com/forPelevin/gistcut/internal/domain/ideas"
)

func stageOnePrompt(transcript string, l ideas.Limits) string {
	return fmt.Sprintf(`You are a video editor reviewing the full transcript of a long video.

Find specific, self-contained moments that could each stand alone as a short video of %.0f-%.0f seconds.
A moment answers ONE specific question or tells ONE specific story, with a hook, a development and a resolution.
A viewer must understand it without watching the rest of the video.

Reject broad topics. "Understanding burnout" or "the history of X" describe the whole video, not a moment.
Test: if you cannot pitch the moment in one sentence that makes someone click, it is too broad.

Do not look for timestamps yet.

TRANSCRIPT:
%s

Return %d to %d ideas, fewer if the video does not support them, as one JSON object:
{
  "ideas": [
    {"title": "specific, clickable title of one moment", "description": "what question it answers or what story it tells, and how it hooks and resolves"}
  ]
}
If there is no such moment return {"ideas": []}.
Output only the JSON object.`,
		l.MinTotal, l.MaxTotal, transcript, l.MinIdeas, l.MaxIdeas)
}

func stageTwoPrompt(transcript string, c ideas.Candidate, l ideas.Limits) string {
	return fmt.Sprintf(`You are a video editor collecting every moment that supports one specific idea.

IDEA:
Title: %s
Description: %s

TRANSCRIPT:
%s

Rules:
- every segment lasts at least %.0f seconds; keep continuous explanation in ONE segment
- start a new segment only at a real break in the narrative (a tangent worth skipping, a return to the idea later)
- merge segments that would be adjacent or a few seconds apart
- use 1 to %d segments, %.0f-%.0f seconds in total; an idea that needs more is too broad
- timestamps are MM:SS as shown in the transcript

Return one JSON object:
{
  "segments": [
    {"start": "MM:SS", "end": "MM:SS", "purpose": "what this segment contributes: hook, development or resolution"}
  ],
  "reasoning": "how the segments connect into one complete idea",
  "transcript_excerpt": "key quotes showing the hook and the resolution"
}
Output only the JSON object.`,
		c.Title, c.Description, transcript, l.MinSegment, l.MaxSegments, l.MinTotal, l.MaxTotal)
}

func windowPrompt(compact string, o ScanOptions) string {
	return fmt.Sprintf(`You are a senior video editor. Each transcript row is {"s": start seconds, "e": end seconds, "t": text}.

TRANSCRIPT:
%s

Extract 2-4 narrative arcs: blocks that tell a complete story, make a strong point or deliver a punchline.
- each arc lasts %.0f-%.0f seconds
- it starts on a strong sentence (a question, a bold claim, the start of a story)
- it ends at a pause or the conclusion of a thought
- if the content is plain, still return the most engaging continuous block; never return an empty list

Timestamps are seconds taken from the rows above.
Return one JSON object:
{
  "ideas": [
    {"title": "punchy hook title", "explanation": "why this block holds attention", "timestamps": [[start, end]], "salience_score": 7}
  ]
}`,
		compact, o.MinArc, o.MaxArc)
}
