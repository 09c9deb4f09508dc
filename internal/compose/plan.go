package compose

import "fmt"

// ---------------------------------------------------------------------------
// Composition planning
// The final render is one ffmpeg invocation whose shape depends only on
// which audio tracks exist: narration, music, both, or neither. That
// four-way choice is resolved once into an AudioMode and the rest of the
// command derives from it, so the whole plan stays a pure value that tests
// can inspect without touching ffmpeg.
// ---------------------------------------------------------------------------

// Output canvas: vertical 1080x1920 at 30fps, H.264/AAC.
const (
	outputWidth  = 1080
	outputHeight = 1920
	videoFPS     = 30
)

// videoFilter scales the concatenated segments to fit inside the canvas
// preserving aspect ratio, then pads to exactly 1080x1920 with centered
// black bars.
const videoFilter = "scale=1080:1920:force_original_aspect_ratio=decrease," +
	"pad=1080:1920:(ow-iw)/2:(oh-ih)/2:black"

// Audio filter graphs. Input 0 is always the video manifest; narration,
// when present, is input 1; music takes the next free slot.
const (
	// Music alone is attenuated so it reads as backing, not foreground.
	musicOnlyFilter = "[1:a]volume=0.3[aout]"

	// Narration at full gain over quiet music, mixed to one track that ends
	// with the narration (duration=first).
	mixedAudioFilter = "[1:a]aformat=fltp,volume=1.0[a1];" +
		"[2:a]aformat=fltp,volume=0.15[a2];" +
		"[a1][a2]amix=inputs=2:duration=first[aout]"
)

// AudioMode names the four audio-track layouts a reel can have.
type AudioMode string

const (
	AudioSilent    AudioMode = "silent"
	AudioNarration AudioMode = "narration"
	AudioMusic     AudioMode = "music"
	AudioMixed     AudioMode = "mixed"
)

// ResolveAudioMode maps track presence to the audio layout.
func ResolveAudioMode(hasNarration, hasMusic bool) AudioMode {
	switch {
	case hasNarration && hasMusic:
		return AudioMixed
	case hasNarration:
		return AudioNarration
	case hasMusic:
		return AudioMusic
	}
	return AudioSilent
}

// Plan is the derived composition command for one reel: filter graph,
// stream mappings, and fixed encoding parameters. It is a pure function of
// (hasNarration, hasMusic) and carries no paths of its own.
type Plan struct {
	Mode       AudioMode
	FilterArgs []string // -vf or -filter_complex plus the graph expression
	MapArgs    []string // output stream selection
	EncodeArgs []string // fixed codec/rate/pixel-format flags
}

// NewPlan derives the composition plan. No I/O happens here.
func NewPlan(hasNarration, hasMusic bool) Plan {
	p := Plan{
		Mode: ResolveAudioMode(hasNarration, hasMusic),
		EncodeArgs: []string{
			"-c:v", "libx264",
			"-c:a", "aac",
			"-r", fmt.Sprintf("%d", videoFPS),
			"-pix_fmt", "yuv420p",
			"-shortest",
		},
	}

	switch p.Mode {
	case AudioMixed:
		p.FilterArgs = []string{"-filter_complex", videoFilter + "," + mixedAudioFilter}
		p.MapArgs = []string{"-map", "0:v", "-map", "[aout]"}

	case AudioNarration:
		p.FilterArgs = []string{"-vf", videoFilter}
		p.MapArgs = []string{"-map", "0:v", "-map", "1:a"}

	case AudioMusic:
		p.FilterArgs = []string{"-filter_complex", "[0:v]" + videoFilter + "[vout];" + musicOnlyFilter}
		p.MapArgs = []string{"-map", "[vout]", "-map", "[aout]"}

	case AudioSilent:
		p.FilterArgs = []string{"-vf", videoFilter}
		p.MapArgs = []string{"-map", "0:v"}
	}

	return p
}

// CommandArgs assembles the full ffmpeg argv for this plan. The manifest is
// concat-demuxed as input 0; narration and music are appended only when the
// plan calls for them. The unused path arguments are ignored, so callers can
// pass whatever they have. Output is overwritten in place (-y), which keeps
// re-runs of the same job idempotent.
func (p Plan) CommandArgs(manifestPath, narrationPath, musicPath, outputPath string) []string {
	args := []string{"-f", "concat", "-safe", "0", "-i", manifestPath}

	switch p.Mode {
	case AudioMixed:
		args = append(args, "-i", narrationPath, "-i", musicPath)
	case AudioNarration:
		args = append(args, "-i", narrationPath)
	case AudioMusic:
		args = append(args, "-i", musicPath)
	}

	args = append(args, p.FilterArgs...)
	args = append(args, p.MapArgs...)
	args = append(args, p.EncodeArgs...)
	args = append(args, "-y", outputPath)

	return args
}
