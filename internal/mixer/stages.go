package mixer

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"morningcast/internal/media/ffmpeg"
)

// Extract cuts plan.Source into a stereo excerpt. The read starts FadeIn
// seconds early so the fade-in completes at plan.Start.
func (e *Engine) Extract(ctx context.Context, plan SegmentPlan, out string) error {
	seek := plan.Start - plan.FadeIn
	if seek < 0 {
		seek = 0
	}
	length := plan.Duration + plan.FadeIn + plan.FadeOut
	filter := fmt.Sprintf("afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s",
		num(plan.FadeIn), num(plan.Duration+plan.FadeIn), num(plan.FadeOut))
	args := []string{
		"-ss", ffmpeg.Seconds(seek),
		"-t", ffmpeg.Seconds(length),
		"-i", plan.Source,
		"-vn",
		"-af", filter,
		"-ac", "2",
		"-ar", strconv.Itoa(e.settings.SampleRate),
		out,
	}
	return e.run(ctx, "extract", args)
}

// Crossfade joins inputs into one bed with overlapping triangular fades. A
// single input is re-encoded unchanged.
func (e *Engine) Crossfade(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return ErrNoTracksToMix
	}
	if len(inputs) == 1 {
		args := []string{"-i", inputs[0], "-vn", "-c:a", "pcm_s16le", out}
		return e.run(ctx, "crossfade", args)
	}

	args := make([]string, 0, 2*len(inputs)+8)
	for _, in := range inputs {
		args = append(args, "-i", in)
	}
	var graph strings.Builder
	prev := "[0:a]"
	for i := 1; i < len(inputs); i++ {
		label := fmt.Sprintf("[x%d]", i)
		if i == len(inputs)-1 {
			label = "[out]"
		}
		fmt.Fprintf(&graph, "%s[%d:a]acrossfade=d=%s:c1=tri:c2=tri%s", prev, i, num(e.settings.Crossfade), label)
		if i < len(inputs)-1 {
			graph.WriteByte(';')
		}
		prev = label
	}
	args = append(args, "-filter_complex", graph.String(), "-map", "[out]", "-ac", "2", out)
	return e.run(ctx, "crossfade", args)
}

// DuckGraph returns the sidechain ducking filter graph: the bed is attenuated,
// compressed by the voice, summed with it, limited and loudness normalized.
func (s Settings) DuckGraph() string {
	return fmt.Sprintf(
		"[0:a]volume=%sdB[bed];"+
			"[1:a]volume=%sdB,asplit=2[sc][vox];"+
			"[bed][sc]sidechaincompress=threshold=-28dB:ratio=12:attack=8:release=350:makeup=6[ducked];"+
			"[ducked][vox]amix=inputs=2:duration=longest:dropout_transition=0,"+
			"alimiter=limit=-1dB:level=disabled,"+
			"loudnorm=I=%s:TP=%s:LRA=%s[out]",
		num(s.BedGainDB), num(s.VoiceGainDB), num(s.LoudnessTarget), num(s.TruePeak), num(s.LoudnessRange))
}

// Duck mixes voice over bed.
func (e *Engine) Duck(ctx context.Context, bed, voice, out string) error {
	args := []string{
		"-i", bed,
		"-i", voice,
		"-filter_complex", e.settings.DuckGraph(),
		"-map", "[out]",
		"-ac", "2",
		"-ar", strconv.Itoa(e.settings.SampleRate),
		out,
	}
	return e.run(ctx, "duck", args)
}

// AppendClosing concatenates mix, a silence gap and the faded-in song.
func (e *Engine) AppendClosing(ctx context.Context, mix, song, out string) error {
	rate := strconv.Itoa(e.settings.SampleRate)
	format := "aformat=sample_rates=" + rate + ":channel_layouts=stereo"

	args := []string{"-i", mix}
	parts := []string{"[0:a]" + format + "[a0]"}
	labels := "[a0]"
	idx := 1
	if e.settings.GapSeconds > 0 {
		args = append(args, "-f", "lavfi", "-t", ffmpeg.Seconds(e.settings.GapSeconds), "-i", "anullsrc=r="+rate+":cl=stereo")
		parts = append(parts, fmt.Sprintf("[%d:a]%s[a%d]", idx, format, idx))
		labels += fmt.Sprintf("[a%d]", idx)
		idx++
	}
	args = append(args, "-i", song)
	songChain := format
	if e.settings.ClosingFadeIn > 0 {
		songChain = "afade=t=in:d=" + num(e.settings.ClosingFadeIn) + "," + format
	}
	parts = append(parts, fmt.Sprintf("[%d:a]%s[a%d]", idx, songChain, idx))
	labels += fmt.Sprintf("[a%d]", idx)
	idx++

	graph := strings.Join(parts, ";") + ";" + labels + fmt.Sprintf("concat=n=%d:v=0:a=1[out]", idx)
	args = append(args, "-filter_complex", graph, "-map", "[out]", "-ac", "2", "-ar", rate, out)
	return e.run(ctx, "append", args)
}

// Metadata is written into the exported file.
type Metadata struct {
	Title      string
	Artist     string
	Comment    string
	CoverImage string
}

// CodecFor picks the audio encoder from the target extension.
func CodecFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "libmp3lame"
	case ".m4a":
		return "alac"
	case ".aac":
		// ADTS streams cannot carry ALAC.
		return "aac"
	case ".flac":
		return "flac"
	case ".wav":
		return "pcm_s16le"
	default:
		return "copy"
	}
}

func supportsArtwork(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3", ".m4a", ".flac":
		return true
	default:
		return false
	}
}

// Export encodes src into out with tags and optional cover art.
func (e *Engine) Export(ctx context.Context, src, out string, meta Metadata) error {
	args := []string{"-i", src}
	withCover := meta.CoverImage != "" && supportsArtwork(out) && fileExists(meta.CoverImage)
	if withCover {
		args = append(args, "-i", meta.CoverImage, "-map", "0:a", "-map", "1:v", "-c:v", "mjpeg",
			"-disposition:v:0", "attached_pic",
			"-metadata:s:v:0", "title=Album cover",
			"-metadata:s:v:0", "comment=Cover (Front)")
	} else {
		args = append(args, "-map", "0:a")
	}
	args = append(args, "-c:a", CodecFor(out))
	if strings.EqualFold(filepath.Ext(out), ".mp3") {
		args = append(args, "-id3v2_version", "3")
	}
	for _, tag := range [][2]string{{"title", meta.Title}, {"artist", meta.Artist}, {"comment", meta.Comment}} {
		if strings.TrimSpace(tag[1]) == "" {
			continue
		}
		args = append(args, "-metadata", tag[0]+"="+tag[1])
	}
	args = append(args, out)
	return e.run(ctx, "export", args)
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
