// Package media wraps the ffmpeg/ffprobe binaries for duration and
// resolution probing, subtitle container conversion, and the burn-in
// encode.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpeg wraps ffmpeg/ffprobe invocations
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
}

// NewFFmpeg creates a new FFmpeg instance
func NewFFmpeg(ffmpegPath, ffprobePath string) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
	}
}

// probeMetadata holds the ffprobe output fields we consume
type probeMetadata struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

func (f *FFmpeg) probe(ctx context.Context, inputPath string) (*probeMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		inputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, stderr.String())
	}

	var metadata probeMetadata
	if err := json.Unmarshal(stdout.Bytes(), &metadata); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	return &metadata, nil
}

// ProbeDurationMinutes returns the media duration in minutes. A
// missing or non-positive duration is an error, not a zero value.
func (f *FFmpeg) ProbeDurationMinutes(ctx context.Context, inputPath string) (float64, error) {
	metadata, err := f.probe(ctx, inputPath)
	if err != nil {
		return 0, err
	}

	seconds, err := strconv.ParseFloat(metadata.Format.Duration, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration %q: %w", metadata.Format.Duration, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("media reports non-positive duration %f", seconds)
	}

	return seconds / 60.0, nil
}

// ProbeResolution returns the width and height of the first video stream
func (f *FFmpeg) ProbeResolution(ctx context.Context, inputPath string) (int, int, error) {
	metadata, err := f.probe(ctx, inputPath)
	if err != nil {
		return 0, 0, err
	}

	for _, stream := range metadata.Streams {
		if stream.CodecType == "video" && stream.Width > 0 && stream.Height > 0 {
			return stream.Width, stream.Height, nil
		}
	}

	return 0, 0, fmt.Errorf("no video stream found in %s", inputPath)
}

// ConvertSubtitle converts a caption file between subtitle container
// formats, e.g. SRT to ASS. The output format is inferred from the
// destination extension.
func (f *FFmpeg) ConvertSubtitle(ctx context.Context, inputPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-y", outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("subtitle conversion failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// BurnSubtitles renders the styled subtitle file into the video
// pixels. The audio stream is copied unmodified; only video is
// re-encoded.
func (f *FFmpeg) BurnSubtitles(ctx context.Context, inputPath, assPath, outputPath string) error {
	args := []string{
		"-i", inputPath,
		"-vf", fmt.Sprintf("ass=%s", escapeFilterPath(assPath)),
		"-c:v", "libx264",
		"-preset", "medium",
		"-crf", "23",
		"-c:a", "copy",
		"-map", "0",
		"-y", outputPath,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("burn-in encode failed: %w, stderr: %s", err, stderr.String())
	}

	return nil
}

// escapeFilterPath escapes characters that are significant inside an
// ffmpeg filter graph argument.
func escapeFilterPath(path string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
		`[`, `\[`,
		`]`, `\]`,
		`,`, `\,`,
	)
	return r.Replace(path)
}

// DefaultFontSize returns the resolution-derived base font size used
// when no explicit subtitle style is supplied. Standard resolutions
// keep the tuned 24-unit base; very large frames scale up.
func DefaultFontSize(height int) float64 {
	switch {
	case height >= 2160:
		return 48
	case height >= 1440:
		return 32
	default:
		return 24
	}
}
