// Package media wraps the external tools used to turn a video URL into
// audio and frame artifacts: yt-dlp for download, ffmpeg/ffprobe for
// extraction and probing, and Whisper for transcription.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoAudioStream is returned when the downloaded video carries no audio
// stream and cannot be transcribed.
var ErrNoAudioStream = errors.New("video has no audio stream")

// downloadFormat prefers mp4 video with m4a audio, falling back to the
// best single file yt-dlp can get.
const downloadFormat = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

// Extractor downloads videos and extracts audio and frames via external
// tools. The binaries default to yt-dlp, ffmpeg and ffprobe on PATH.
type Extractor struct {
	YtDlpBin   string
	FFmpegBin  string
	FFprobeBin string
}

// NewExtractor returns an Extractor using the default tool names.
func NewExtractor() *Extractor {
	return &Extractor{
		YtDlpBin:   "yt-dlp",
		FFmpegBin:  "ffmpeg",
		FFprobeBin: "ffprobe",
	}
}

// Download fetches the video at url into dir and returns the path of the
// downloaded file. The container format depends on what yt-dlp selects,
// so the output template uses a fixed stem with a variable extension.
func (e *Extractor) Download(ctx context.Context, url, dir string) (string, error) {
	template := filepath.Join(dir, "source.%(ext)s")

	if err := runTool(ctx, e.YtDlpBin, "-f", downloadFormat, "-o", template, url); err != nil {
		return "", fmt.Errorf("download video: %w", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "source.*"))
	if err != nil {
		return "", fmt.Errorf("locate downloaded video: %w", err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("download produced no file in %s", dir)
	}

	path := matches[0]
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat downloaded video: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("downloaded video %s is empty", path)
	}

	return path, nil
}

// HasAudioStream probes videoPath for at least one audio stream.
func (e *Extractor) HasAudioStream(ctx context.Context, videoPath string) (bool, error) {
	out, err := exec.CommandContext(ctx, e.FFprobeBin,
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		videoPath,
	).Output()
	if err != nil {
		return false, fmt.Errorf("probe audio streams: %w", err)
	}
	return strings.Contains(string(out), "audio"), nil
}

// ExtractAudio writes the audio track of videoPath as 16kHz mono WAV,
// the input format Whisper expects.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	err := runTool(ctx, e.FFmpegBin,
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		audioPath,
	)
	if err != nil {
		return fmt.Errorf("extract audio: %w", err)
	}
	return nil
}

// ExtractFrames samples one JPEG frame every interval seconds into
// framesDir and returns the frame file names in timestamp order.
func (e *Extractor) ExtractFrames(ctx context.Context, videoPath, framesDir string, intervalSeconds float64) ([]string, error) {
	if intervalSeconds <= 0 {
		return nil, fmt.Errorf("frame interval must be positive, got %v", intervalSeconds)
	}
	if err := os.MkdirAll(framesDir, 0755); err != nil {
		return nil, fmt.Errorf("create frames dir: %w", err)
	}

	fps := 1.0 / intervalSeconds
	err := runTool(ctx, e.FFmpegBin,
		"-y",
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%g", fps),
		"-start_number", "1",
		filepath.Join(framesDir, "%05d.jpg"),
	)
	if err != nil {
		return nil, fmt.Errorf("extract frames: %w", err)
	}

	return EnumerateFrames(framesDir)
}

// EnumerateFrames lists the JPEG frames in dir sorted by file name.
// The zero-padded %05d naming makes lexical order equal timestamp order.
func EnumerateFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".jpg") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// runTool executes an external command, folding the tail of its combined
// output into the error so tool failures stay diagnosable.
func runTool(ctx context.Context, bin string, args ...string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", bin, err, tail(string(out), 512))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
