package media

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/videochop/videochop/pkg/log"
)

type ffmpeg struct {
	ffmpegCmd  string
	ffprobeCmd string
	filePath   string
}

func NewFfmpeg(mediaPath string) ffmpeg {
	return newFfmpeg(mediaPath, "ffmpeg", "ffprobe")
}

func newFfmpeg(mediaPath, ffmpegCmd, ffprobeCmd string) ffmpeg {
	return ffmpeg{
		ffmpegCmd:  ffmpegCmd,
		ffprobeCmd: ffprobeCmd,
		filePath:   filepath.Clean(mediaPath),
	}
}

// Probe reports the media duration and video frame rate via ffprobe.
func (ff ffmpeg) Probe() (Info, error) {
	cmdPath, err := exec.LookPath(ff.ffprobeCmd)
	if err != nil {
		return Info{}, err
	}
	cmd := exec.Command(cmdPath, ff.probeArgs()...)

	output, err := cmd.Output()
	if err != nil {
		log.Error("Failed to run ffprobe: %v", err)
		return Info{}, err
	}

	var probeResult struct {
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
		Streams []struct {
			CodecType    string `json:"codec_type"`
			AvgFrameRate string `json:"avg_frame_rate"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(output, &probeResult); err != nil {
		log.Error("Failed to parse ffprobe output: %v", err)
		return Info{}, err
	}

	info := Info{}
	if probeResult.Format.Duration != "" {
		duration, err := strconv.ParseFloat(probeResult.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("parse media duration %q: %w", probeResult.Format.Duration, err)
		}
		info.DurationSec = duration
	}
	for _, stream := range probeResult.Streams {
		if stream.CodecType == "video" {
			info.FrameRate = parseFrameRate(stream.AvgFrameRate)
			break
		}
	}
	return info, nil
}

// ExtractClip cuts [startSec, endSec) out of the media, re-encoding video to
// H.264 and audio to AAC, and writes the result to targetPath.
func (ff ffmpeg) ExtractClip(startSec, endSec float64, targetPath string) error {
	cmdPath, err := exec.LookPath(ff.ffmpegCmd)
	if err != nil {
		return err
	}
	cmd := exec.Command(cmdPath, ff.extractClipArgs(startSec, endSec, targetPath)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg clip extraction failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (ff ffmpeg) probeArgs() []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		ff.filePath,
	}
}

func (ff ffmpeg) extractClipArgs(startSec, endSec float64, targetPath string) []string {
	return []string{
		"-y",
		"-i", ff.filePath,
		"-ss", formatSeconds(startSec),
		"-to", formatSeconds(endSec),
		"-c:v", "libx264",
		"-preset", "slow",
		"-crf", "17",
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		targetPath,
	}
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// parseFrameRate converts ffprobe's "num/den" frame rate to a float.
func parseFrameRate(raw string) float64 {
	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0
	}
	num, err1 := strconv.ParseFloat(parts[0], 64)
	den, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil || den == 0 {
		return 0
	}
	return num / den
}
