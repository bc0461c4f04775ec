package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Client drives the yt-dlp binary. yt-dlp retries fragment fetches
// internally; the service itself never retries a download.
type Client struct {
	binaryPath string
}

func NewClient(binaryPath string) *Client {
	if strings.TrimSpace(binaryPath) == "" {
		binaryPath = "yt-dlp"
	}
	return &Client{binaryPath: binaryPath}
}

// Metadata is the subset of yt-dlp's JSON dump the service cares about.
type Metadata struct {
	Title       string  `json:"title"`
	DurationSec float64 `json:"duration"`
}

// Probe extracts metadata without downloading the media.
func (c *Client) Probe(ctx context.Context, sourceURL string) (Metadata, error) {
	cmd := exec.CommandContext(ctx, c.binaryPath, probeArgs(sourceURL)...)

	var out bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Metadata{}, fmt.Errorf("yt-dlp probe failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var meta Metadata
	if err := json.Unmarshal(out.Bytes(), &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse yt-dlp metadata: %w", err)
	}
	return meta, nil
}

type DownloadOptions struct {
	SourceURL  string
	OutputPath string
	// Quality is a resolution ceiling for direct downloads: "720p" or
	// "1080p". Empty selects the best available quality.
	Quality   string
	AudioOnly bool
}

// Download fetches the source media to opts.OutputPath.
func (c *Client) Download(ctx context.Context, opts DownloadOptions) error {
	if strings.TrimSpace(opts.SourceURL) == "" {
		return fmt.Errorf("source URL is required")
	}
	if strings.TrimSpace(opts.OutputPath) == "" {
		return fmt.Errorf("output path is required")
	}

	cmd := exec.CommandContext(ctx, c.binaryPath, downloadArgs(opts)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func probeArgs(sourceURL string) []string {
	return []string{
		"--no-playlist",
		"--no-warnings",
		"-J",
		sourceURL,
	}
}

func downloadArgs(opts DownloadOptions) []string {
	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--quiet",
		"-o", opts.OutputPath,
	}
	if opts.AudioOnly {
		args = append(args,
			"-f", "bestaudio/best",
			"-x",
			"--audio-format", "mp3",
			"--audio-quality", "192K",
		)
	} else {
		args = append(args,
			"-f", selectFormat(opts.Quality),
			"--merge-output-format", "mp4",
		)
	}
	return append(args, opts.SourceURL)
}

func selectFormat(rawQuality string) string {
	switch strings.ToLower(strings.TrimSpace(rawQuality)) {
	case "1080p", "1080":
		return "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]/best[height<=1080]"
	case "720p", "720":
		return "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best[height<=720]"
	default:
		return "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"
	}
}
