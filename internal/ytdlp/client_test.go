package ytdlp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFormat(t *testing.T) {
	tests := []struct {
		name    string
		quality string
		want    string
	}{
		{name: "default best", quality: "", want: "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"},
		{name: "720p", quality: "720p", want: "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best[height<=720]"},
		{name: "720 bare", quality: "720", want: "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best[height<=720]"},
		{name: "1080p upper", quality: "1080P", want: "bestvideo[height<=1080][ext=mp4]+bestaudio[ext=m4a]/best[height<=1080][ext=mp4]/best[height<=1080]"},
		{name: "unknown falls back to best", quality: "4k", want: "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, selectFormat(tt.quality))
		})
	}
}

func TestDownloadArgs_Video(t *testing.T) {
	args := downloadArgs(DownloadOptions{
		SourceURL:  "https://example.com/watch?v=x",
		OutputPath: "/tmp/out.mp4",
	})

	assert.Contains(t, args, "--no-playlist")
	assert.Contains(t, args, "--merge-output-format")
	assert.NotContains(t, args, "-x")
	require.Equal(t, "https://example.com/watch?v=x", args[len(args)-1])

	for i, a := range args {
		if a == "-o" {
			require.Less(t, i+1, len(args))
			assert.Equal(t, "/tmp/out.mp4", args[i+1])
		}
	}
}

func TestDownloadArgs_AudioOnly(t *testing.T) {
	args := downloadArgs(DownloadOptions{
		SourceURL:  "https://example.com/watch?v=x",
		OutputPath: "/tmp/out.mp3",
		AudioOnly:  true,
	})

	assert.Contains(t, args, "-x")
	assert.Contains(t, args, "--audio-format")
	assert.Contains(t, args, "mp3")
	assert.NotContains(t, args, "--merge-output-format")
}

func TestDownload_RejectsMissingArguments(t *testing.T) {
	c := NewClient("")

	err := c.Download(context.Background(), DownloadOptions{OutputPath: "/tmp/out.mp4"})
	assert.Error(t, err)

	err = c.Download(context.Background(), DownloadOptions{SourceURL: "https://example.com/v"})
	assert.Error(t, err)
}
