package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/videochop/videochop/internal/jobs"
	"github.com/videochop/videochop/internal/media"
	"github.com/videochop/videochop/internal/ytdlp"
	"github.com/videochop/videochop/pkg/log"
)

// Downloader is the external source fetcher. Implemented by ytdlp.Client.
type Downloader interface {
	Probe(ctx context.Context, sourceURL string) (ytdlp.Metadata, error)
	Download(ctx context.Context, opts ytdlp.DownloadOptions) error
}

// MediaOpener opens a local media file with the external toolchain.
type MediaOpener func(mediaPath string) media.Operator

// Executor runs one workflow per job on a pool worker and translates every
// outcome into a job record transition. Errors never propagate past the task
// boundary: they become a failed record observable by status polling.
type Executor struct {
	manager    *jobs.Manager
	downloader Downloader
	openMedia  MediaOpener
	videoDir   string
	baseURL    string
}

func NewExecutor(manager *jobs.Manager, downloader Downloader, openMedia MediaOpener, videoDir, baseURL string) *Executor {
	if openMedia == nil {
		openMedia = media.NewOperator
	}
	return &Executor{
		manager:    manager,
		downloader: downloader,
		openMedia:  openMedia,
		videoDir:   videoDir,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Task wraps the record's workflow as a pool task.
func (e *Executor) Task(rec *jobs.Record) jobs.Task {
	return func(ctx context.Context) {
		e.run(ctx, rec)
	}
}

func (e *Executor) run(ctx context.Context, rec *jobs.Record) {
	var outputFile string
	var err error

	switch rec.Kind {
	case jobs.KindClip:
		outputFile, err = e.runClip(ctx, rec)
	case jobs.KindDownload:
		outputFile, err = e.runDownload(ctx, rec)
	case jobs.KindAudio:
		outputFile, err = e.runAudio(ctx, rec)
	default:
		err = fmt.Errorf("unknown job kind %q", rec.Kind)
	}

	if err != nil {
		log.Error("Job %s failed: %v", rec.ID, err)
		_ = e.manager.Update(rec.ID, jobs.StatusFailed,
			jobs.WithMessage("Processing failed: "+err.Error()),
			jobs.WithError(err.Error()),
		)
		return
	}

	_ = e.manager.Update(rec.ID, jobs.StatusCompleted,
		jobs.WithMessage(completionMessage(rec.Kind)),
		jobs.WithDownloadURL(e.downloadURL(outputFile)),
		jobs.WithOutputFile(outputFile),
	)
	log.Info("Job %s completed: %s", rec.ID, outputFile)
}

// runClip probes the source, downloads it to a temp location, validates the
// range against the actual duration, then extracts the sub-range into the
// artifact directory. The end time is clamped to the duration; a start at or
// beyond the duration is a hard failure, caught at probe time when the
// source reports its duration.
func (e *Executor) runClip(ctx context.Context, rec *jobs.Record) (string, error) {
	_ = e.manager.Update(rec.ID, jobs.StatusProcessing, jobs.WithMessage("Fetching source metadata"))

	meta, err := e.downloader.Probe(ctx, rec.Request.SourceURL)
	if err != nil {
		return "", fmt.Errorf("probe source: %w", err)
	}
	if meta.DurationSec > 0 && rec.Request.StartSec >= meta.DurationSec {
		return "", fmt.Errorf("start time %.3fs is at or beyond media duration %.3fs", rec.Request.StartSec, meta.DurationSec)
	}

	tempDir, err := os.MkdirTemp("", "videochop-")
	if err != nil {
		return "", fmt.Errorf("create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Warn("Failed to clean up temp directory %s: %v", tempDir, err)
		}
	}()

	_ = e.manager.Update(rec.ID, jobs.StatusProcessing, jobs.WithMessage("Downloading video"))

	inputPath := filepath.Join(tempDir, "input_"+rec.ID+".mp4")
	if err := e.downloader.Download(ctx, ytdlp.DownloadOptions{
		SourceURL:  rec.Request.SourceURL,
		OutputPath: inputPath,
	}); err != nil {
		return "", err
	}

	_ = e.manager.Update(rec.ID, jobs.StatusProcessing, jobs.WithMessage("Processing video segment"))

	op := e.openMedia(inputPath)
	info, err := op.Probe()
	if err != nil {
		return "", fmt.Errorf("probe downloaded media: %w", err)
	}

	start := rec.Request.StartSec
	end := rec.Request.EndSec
	if info.DurationSec > 0 {
		if start >= info.DurationSec {
			return "", fmt.Errorf("start time %.3fs is at or beyond media duration %.3fs", start, info.DurationSec)
		}
		if end > info.DurationSec {
			end = info.DurationSec
		}
	}

	outputFile := rec.ID + ".mp4"
	if err := op.ExtractClip(start, end, filepath.Join(e.videoDir, outputFile)); err != nil {
		return "", err
	}
	return outputFile, nil
}

// runDownload fetches the media at the requested resolution ceiling straight
// into the artifact directory, with no re-encoding step.
func (e *Executor) runDownload(ctx context.Context, rec *jobs.Record) (string, error) {
	_ = e.manager.Update(rec.ID, jobs.StatusProcessing, jobs.WithMessage("Downloading video"))

	outputFile := rec.ID + ".mp4"
	if err := e.downloader.Download(ctx, ytdlp.DownloadOptions{
		SourceURL:  rec.Request.SourceURL,
		OutputPath: filepath.Join(e.videoDir, outputFile),
		Quality:    rec.Request.Quality,
	}); err != nil {
		return "", err
	}
	return outputFile, nil
}

// runAudio fetches the media and extracts a compressed audio track.
func (e *Executor) runAudio(ctx context.Context, rec *jobs.Record) (string, error) {
	_ = e.manager.Update(rec.ID, jobs.StatusProcessing, jobs.WithMessage("Extracting audio"))

	outputFile := rec.ID + ".mp3"
	if err := e.downloader.Download(ctx, ytdlp.DownloadOptions{
		SourceURL:  rec.Request.SourceURL,
		OutputPath: filepath.Join(e.videoDir, outputFile),
		AudioOnly:  true,
	}); err != nil {
		return "", err
	}
	return outputFile, nil
}

func (e *Executor) downloadURL(filename string) string {
	return e.baseURL + "/download/" + filename
}

func completionMessage(kind jobs.Kind) string {
	switch kind {
	case jobs.KindDownload:
		return "Video downloaded successfully"
	case jobs.KindAudio:
		return "Audio extracted successfully"
	default:
		return "Video processed successfully"
	}
}
