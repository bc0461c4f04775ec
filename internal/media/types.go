package media

// Info describes a local media file as reported by the toolchain.
type Info struct {
	DurationSec float64
	FrameRate   float64
}

type Operator interface {
	Probe() (Info, error)
	ExtractClip(startSec, endSec float64, targetPath string) error
}

func NewOperator(mediaPath string) Operator {
	return NewFfmpeg(mediaPath)
}

// NewOpener binds the toolchain binaries once and opens media files with
// them. Empty paths fall back to the defaults on PATH.
func NewOpener(ffmpegCmd, ffprobeCmd string) func(mediaPath string) Operator {
	if ffmpegCmd == "" {
		ffmpegCmd = "ffmpeg"
	}
	if ffprobeCmd == "" {
		ffprobeCmd = "ffprobe"
	}
	return func(mediaPath string) Operator {
		return newFfmpeg(mediaPath, ffmpegCmd, ffprobeCmd)
	}
}
