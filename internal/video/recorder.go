// Package video stores rendered frames as numbered PNGs and encodes them into
// an MP4 with ffmpeg.
package video

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// FramePattern is the ffmpeg input pattern of stored frames.
const FramePattern = "frame_%06d.png"

// ErrNoFFmpeg is returned by Encode when ffmpeg is not on PATH.
var ErrNoFFmpeg = errors.New("video: ffmpeg not found on PATH")

// Recorder writes frames into FramesDir and encodes them to OutPath on Close.
type Recorder struct {
	OutPath   string
	FramesDir string
	FPS       int

	logger  *zap.Logger
	encoder *png.Encoder
	frames  int
	lookup  func(string) (string, error)
}

// NewRecorder prepares an empty frames directory next to outPath
// ("<name>_frames"). fps below 1 is raised to 1.
func NewRecorder(outPath string, fps int, logger *zap.Logger) (*Recorder, error) {
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("video: cannot create output dir: %w", err)
		}
	}
	base := strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
	framesDir := filepath.Join(filepath.Dir(outPath), base+"_frames")
	if err := cleanOldFrames(framesDir); err != nil {
		return nil, fmt.Errorf("video: cannot clean frames: %w", err)
	}
	return &Recorder{
		OutPath:   outPath,
		FramesDir: framesDir,
		FPS:       max(1, fps),
		logger:    logger,
		encoder:   &png.Encoder{CompressionLevel: png.BestSpeed},
		lookup:    exec.LookPath,
	}, nil
}

// Frames returns the number of stored frames.
func (r *Recorder) Frames() int { return r.frames }

// AddFrame stores img as the next numbered frame.
func (r *Recorder) AddFrame(img image.Image) error {
	fn := filepath.Join(r.FramesDir, fmt.Sprintf(FramePattern, r.frames))
	f, err := os.Create(fn)
	if err != nil {
		return fmt.Errorf("video: cannot create frame: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := r.encoder.Encode(bw, img); err != nil {
		_ = f.Close()
		return fmt.Errorf("video: cannot encode png: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("video: cannot write frame: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("video: cannot close frame: %w", err)
	}
	r.frames++
	return nil
}

// Encode runs ffmpeg over the stored frames. Frames are kept on disk.
func (r *Recorder) Encode(ctx context.Context) error {
	if r.frames == 0 {
		return errors.New("video: no frames recorded")
	}
	ffmpeg, err := r.lookup("ffmpeg")
	if err != nil {
		return ErrNoFFmpeg
	}
	cmd := exec.CommandContext(ctx, ffmpeg,
		"-y",
		"-loglevel", "error",
		"-framerate", strconv.Itoa(r.FPS),
		"-i", filepath.Join(r.FramesDir, FramePattern),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		r.OutPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("video: ffmpeg failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Close encodes the video. Encoding problems are logged, not returned, so a
// run never fails because of its video.
func (r *Recorder) Close(ctx context.Context) {
	if err := r.Encode(ctx); err != nil {
		if errors.Is(err, ErrNoFFmpeg) {
			r.logger.Warn("ffmpeg not found on PATH; MP4 will not be created",
				zap.String("frames_dir", r.FramesDir), zap.Int("frames", r.frames))
			return
		}
		r.logger.Error("video encoding failed", zap.Error(err))
		return
	}
	r.logger.Info("saved video", zap.String("path", r.OutPath), zap.Int("frames", r.frames))
}

func listFilesSorted(dir, suffix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), strings.ToLower(suffix)) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// cleanOldFrames removes PNG frames left by a previous run.
func cleanOldFrames(framesDir string) error {
	if err := os.MkdirAll(framesDir, 0o755); err != nil {
		return err
	}
	files, err := listFilesSorted(framesDir, ".png")
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}
