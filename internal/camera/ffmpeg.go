package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/kozaktomas/vms-kiosk/internal/kerrors"
)

var (
	jpegSOI = []byte{0xFF, 0xD8} // Start of Image
	jpegEOI = []byte{0xFF, 0xD9} // End of Image
)

// SplitJPEG is a bufio.SplitFunc that extracts whole JPEG frames from an MJPEG byte
// stream using the SOI/EOI markers. Bytes outside a frame are skipped.
func SplitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, jpegSOI)
	if start == -1 {
		// keep the last byte, it may be the first half of a marker
		if len(data) > 1 {
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end == -1 {
		return start, nil, nil
	}
	end += start + len(jpegSOI) + len(jpegEOI)
	return end, data[start:end], nil
}

// FFmpeg opens the local camera as an ffmpeg child process emitting MJPEG on stdout.
type FFmpeg struct {
	Path   string // binary, defaults to ffmpeg
	Format string // input format, defaults to v4l2
	Device string // input device, defaults to /dev/video0
}

// Args returns the ffmpeg arguments for the configured device.
func (f FFmpeg) Args() []string {
	format := f.Format
	if format == "" {
		format = "v4l2"
	}
	device := f.Device
	if device == "" {
		device = "/dev/video0"
	}
	// -loglevel error keeps the stderr buffer small; it only has to hold failures
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-f", format, "-i", device,
		"-f", "image2pipe", "-vcodec", "mjpeg", "-",
	}
}

// Open starts ffmpeg. The process is not bound to ctx: it lives as long as the
// session and is stopped through Stream.Stop.
func (f FFmpeg) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := f.Path
	if path == "" {
		path = "ffmpeg"
	}

	cmd := exec.Command(path, f.Args()...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %w", kerrors.ErrDeviceUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("%w: %w", kerrors.ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("%w: start %s: %w", kerrors.ErrDeviceUnavailable, path, err)
	}

	return &ffmpegStream{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *lockedBuffer

	stopOnce sync.Once
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Stop kills ffmpeg and reaps it. Wait also closes stdout, which ends the reader.
func (s *ffmpegStream) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if kerr := s.cmd.Process.Kill(); kerr != nil && !errors.Is(kerr, os.ErrProcessDone) {
			err = kerr
		}
		// exit status after a kill is expected
		_ = s.cmd.Wait()
	})
	return err
}

// Diagnostics returns what ffmpeg printed to stderr.
func (s *ffmpegStream) Diagnostics() string {
	return s.stderr.String()
}

// classifyDiagnostics maps ffmpeg error output to a camera error.
func classifyDiagnostics(diag string) error {
	lower := strings.ToLower(diag)
	switch {
	case strings.Contains(lower, "permission denied"), strings.Contains(lower, "operation not permitted"):
		return kerrors.ErrPermissionDenied
	default:
		return kerrors.ErrDeviceUnavailable
	}
}

// lockedBuffer is written by the exec copier goroutine and read by Diagnostics.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
