// Package record manages the audio-capture lifecycle: opening the host
// microphone, buffering chunks, finalizing, and handing the payload to the
// transcription service.
package record

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Negotiation fallbacks when the host does not report actual settings.
const (
	DefaultSampleRateHz = 48000
	DefaultChannelCount = 1
	DefaultEncoding     = EncodingWebmOpus
)

// Payload encodings a capture device can produce. The transcription backend
// needs the real one; opus-in-webm audio declared as PCM (or vice versa)
// never decodes.
const (
	EncodingWebmOpus = "WEBM_OPUS"
	EncodingLinear16 = "LINEAR16"
)

// Settings are the capture parameters negotiated with the hardware.
type Settings struct {
	SampleRateHz int
	ChannelCount int
	Encoding     string
}

// Device opens capture sessions on the host microphone.
type Device interface {
	Name() string
	Open(ctx context.Context) (Session, error)
}

// Session is one live capture. Release must be idempotent and must free the
// hardware unconditionally; Finalize stops capture and returns the buffered
// audio as a single payload.
type Session interface {
	Finalize(ctx context.Context) ([]byte, Settings, error)
	Release()
}

// execDevice shells out to a host recorder. ffmpeg produces opus in a webm
// container; arecord is the uncompressed wav fallback.
type execDevice struct {
	name     string
	settings Settings
	args     func(Settings) []string
}

func (d *execDevice) Name() string { return d.name }

// FFmpeg captures opus-in-webm from the default input.
func FFmpeg() Device {
	return &execDevice{
		name:     "ffmpeg",
		settings: Settings{SampleRateHz: DefaultSampleRateHz, ChannelCount: DefaultChannelCount, Encoding: EncodingWebmOpus},
		args: func(s Settings) []string {
			input := []string{"-f", "pulse", "-i", "default"}
			if runtime.GOOS == "darwin" {
				input = []string{"-f", "avfoundation", "-i", ":default"}
			}
			return append(append([]string{"-loglevel", "quiet"}, input...),
				"-ac", fmt.Sprint(s.ChannelCount),
				"-ar", fmt.Sprint(s.SampleRateHz),
				"-c:a", "libopus",
				"-f", "webm", "-")
		},
	}
}

// Arecord captures wav when ffmpeg is not installed.
func Arecord() Device {
	return &execDevice{
		name:     "arecord",
		settings: Settings{SampleRateHz: 16000, ChannelCount: DefaultChannelCount, Encoding: EncodingLinear16},
		args: func(s Settings) []string {
			return []string{
				"-q",
				"-f", "S16_LE",
				"-r", fmt.Sprint(s.SampleRateHz),
				"-c", fmt.Sprint(s.ChannelCount),
				"-t", "wav", "-",
			}
		},
	}
}

// Probe returns the preferred available capture device: the compressed
// ffmpeg encoder when the host has it, else the arecord fallback.
func Probe(forced string) (Device, error) {
	candidates := []Device{FFmpeg(), Arecord()}
	if forced != "" {
		for _, d := range candidates {
			if d.Name() == forced {
				candidates = []Device{d}
			}
		}
	}
	for _, d := range candidates {
		if _, err := exec.LookPath(d.Name()); err == nil {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no capture tool found (tried ffmpeg, arecord)")
}

func (d *execDevice) Open(ctx context.Context) (Session, error) {
	path, err := exec.LookPath(d.name)
	if err != nil {
		return nil, fmt.Errorf("%s not installed: %w", d.name, err)
	}

	cmd := exec.Command(path, d.args(d.settings)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("opening capture pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", d.name, err)
	}

	s := &execSession{
		cmd:      cmd,
		settings: d.settings,
		done:     make(chan struct{}),
	}
	go s.readLoop(stdout)
	return s, nil
}

// execSession owns the recorder process and the append-only chunk buffer.
type execSession struct {
	cmd      *exec.Cmd
	settings Settings

	mu     sync.Mutex
	chunks [][]byte

	done     chan struct{}
	released atomic.Bool
}

func (s *execSession) readLoop(r io.Reader) {
	defer close(s.done)
	for {
		buf := make([]byte, 4096)
		n, err := r.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.chunks = append(s.chunks, buf[:n])
			s.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// Finalize signals the recorder to stop, waits for the container to be
// flushed, and returns the concatenated payload. The process is gone once
// Finalize returns, whether or not it succeeded.
func (s *execSession) Finalize(ctx context.Context) ([]byte, Settings, error) {
	// Interrupt lets the encoder write its container trailer; Release below
	// is the hard stop for anything that ignores the signal.
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(os.Interrupt)
	}

	select {
	case <-s.done:
	case <-time.After(3 * time.Second):
	case <-ctx.Done():
		s.Release()
		return nil, s.settings, ctx.Err()
	}

	s.Release()

	s.mu.Lock()
	payload := bytes.Join(s.chunks, nil)
	s.mu.Unlock()

	if len(payload) == 0 {
		return nil, s.settings, fmt.Errorf("no audio captured")
	}
	return payload, s.settings, nil
}

// Release kills the recorder process. Safe to call multiple times; only the
// first call acts.
func (s *execSession) Release() {
	if !s.released.CompareAndSwap(false, true) {
		return
	}
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
}
