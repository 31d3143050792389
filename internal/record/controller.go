package record

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	"github.com/linzh0131/find/internal/api"
	"github.com/linzh0131/find/internal/model"
)

// State of the recording controller.
type State int

const (
	Idle State = iota
	Recording
	Stopping
	Transcribing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Stopping:
		return "stopping"
	case Transcribing:
		return "transcribing"
	}
	return "unknown"
}

// Transcriber sends a finalized recording to the transcription service.
type Transcriber interface {
	Transcribe(ctx context.Context, req api.TranscribeRequest) (string, error)
}

// Controller drives the capture lifecycle
// Idle → Recording → Stopping → Transcribing → Idle, falling back to Idle on
// any failure. A fresh capture session is opened per recording attempt and
// its hardware is released on every exit path.
type Controller struct {
	device      Device
	transcriber Transcriber
	language    string

	mu     sync.Mutex
	state  State
	active Session
}

func NewController(device Device, transcriber Transcriber, languageCode string) *Controller {
	return &Controller{device: device, transcriber: transcriber, language: languageCode}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens the microphone and begins buffering chunks. On failure the
// controller never leaves Idle and the error wraps ErrMicUnavailable.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Idle {
		return fmt.Errorf("recording already in progress (%s)", c.state)
	}

	sess, err := c.device.Open(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrMicUnavailable, err)
	}

	c.active = sess
	c.state = Recording
	return nil
}

// Stop finalizes the capture, transcribes it, and returns the transcript.
// The hardware is released exactly once no matter which step fails; an empty
// transcript is reported as ErrEmptyTranscript. The controller is back in
// Idle when Stop returns.
func (c *Controller) Stop(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != Recording {
		state := c.state
		c.mu.Unlock()
		return "", fmt.Errorf("no active recording (%s)", state)
	}
	sess := c.active
	c.state = Stopping
	c.mu.Unlock()

	defer func() {
		sess.Release()
		c.mu.Lock()
		c.active = nil
		c.state = Idle
		c.mu.Unlock()
	}()

	payload, settings, err := sess.Finalize(ctx)
	if err != nil {
		return "", fmt.Errorf("finalizing capture: %w", err)
	}

	c.mu.Lock()
	c.state = Transcribing
	c.mu.Unlock()

	if settings.SampleRateHz <= 0 {
		settings.SampleRateHz = DefaultSampleRateHz
	}
	if settings.ChannelCount <= 0 {
		settings.ChannelCount = DefaultChannelCount
	}
	if settings.Encoding == "" {
		settings.Encoding = DefaultEncoding
	}

	text, err := c.transcriber.Transcribe(ctx, api.TranscribeRequest{
		AudioBase64:  base64.StdEncoding.EncodeToString(payload),
		SampleRateHz: settings.SampleRateHz,
		LanguageCode: c.language,
		ChannelCount: settings.ChannelCount,
		Encoding:     settings.Encoding,
	})
	if err != nil {
		return "", fmt.Errorf("transcribing: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", model.ErrEmptyTranscript
	}
	return text, nil
}
