package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

// Notification is one dispatched event as seen by the merchant UI.
type Notification struct {
	Kind    enums.NotificationKind `json:"kind"`
	Message string                 `json:"message"`
	SentAt  time.Time              `json:"sent_at"`
}

// Channel delivers a notification over one output surface. Channels are
// independent; the dispatcher never lets one channel's failure block another.
type Channel interface {
	Name() string
	Send(ctx context.Context, kind enums.NotificationKind, message string) error
}

// Toggles reports which optional channels the merchant has enabled. Read
// fresh on every dispatch so settings changes apply immediately.
type Toggles interface {
	SoundEnabled(ctx context.Context) bool
	HapticEnabled(ctx context.Context) bool
}

// Dispatcher fans notifications out to the configured channels.
type Dispatcher struct {
	visual   *VisualChannel
	sound    Channel
	haptic   Channel
	toggles  Toggles
	logger   *logger.Logger
}

// NewDispatcher wires the notification fan-out. Sound and haptic channels are
// optional; a device without the capability passes nil.
func NewDispatcher(visual *VisualChannel, sound, haptic Channel, toggles Toggles, logg *logger.Logger) (*Dispatcher, error) {
	if visual == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "visual channel required")
	}
	if toggles == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification toggles required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "notification logger required")
	}
	return &Dispatcher{
		visual:  visual,
		sound:   sound,
		haptic:  haptic,
		toggles: toggles,
		logger:  logg,
	}, nil
}

// Dispatch sends the notification over every applicable channel. The visual
// channel is always attempted; sound and haptic require both the device
// capability and the merchant toggle. Failures are collected, logged, and
// never propagated to the caller's flow.
func (d *Dispatcher) Dispatch(ctx context.Context, kind enums.NotificationKind, message string) {
	if !kind.IsValid() {
		kind = enums.NotificationKindInfo
	}

	var errs error
	if err := d.visual.Send(ctx, kind, message); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.visual.Name(), err))
	}
	if d.sound != nil && d.toggles.SoundEnabled(ctx) {
		if err := d.sound.Send(ctx, kind, message); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.sound.Name(), err))
		}
	}
	if d.haptic != nil && d.toggles.HapticEnabled(ctx) {
		if err := d.haptic.Send(ctx, kind, message); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", d.haptic.Name(), err))
		}
	}
	if errs != nil {
		d.logger.Warn(d.logger.WithField(ctx, "kind", string(kind)), "notification delivery degraded")
	}
}

// Recent returns the latest visual notifications, newest first.
func (d *Dispatcher) Recent() []Notification {
	return d.visual.Recent()
}

// VisualChannel records notifications for the merchant-facing screen. It
// keeps a bounded ring of recent entries served back through the local API.
type VisualChannel struct {
	mu      sync.Mutex
	entries []Notification
	limit   int
}

// NewVisualChannel returns a screen channel retaining up to limit entries.
func NewVisualChannel(limit int) *VisualChannel {
	if limit <= 0 {
		limit = 20
	}
	return &VisualChannel{limit: limit}
}

func (c *VisualChannel) Name() string { return "visual" }

func (c *VisualChannel) Send(ctx context.Context, kind enums.NotificationKind, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Notification{
		Kind:    kind,
		Message: message,
		SentAt:  time.Now().UTC(),
	})
	if len(c.entries) > c.limit {
		c.entries = c.entries[len(c.entries)-c.limit:]
	}
	return nil
}

func (c *VisualChannel) Recent() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.entries))
	for i := range c.entries {
		out[i] = c.entries[len(c.entries)-1-i]
	}
	return out
}

// TonePlayer is the audio capability of the terminal hardware.
type TonePlayer interface {
	PlayTone(kind enums.NotificationKind) error
}

// SoundChannel plays a tone per notification kind. Playback errors are
// swallowed; a silent terminal is not an orchestration failure.
type SoundChannel struct {
	player TonePlayer
}

func NewSoundChannel(player TonePlayer) *SoundChannel {
	return &SoundChannel{player: player}
}

func (c *SoundChannel) Name() string { return "sound" }

func (c *SoundChannel) Send(ctx context.Context, kind enums.NotificationKind, message string) error {
	if c.player == nil {
		return nil
	}
	_ = c.player.PlayTone(kind)
	return nil
}

// Vibrator is the haptic capability of the terminal hardware.
type Vibrator interface {
	Vibrate(ctx context.Context) error
}

// HapticChannel buzzes the device once per notification.
type HapticChannel struct {
	vibrator Vibrator
}

func NewHapticChannel(vibrator Vibrator) *HapticChannel {
	return &HapticChannel{vibrator: vibrator}
}

func (c *HapticChannel) Name() string { return "haptic" }

func (c *HapticChannel) Send(ctx context.Context, kind enums.NotificationKind, message string) error {
	if c.vibrator == nil {
		return nil
	}
	return c.vibrator.Vibrate(ctx)
}
