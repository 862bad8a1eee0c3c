// Package upload drives a CSV upload and tracks the status shown to the user.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerview/ledgerview/internal/events"
	"github.com/ledgerview/ledgerview/internal/history"
	"github.com/ledgerview/ledgerview/internal/metrics"
)

// Status texts shown to the user.
const (
	MsgNoFile    = "No file selected"
	MsgUploading = "Uploading..."
	MsgSucceeded = "Upload successful"
	MsgFailed    = "Upload failed"
	MsgNotCSV    = "Invalid file type: only .csv allowed"
)

var (
	// ErrNoFile is returned when no file was given.
	ErrNoFile = errors.New("no file selected")
	// ErrRejected wraps preflight failures that never reached the API.
	ErrRejected = errors.New("file rejected")
)

// Kind is the phase of the upload lifecycle.
type Kind int

const (
	KindIdle Kind = iota
	KindUploading
	KindSucceeded
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindUploading:
		return "uploading"
	case KindSucceeded:
		return "succeeded"
	case KindFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Status is the user-visible upload state. The zero value is idle.
type Status struct {
	Kind Kind
	Text string
}

// File is a CSV picked by the user.
type File struct {
	Name string
	Size int64 // bytes; negative if unknown
	Body io.Reader
}

// Sender is the part of api.Service the uploader calls.
type Sender interface {
	UploadCSV(ctx context.Context, name string, r io.Reader) (json.RawMessage, error)
}

// Invalidator is notified when the uploaded statement replaces server state.
type Invalidator interface {
	Invalidate()
}

// Recorder keeps an audit trail of attempts.
type Recorder interface {
	Append(entries ...history.Entry) error
}

// Options configures an Uploader. Every field is optional.
type Options struct {
	MaxBytes int64 // 0 = no limit
	Store    Invalidator
	History  Recorder
	Events   events.Publisher
	Metrics  *metrics.Metrics
	Logger   *zerolog.Logger
	Now      func() time.Time
}

// Uploader sends files and tracks the status of the latest attempt. It is
// safe for concurrent use: only the most recent Handle call may change the
// visible status, however the calls interleave.
type Uploader struct {
	sender Sender
	opts   Options
	log    zerolog.Logger

	mu     sync.Mutex
	seq    uint64
	status Status
}

// New creates an Uploader sending through s.
func New(s Sender, opts Options) *Uploader {
	if opts.Events == nil {
		opts.Events = events.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	return &Uploader{sender: s, opts: opts, log: log}
}

// Status returns the current status.
func (u *Uploader) Status() Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status
}

// Handle uploads f and reports whether the server accepted it. A nil file
// fails without touching the network.
func (u *Uploader) Handle(ctx context.Context, f *File) bool {
	_, err := u.Do(ctx, f)
	return err == nil
}

// Do is Handle returning the outcome of this call. The returned Status can
// differ from Status() when a newer call has started since. The error is
// ErrNoFile, wraps ErrRejected, or is the error from the API.
func (u *Uploader) Do(ctx context.Context, f *File) (Status, error) {
	seq := u.begin()

	if f == nil {
		st := u.set(seq, Status{Kind: KindFailed, Text: MsgNoFile})
		u.opts.Metrics.Upload(string(history.OutcomeRejected))
		return st, ErrNoFile
	}

	if msg := u.preflight(f); msg != "" {
		st := u.set(seq, Status{Kind: KindFailed, Text: msg})
		u.finish(ctx, f, history.OutcomeRejected, msg)
		return st, fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	u.set(seq, Status{Kind: KindUploading, Text: MsgUploading})
	u.log.Info().Str("file", f.Name).Int64("size", f.Size).Msg("uploading statement")

	if _, err := u.sender.UploadCSV(ctx, f.Name, f.Body); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = MsgFailed
		}
		u.log.Warn().Err(err).Str("file", f.Name).Msg("upload failed")
		st := u.set(seq, Status{Kind: KindFailed, Text: msg})
		u.finish(ctx, f, history.OutcomeFailed, msg)
		return st, err
	}

	if u.opts.Store != nil {
		u.opts.Store.Invalidate()
	}
	st := u.set(seq, Status{Kind: KindSucceeded, Text: MsgSucceeded})
	u.finish(ctx, f, history.OutcomeSucceeded, "")
	return st, nil
}

func (u *Uploader) begin() uint64 {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.seq++
	return u.seq
}

// set updates the status if seq is still the latest call, and returns st.
func (u *Uploader) set(seq uint64, st Status) Status {
	u.mu.Lock()
	defer u.mu.Unlock()
	if seq == u.seq {
		u.status = st
	}
	return st
}

// TooLarge is the status text for a file over the size limit.
func TooLarge(limit int64) string {
	return fmt.Sprintf("File too large: maximum is %d bytes", limit)
}

// MaxBytes is the configured size limit, 0 if unlimited.
func (u *Uploader) MaxBytes() int64 {
	return u.opts.MaxBytes
}

func (u *Uploader) preflight(f *File) string {
	if !strings.EqualFold(filepath.Ext(f.Name), ".csv") {
		return MsgNotCSV
	}
	if limit := u.opts.MaxBytes; limit > 0 && f.Size > limit {
		return TooLarge(limit)
	}
	return ""
}

// finish records the outcome everywhere it is tracked. Failures here are
// logged and never change the upload result.
func (u *Uploader) finish(ctx context.Context, f *File, outcome history.Outcome, msg string) {
	now := u.opts.Now()
	u.opts.Metrics.Upload(string(outcome))

	if u.opts.History != nil {
		err := u.opts.History.Append(history.Entry{
			Timestamp: now,
			File:      f.Name,
			Size:      f.Size,
			Outcome:   outcome,
			Message:   msg,
		})
		if err != nil {
			u.log.Warn().Err(err).Msg("recording upload history")
		}
	}

	if outcome == history.OutcomeRejected {
		return
	}
	err := u.opts.Events.PublishUpload(ctx, events.UploadEvent{
		File:    f.Name,
		Size:    f.Size,
		Outcome: string(outcome),
		Message: msg,
		Time:    now,
	})
	if err != nil {
		u.log.Warn().Err(err).Msg("publishing upload event")
	}
}
