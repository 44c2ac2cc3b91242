// Package relay turns inbound email events into notification triggers.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/loykin/mailrelay/internal/common"
	"github.com/loykin/mailrelay/internal/notify"
	"github.com/loykin/mailrelay/internal/payload"
	"github.com/loykin/mailrelay/internal/store"
	"github.com/loykin/mailrelay/pkg/extract"
)

var (
	// ErrInactive marks events whose status is not the active status.
	ErrInactive = errors.New("event is not active")
	// ErrDuplicate marks events the ledger already recorded as sent.
	ErrDuplicate = errors.New("event already processed")
)

// Notifier delivers a trigger downstream.
type Notifier interface {
	Send(ctx context.Context, t notify.Trigger) (*notify.Response, error)
}

// Ledger remembers processed events. A nil Ledger disables deduplication.
type Ledger interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, rec store.Record) error
}

// Options configures a Processor.
type Options struct {
	Descriptors  []extract.Descriptor
	Keys         payload.Keys
	ActiveStatus string
	Recipient    notify.Recipient
	// Parallelism > 1 evaluates descriptors on a worker pool.
	Parallelism int
	Notifier    Notifier
	Ledger      Ledger
}

// Result describes what happened to one event.
type Result struct {
	RunID   string
	EventID string
	Status  string
	// Reason is ErrInactive or ErrDuplicate for skipped events.
	Reason     error
	Fields     map[string]string
	Trigger    *notify.Trigger
	StatusCode int
	Duration   time.Duration
}

// Skipped reports whether the event was not relayed.
func (r *Result) Skipped() bool { return r != nil && r.Status == store.StatusSkipped }

// Processor runs the relay pipeline.
type Processor struct {
	opts Options
}

// New validates the descriptors and returns a Processor.
func New(opts Options) (*Processor, error) {
	if opts.Notifier == nil {
		return nil, errors.New("relay: notifier is required")
	}
	if err := extract.ValidateAll(opts.Descriptors); err != nil {
		return nil, fmt.Errorf("relay: %w", err)
	}
	if opts.ActiveStatus == "" {
		opts.ActiveStatus = "active"
	}
	return &Processor{opts: opts}, nil
}

// Extract evaluates every descriptor against text.
func (p *Processor) Extract(ctx context.Context, text string) (map[string]string, error) {
	if p.opts.Parallelism > 1 {
		return extract.ExtractAllParallel(ctx, text, p.opts.Descriptors, p.opts.Parallelism)
	}
	return extract.ExtractAll(text, p.opts.Descriptors)
}

// Process relays one raw event. Skipped events return a Result and no error.
func (p *Processor) Process(ctx context.Context, raw []byte) (*Result, error) {
	start := time.Now()
	ev, err := payload.Parse(raw)
	if err != nil {
		return nil, err
	}
	res := &Result{RunID: uuid.NewString(), EventID: ev.ID}
	logger := common.GetLogger().WithComponent("relay").WithRun(res.RunID).WithEvent(ev.ID)
	defer func() { res.Duration = time.Since(start) }()

	if !ev.IsStatus(p.opts.ActiveStatus) {
		res.Status, res.Reason = store.StatusSkipped, ErrInactive
		logger.Info("event skipped", "reason", ErrInactive.Error(), "status", ev.Status)
		return res, nil
	}

	if p.opts.Ledger != nil && ev.ID != "" {
		seen, err := p.opts.Ledger.Seen(ctx, ev.ID)
		if err != nil {
			return nil, fmt.Errorf("check ledger: %w", err)
		}
		if seen {
			res.Status, res.Reason = store.StatusSkipped, ErrDuplicate
			logger.Info("event skipped", "reason", ErrDuplicate.Error())
			return res, nil
		}
	}

	keys := p.opts.Keys
	body, err := ev.Body(keys)
	if err != nil {
		return nil, err
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		for _, d := range p.opts.Descriptors {
			logger.WithTarget(d.Target).Debug("looking for property", "marker", d.Marker, "end", d.End.String(), "cardinality", d.Cardinality.String())
		}
	}
	fields, err := p.Extract(ctx, body)
	if err != nil {
		return nil, err
	}
	res.Fields = fields
	logger.Debug("properties extracted", "count", len(fields))

	t := notify.BuildTrigger(fields, notify.Context{
		SubjectKey: keys.Subject,
		Subject:    ev.Text(keys.Subject),
		FromKey:    keys.From,
		From:       ev.Text(keys.From),
		Recipient:  p.opts.Recipient,
	})
	res.Trigger = &t

	resp, err := p.opts.Notifier.Send(ctx, t)
	if err != nil {
		res.Status = store.StatusFailed
		var se *notify.StatusError
		if errors.As(err, &se) {
			res.StatusCode = se.StatusCode
		}
		p.record(ctx, logger, res, err.Error())
		return res, fmt.Errorf("relay event %s: %w", ev.ID, err)
	}
	res.Status = store.StatusSent
	res.StatusCode = resp.StatusCode
	p.record(ctx, logger, res, "")
	logger.Info("event relayed", "status_code", resp.StatusCode, "fields", len(fields))
	return res, nil
}

// record is best effort; a ledger failure is logged and does not fail the event.
func (p *Processor) record(ctx context.Context, logger *common.Logger, res *Result, errText string) {
	if p.opts.Ledger == nil || res.EventID == "" {
		return
	}
	err := p.opts.Ledger.Record(ctx, store.Record{
		EventID:    res.EventID,
		RunID:      res.RunID,
		Status:     res.Status,
		StatusCode: res.StatusCode,
		Fields:     res.Fields,
		Error:      errText,
	})
	if err != nil {
		logger.Error("failed to record event", "error", err)
	}
}
