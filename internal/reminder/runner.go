// Package reminder drives the unattended next-day appointment confirmation
// batch. It iterates upcoming appointments sequentially and paces outbound
// placements so the telephony provider's abuse detection is never tripped.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/otakuogeek/clinic-callcenter/internal/dialer"
	"github.com/otakuogeek/clinic-callcenter/internal/observability/metrics"
	"github.com/otakuogeek/clinic-callcenter/pkg/logging"
)

// AppointmentSource lists the appointments to remind.
type AppointmentSource interface {
	ListForDay(ctx context.Context, day time.Time) ([]Appointment, error)
}

// CallPlacer is the dialer surface the batch needs.
type CallPlacer interface {
	PlaceCall(ctx context.Context, opts dialer.Options) dialer.Result
}

// Summary reports one batch run.
type Summary struct {
	Total   int
	Placed  int
	Failed  int
	Skipped int
	// AvgPlacement is the recomputed average time spent per placement,
	// excluding pacing pauses.
	AvgPlacement time.Duration
}

// Runner places next-day reminder calls.
type Runner struct {
	source   AppointmentSource
	dialer   CallPlacer
	dedupe   Dedupe
	pause    time.Duration
	campaign string
	metrics  *metrics.CallMetrics
	logger   *logging.Logger
}

// Config wires the batch runner.
type Config struct {
	Source AppointmentSource
	Dialer CallPlacer
	Dedupe Dedupe
	// Pause is the fixed delay between successive placements. It is a
	// deliberate outbound rate limit, not an efficiency knob.
	Pause    time.Duration
	Campaign string
	Metrics  *metrics.CallMetrics
	Logger   *logging.Logger
}

// NewRunner creates a batch reminder runner.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	dedupe := cfg.Dedupe
	if dedupe == nil {
		dedupe = NoopDedupe{}
	}
	pause := cfg.Pause
	if pause < 0 {
		pause = 0
	}
	campaign := cfg.Campaign
	if campaign == "" {
		campaign = "appointment-reminder"
	}
	return &Runner{
		source:   cfg.Source,
		dialer:   cfg.Dialer,
		dedupe:   dedupe,
		pause:    pause,
		campaign: campaign,
		metrics:  cfg.Metrics,
		logger:   logger.Component("reminder"),
	}
}

// Run places a reminder call for every appointment scheduled tomorrow. One
// failed call never aborts the remaining queue; failures are counted and the
// run continues.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	tomorrow := time.Now().AddDate(0, 0, 1)
	return r.RunForDay(ctx, tomorrow)
}

// RunForDay places reminder calls for the given calendar day.
func (r *Runner) RunForDay(ctx context.Context, day time.Time) (Summary, error) {
	appointments, err := r.source.ListForDay(ctx, day)
	if err != nil {
		return Summary{}, fmt.Errorf("reminder: %w", err)
	}

	summary := Summary{Total: len(appointments)}
	if summary.Total == 0 {
		r.logger.Info("no appointments to remind", "day", day.Format(time.DateOnly))
		return summary, nil
	}
	r.logger.Info("reminder batch starting",
		"day", day.Format(time.DateOnly),
		"appointments", summary.Total,
	)

	var elapsed time.Duration
	placements := 0
	for i, appt := range appointments {
		if i > 0 && r.pause > 0 {
			if err := sleepCtx(ctx, r.pause); err != nil {
				return summary, err
			}
		}
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		first, err := r.dedupe.MarkOnce(ctx, appt.ID+":"+day.Format(time.DateOnly))
		if err != nil {
			r.logger.Warn("dedupe check failed, placing anyway", "appointment_id", appt.ID, "error", err)
		} else if !first {
			r.logger.Info("appointment already reminded, skipping", "appointment_id", appt.ID)
			summary.Skipped++
			continue
		}

		started := time.Now()
		res := r.dialer.PlaceCall(ctx, dialer.Options{
			PhoneNumber:   appt.PhoneNumber,
			PatientID:     appt.PatientID,
			AppointmentID: appt.ID,
			Message:       ReminderMessage(appt),
			Variables:     DynamicVariables(appt),
			Metadata: map[string]any{
				"campaign":       r.campaign,
				"appointment_id": appt.ID,
			},
		})
		took := time.Since(started)
		elapsed += took
		placements++
		summary.AvgPlacement = elapsed / time.Duration(placements)

		if res.Success {
			summary.Placed++
			r.metrics.ObserveReminder("placed")
			r.logger.Info("reminder placed",
				"appointment_id", appt.ID,
				"status", res.Status,
				"conversation_id", res.ConversationID,
				"took", took,
			)
		} else {
			summary.Failed++
			r.metrics.ObserveReminder("failed")
			r.logger.Error("reminder failed",
				"appointment_id", appt.ID,
				"error", res.Err,
			)
		}
	}

	r.logger.Info("reminder batch finished",
		"total", summary.Total,
		"placed", summary.Placed,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"avg_placement", summary.AvgPlacement,
	)
	return summary, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
