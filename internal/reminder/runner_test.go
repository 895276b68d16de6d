package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/otakuogeek/clinic-callcenter/internal/calls"
	"github.com/otakuogeek/clinic-callcenter/internal/dialer"
	"github.com/otakuogeek/clinic-callcenter/internal/provider"
)

type fakeSource struct {
	appointments []Appointment
	err          error
}

func (f *fakeSource) ListForDay(ctx context.Context, day time.Time) ([]Appointment, error) {
	return f.appointments, f.err
}

type fakeDialer struct {
	calls   []dialer.Options
	failOn  map[int]bool
	counter int
}

func (f *fakeDialer) PlaceCall(ctx context.Context, opts dialer.Options) dialer.Result {
	f.counter++
	f.calls = append(f.calls, opts)
	if f.failOn[f.counter] {
		return dialer.Result{Status: calls.StatusFailed, Err: provider.FromStatus(500, "provider down", nil, false)}
	}
	return dialer.Result{Success: true, Status: calls.StatusRealCallInitiated, ConversationID: "conv"}
}

type fakeDedupe struct {
	seen map[string]bool
	err  error
}

func (f *fakeDedupe) MarkOnce(ctx context.Context, key string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func testAppointments(n int) []Appointment {
	out := make([]Appointment, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Appointment{
			ID:          string(rune('a' + i)),
			PatientID:   "patient-1",
			PatientName: "Maria",
			PhoneNumber: "3001234567",
			ScheduledAt: time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC),
			Doctor:      "Dra. Gomez",
			Specialty:   "Pediatría",
		})
	}
	return out
}

func TestRunContinuesPastFailures(t *testing.T) {
	d := &fakeDialer{failOn: map[int]bool{2: true}}
	runner := NewRunner(Config{
		Source: &fakeSource{appointments: testAppointments(4)},
		Dialer: d,
	})

	summary, err := runner.RunForDay(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Total != 4 {
		t.Fatalf("total = %d", summary.Total)
	}
	if summary.Placed+summary.Failed != summary.Total {
		t.Fatalf("placed(%d) + failed(%d) != total(%d)", summary.Placed, summary.Failed, summary.Total)
	}
	if summary.Failed != 1 {
		t.Fatalf("failed = %d, want 1", summary.Failed)
	}
	if len(d.calls) != 4 {
		t.Fatalf("expected all appointments attempted, got %d", len(d.calls))
	}
	if summary.AvgPlacement < 0 {
		t.Fatalf("avg placement = %s", summary.AvgPlacement)
	}
}

func TestRunPacesBetweenCalls(t *testing.T) {
	pause := 30 * time.Millisecond
	runner := NewRunner(Config{
		Source: &fakeSource{appointments: testAppointments(3)},
		Dialer: &fakeDialer{},
		Pause:  pause,
	})

	started := time.Now()
	if _, err := runner.RunForDay(context.Background(), time.Now()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if elapsed := time.Since(started); elapsed < 2*pause {
		t.Fatalf("expected at least %s of pacing, took %s", 2*pause, elapsed)
	}
}

func TestRunDedupeSkipsRepeats(t *testing.T) {
	dedupe := &fakeDedupe{}
	source := &fakeSource{appointments: testAppointments(2)}
	d := &fakeDialer{}
	runner := NewRunner(Config{Source: source, Dialer: d, Dedupe: dedupe})

	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	if _, err := runner.RunForDay(context.Background(), day); err != nil {
		t.Fatalf("first run: %v", err)
	}
	summary, err := runner.RunForDay(context.Background(), day)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Skipped != 2 || summary.Placed != 0 {
		t.Fatalf("expected all skipped on re-run, got %#v", summary)
	}
	if len(d.calls) != 2 {
		t.Fatalf("expected no extra placements, got %d", len(d.calls))
	}
}

func TestRunDedupeFailureStillPlaces(t *testing.T) {
	runner := NewRunner(Config{
		Source: &fakeSource{appointments: testAppointments(1)},
		Dialer: &fakeDialer{},
		Dedupe: &fakeDedupe{err: errors.New("redis down")},
	})
	summary, err := runner.RunForDay(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Placed != 1 {
		t.Fatalf("dedupe outage must not block reminders, got %#v", summary)
	}
}

func TestRunSourceError(t *testing.T) {
	runner := NewRunner(Config{
		Source: &fakeSource{err: errors.New("db down")},
		Dialer: &fakeDialer{},
	})
	if _, err := runner.RunForDay(context.Background(), time.Now()); err == nil {
		t.Fatal("expected source error")
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := NewRunner(Config{
		Source: &fakeSource{appointments: testAppointments(3)},
		Dialer: &fakeDialer{},
		Pause:  time.Second,
	})
	summary, err := runner.RunForDay(ctx, time.Now())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if summary.Placed > 1 {
		t.Fatalf("expected at most the first placement, got %#v", summary)
	}
}

func TestRunBuildsCallOptions(t *testing.T) {
	d := &fakeDialer{}
	runner := NewRunner(Config{
		Source:   &fakeSource{appointments: testAppointments(1)},
		Dialer:   d,
		Campaign: "next-day",
	})
	if _, err := runner.RunForDay(context.Background(), time.Now()); err != nil {
		t.Fatalf("run: %v", err)
	}
	opts := d.calls[0]
	if opts.PhoneNumber != "3001234567" || opts.AppointmentID != "a" {
		t.Fatalf("unexpected options: %#v", opts)
	}
	if opts.Variables["patient_name"] != "Maria" || opts.Variables["appointment_date"] != "2026-08-31" {
		t.Fatalf("unexpected variables: %#v", opts.Variables)
	}
	if opts.Metadata["campaign"] != "next-day" {
		t.Fatalf("unexpected metadata: %#v", opts.Metadata)
	}
	if opts.Message == "" {
		t.Fatal("expected rendered reminder message")
	}
}
