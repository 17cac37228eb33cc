package pipeline

import (
	"context"
	"errors"
	"testing"
)

type recordingObserver struct {
	started  []string
	finished []StepResult
}

func (o *recordingObserver) StepStarted(name string)     { o.started = append(o.started, name) }
func (o *recordingObserver) StepFinished(res StepResult) { o.finished = append(o.finished, res) }

func TestRunAllOK(t *testing.T) {
	t.Parallel()

	var order []string
	mk := func(name string) Step {
		return Step{Name: name, Run: func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}}
	}

	results, err := NewRunner([]Step{mk("a"), mk("b"), mk("c")}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("steps ran out of order: %v", order)
	}
	for _, res := range results {
		if res.Status != StatusOK {
			t.Fatalf("step %s status = %s, want ok", res.Name, res.Status)
		}
	}
}

func TestRunHaltsOnFirstFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	ran := map[string]bool{}
	mk := func(name string, err error) Step {
		return Step{Name: name, Run: func(ctx context.Context) error {
			ran[name] = true
			return err
		}}
	}

	results, err := NewRunner([]Step{
		mk("first", nil),
		mk("second", boom),
		mk("third", nil),
	}).Run(context.Background())

	if err == nil {
		t.Fatal("expected error from failing step")
	}
	if ran["third"] {
		t.Fatal("step after the failure must not run")
	}

	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		t.Fatalf("error %T is not *StepError", err)
	}
	if stepErr.Step != "second" {
		t.Fatalf("StepError.Step = %q, want second", stepErr.Step)
	}
	if !errors.Is(err, boom) {
		t.Fatal("StepError must unwrap to the step's error")
	}

	want := []Status{StatusOK, StatusFailed, StatusSkipped}
	for i, res := range results {
		if res.Status != want[i] {
			t.Errorf("results[%d].Status = %s, want %s", i, res.Status, want[i])
		}
	}
}

func TestRunNilStepIsRecordOnly(t *testing.T) {
	t.Parallel()

	results, err := NewRunner([]Step{{Name: "register entry point"}}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if results[0].Status != StatusOK {
		t.Fatalf("record-only step status = %s, want ok", results[0].Status)
	}
}

func TestRunCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	results, err := NewRunner([]Step{{
		Name: "never",
		Run: func(ctx context.Context) error {
			ran = true
			return nil
		},
	}}).Run(ctx)

	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if ran {
		t.Fatal("step ran despite cancelled context")
	}
	if results[0].Status != StatusSkipped {
		t.Fatalf("status = %s, want skipped", results[0].Status)
	}
}

func TestRunNotifiesObserver(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	obs := &recordingObserver{}

	_, _ = NewRunner([]Step{
		{Name: "ok", Run: func(ctx context.Context) error { return nil }},
		{Name: "bad", Run: func(ctx context.Context) error { return boom }},
		{Name: "after"},
	}).WithObserver(obs).Run(context.Background())

	if len(obs.started) != 2 {
		t.Fatalf("started = %v, want [ok bad]", obs.started)
	}
	if len(obs.finished) != 3 {
		t.Fatalf("finished %d steps, want 3 (skipped included)", len(obs.finished))
	}
	if obs.finished[2].Status != StatusSkipped {
		t.Fatalf("last finished status = %s, want skipped", obs.finished[2].Status)
	}
}

func TestStatusString(t *testing.T) {
	t.Parallel()

	cases := map[Status]string{
		StatusPending: "pending",
		StatusOK:      "ok",
		StatusFailed:  "failed",
		StatusSkipped: "skipped",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", status, got, want)
		}
	}
}
