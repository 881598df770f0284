// Package diagnostics runs isolated health checks against the configured
// backend and local state. It never touches the session store.
package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/feedlog/internal/backend"
	"github.com/alexanderramin/feedlog/internal/domain"
)

// DefaultTimeout bounds each check.
const DefaultTimeout = 10 * time.Second

// Status is the outcome of one check.
type Status int

const (
	Pass Status = iota
	Fail
	Skipped
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	default:
		return "skip"
	}
}

// ErrSkipped marks a check that could not run, e.g. because nobody is
// signed in. Wrap it with Skip.
var ErrSkipped = errors.New("skipped")

// Skip returns an error that makes the runner record the check as skipped.
func Skip(reason string) error {
	return fmt.Errorf("%w: %s", ErrSkipped, reason)
}

// Check is one diagnostic. Run returns a short detail on success.
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// Result records what a check found.
type Result struct {
	Name    string
	Status  Status
	Detail  string
	Code    string
	Hint    string
	Err     error
	Elapsed time.Duration
}

// Report is the ordered list of results.
type Report struct {
	Results []Result
}

// OK reports whether no check failed.
func (r Report) OK() bool {
	for _, res := range r.Results {
		if res.Status == Fail {
			return false
		}
	}
	return true
}

// Failed returns the failing results.
func (r Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Status == Fail {
			out = append(out, res)
		}
	}
	return out
}

// Runner executes checks one after another, each under its own deadline.
type Runner struct {
	timeout time.Duration
	now     func() time.Time
}

// NewRunner creates a Runner. A non-positive timeout uses DefaultTimeout.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{timeout: timeout, now: time.Now}
}

// Run executes every check. A check that ignores its context is abandoned
// when the deadline passes and reported as a timeout.
func (r *Runner) Run(ctx context.Context, checks []Check) Report {
	var report Report
	for _, c := range checks {
		report.Results = append(report.Results, r.runOne(ctx, c))
	}
	return report
}

type outcome struct {
	detail string
	err    error
}

func (r *Runner) runOne(parent context.Context, c Check) Result {
	ctx, cancel := context.WithTimeout(parent, r.timeout)
	defer cancel()

	start := r.now()
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: fmt.Errorf("check panicked: %v", p)}
			}
		}()
		detail, err := c.Run(ctx)
		done <- outcome{detail: detail, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: fmt.Errorf("%w: no answer after %s", deadlineError(ctx.Err()), r.timeout)}
	}

	res := Result{Name: c.Name, Detail: out.detail, Elapsed: r.now().Sub(start)}
	switch {
	case out.err == nil:
		res.Status = Pass
	case errors.Is(out.err, ErrSkipped):
		res.Status = Skipped
		res.Detail = out.err.Error()
	default:
		res.Status = Fail
		res.Err = out.err
		res.Code = backend.ErrorCode(out.err)
		res.Hint = backend.Hint(out.err)
		if res.Detail == "" {
			res.Detail = out.err.Error()
		}
	}
	return res
}

func deadlineError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	return err
}
