package monitoring

import (
	"errors"
	"testing"
	"time"
)

type recordingMonitor struct {
	errs   []error
	tags   []map[string]string
	crumbs []string
}

func (r *recordingMonitor) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recordingMonitor) Breadcrumb(_, msg string, _ map[string]any) {
	r.crumbs = append(r.crumbs, msg)
}
func (r *recordingMonitor) Recover()            {}
func (r *recordingMonitor) Flush(time.Duration) {}

func TestCaptureRunFailure(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	defer Init(NopMonitor{})

	CaptureRunFailure(errors.New("engine down"), 1001, "drive")
	CaptureException(nil, nil)

	if len(rec.errs) != 1 {
		t.Fatalf("expected 1 captured error, got %d", len(rec.errs))
	}
	if rec.tags[0]["bus"] != "1001" || rec.tags[0]["stage"] != "drive" {
		t.Fatalf("unexpected tags %v", rec.tags[0])
	}
}

func TestStageDone(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	defer Init(NopMonitor{})

	StageDone(2002, "simulate", map[string]any{"breakpoints": 9})
	if len(rec.crumbs) != 1 || rec.crumbs[0] != "bus 2002 simulate done" {
		t.Fatalf("unexpected breadcrumbs %v", rec.crumbs)
	}
}

func TestInitIgnoresNil(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	defer Init(NopMonitor{})
	Init(nil)
	CaptureException(errors.New("x"), nil)
	if len(rec.errs) != 1 {
		t.Fatal("nil monitor replaced the current one")
	}
}
