package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openRecorder(t *testing.T) *Recorder {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "jobs.db"))
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	r, err := NewRecorder(db)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}
	clock := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r
}

func TestRecorder_RecordAndList(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()

	records := []Metric{
		{RunID: "run-1", Stage: StageUpload, Document: "a.pdf", Seconds: 1.5, Success: true},
		{RunID: "run-1", JobID: "job-1", Stage: StageWait, Seconds: 30, Success: true, Pages: 3},
		{RunID: "run-1", JobID: "job-1", Stage: StageFetch, Seconds: 2, Success: false, ErrorType: "job failed"},
		{RunID: "run-2", JobID: "job-2", Stage: StageWait, Seconds: 10, Success: true},
	}
	for _, m := range records {
		id, err := r.Record(ctx, m)
		if err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if id == "" {
			t.Error("expected generated id")
		}
	}
	if err := r.AttachJob(ctx, "run-1", "job-1"); err != nil {
		t.Fatalf("AttachJob() error = %v", err)
	}

	failed := false
	tests := []struct {
		name   string
		filter Filter
		limit  int
		want   []string
	}{
		{"all", Filter{}, 0, []string{StageUpload, StageWait, StageFetch, StageWait}},
		{"by job after attach", Filter{JobID: "job-1"}, 0, []string{StageUpload, StageWait, StageFetch}},
		{"by stage", Filter{Stage: StageWait}, 0, []string{StageWait, StageWait}},
		{"failures", Filter{Success: &failed}, 0, []string{StageFetch}},
		{"limit", Filter{}, 2, []string{StageUpload, StageWait}},
		{"after", Filter{After: time.Date(2024, 3, 1, 9, 0, 2, 0, time.UTC)}, 0, []string{StageFetch, StageWait}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.List(ctx, tt.filter, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d metrics, got %d", len(tt.want), len(got))
			}
			for i, stage := range tt.want {
				if got[i].Stage != stage {
					t.Errorf("metrics[%d].Stage = %s, want %s", i, got[i].Stage, stage)
				}
			}
		})
	}

	got, _ := r.List(ctx, Filter{Stage: StageFetch}, 0)
	if got[0].Success || got[0].ErrorType != "job failed" {
		t.Errorf("unexpected failure metric %+v", got[0])
	}
}

func TestRecorder_GetSummary(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()
	for _, m := range []Metric{
		{RunID: "r", JobID: "j", Stage: StageWait, Seconds: 4, Pages: 2, Success: true},
		{RunID: "r", JobID: "j", Stage: StageFetch, Seconds: 2, Blocks: 100, Success: true},
		{RunID: "r", JobID: "j", Stage: StageSave, Seconds: 0, Success: false},
	} {
		if _, err := r.Record(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	s, err := r.GetSummary(ctx, Filter{JobID: "j"})
	if err != nil {
		t.Fatalf("GetSummary() error = %v", err)
	}
	if s.Count != 3 || s.SuccessCount != 2 || s.ErrorCount != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.TotalTime != 6*time.Second || s.TotalPages != 2 || s.TotalBlocks != 100 {
		t.Errorf("unexpected totals %+v", s)
	}
	if s.AvgTimeSeconds != 2 {
		t.Errorf("expected avg 2s, got %f", s.AvgTimeSeconds)
	}
}

func TestRecorder_StageStats(t *testing.T) {
	r := openRecorder(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		m := Metric{RunID: fmt.Sprintf("r%d", i), Stage: StageWait, Seconds: float64(i * 10), Success: i != 5}
		if _, err := r.Record(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := r.StageStats(ctx, Filter{})
	if err != nil {
		t.Fatalf("StageStats() error = %v", err)
	}
	w := stats[StageWait]
	if w == nil {
		t.Fatal("missing wait stats")
	}
	if w.Count != 5 || w.ErrorCount != 1 {
		t.Errorf("unexpected counts %+v", w)
	}
	if w.LatencyMin != 10 || w.LatencyMax != 50 || w.LatencyAvg != 30 || w.LatencyP50 != 30 {
		t.Errorf("unexpected latencies %+v", w)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 50, 0},
		{"single", []float64{3}, 99, 3},
		{"median", []float64{1, 2, 3, 4}, 50, 2.5},
		{"p95", []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}, 95, 95},
		{"max", []float64{1, 2}, 100, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := percentile(tt.values, tt.p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("percentile(%v, %v) = %v, want %v", tt.values, tt.p, got, tt.want)
			}
		})
	}
}

func TestStage(t *testing.T) {
	sentinel := errors.New("job failed")
	m := Stage("run-1", StageWait, time.Now().Add(-time.Second), fmt.Errorf("%w: job-1", sentinel))
	if m.Success || m.ErrorType != "job failed" {
		t.Errorf("unexpected metric %+v", m)
	}
	if m.Seconds < 1 {
		t.Errorf("expected at least 1s, got %f", m.Seconds)
	}

	ok := Stage("run-1", StageFetch, time.Now(), nil)
	if !ok.Success || ok.ErrorType != "" {
		t.Errorf("unexpected metric %+v", ok)
	}
}
