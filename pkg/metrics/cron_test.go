package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.Record("slug-backfill", 250*time.Millisecond, nil)
	m.Record("slug-backfill", time.Second, errors.New("boom"))
	m.Record("", time.Millisecond, nil)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}

	for _, tc := range []struct {
		job, result string
		want        float64
	}{
		{"slug-backfill", resultOK, 1},
		{"slug-backfill", resultError, 1},
		{"unknown", resultOK, 1},
	} {
		s := sample(families, "aitools_cron_job_runs_total", map[string]string{"job": tc.job, "result": tc.result})
		if s == nil || s.GetCounter().GetValue() != tc.want {
			t.Fatalf("runs{job=%s,result=%s}: expected %v, got %v", tc.job, tc.result, tc.want, s)
		}
	}

	duration := sample(families, "aitools_cron_job_duration_seconds", map[string]string{"job": "slug-backfill"})
	if duration == nil {
		t.Fatal("duration histogram not exported")
	}
	if h := duration.GetHistogram(); h.GetSampleCount() != 2 || h.GetSampleSum() < 1.25 {
		t.Fatalf("unexpected duration histogram count=%d sum=%f", h.GetSampleCount(), h.GetSampleSum())
	}

	if sample(families, "aitools_cron_job_last_success_timestamp_seconds", map[string]string{"job": "slug-backfill"}) == nil {
		t.Fatal("expected last success for slug-backfill")
	}
	if sample(families, "aitools_cron_job_last_success_timestamp_seconds", map[string]string{"job": "unknown"}) == nil {
		t.Fatal("expected blank job names to be recorded as unknown")
	}
}

func TestCronJobMetricsNilSafe(t *testing.T) {
	var nilMetrics *CronJobMetrics
	nilMetrics.Record("job", time.Second, nil)
	NewCronJobMetrics(nil).Record("job", time.Second, errors.New("x"))
}

// sample returns the series of family name whose labels include want.
func sample(families []*dto.MetricFamily, name string, want map[string]string) *dto.Metric {
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	series:
		for _, metric := range family.GetMetric() {
			have := map[string]string{}
			for _, pair := range metric.GetLabel() {
				have[pair.GetName()] = pair.GetValue()
			}
			for k, v := range want {
				if have[k] != v {
					continue series
				}
			}
			return metric
		}
	}
	return nil
}
