package observability

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordTargetLoad(t *testing.T) {
	beforeOK := testutil.ToFloat64(targetLoads.WithLabelValues("metrics-test", OutcomeSuccess))
	beforeFail := testutil.ToFloat64(targetLoads.WithLabelValues("metrics-test", OutcomeFailure))

	at := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)
	RecordTargetLoad("metrics-test", 12, nil, at)
	RecordTargetLoad("metrics-test", 0, errors.New("boom"), time.Time{})

	require.Equal(t, beforeOK+1, testutil.ToFloat64(targetLoads.WithLabelValues("metrics-test", OutcomeSuccess)))
	require.Equal(t, beforeFail+1, testutil.ToFloat64(targetLoads.WithLabelValues("metrics-test", OutcomeFailure)))
	require.Equal(t, float64(at.Unix()), testutil.ToFloat64(lastLoadGauge.WithLabelValues("metrics-test")))
}

func TestPushSendsMetrics(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	RecordPage("ok")
	require.NoError(t, Push(context.Background(), srv.URL, "runlog_ingest"))

	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, "/metrics/job/runlog_ingest", gotPath)
	require.NotEmpty(t, gotBody)
}
