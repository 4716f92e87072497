package scheduler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jor0105/datafin/internal/domain"
	"github.com/jor0105/datafin/internal/governor"
	"github.com/jor0105/datafin/internal/httpadapter"
	"github.com/jor0105/datafin/internal/retrypolicy"
)

func TestRunRecordsSuccessAndInvokesExtractor(t *testing.T) {
	const body = "fake csv body"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dir := t.TempDir()
	adapter := httpadapter.New(5*time.Second, retrypolicy.Default())

	var extracted []string
	sch := &Scheduler{
		Adapter:    adapter,
		Governor:   governor.Default(),
		Policy:     retrypolicy.Policy{Initial: time.Millisecond, Multiplier: 2, Cap: time.Millisecond, MaxAttempts: 1},
		MaxWorkers: 2,
		Extract: func(job Job) error {
			extracted = append(extracted, job.Destination)
			return nil
		},
	}

	job := Job{Family: domain.DFP, Year: 2022, URL: srv.URL, Destination: filepath.Join(dir, "dfp_cia_aberta_2022.csv")}
	res, err := sch.Run(context.Background(), []Job{job})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount())
	assert.Equal(t, []string{"DFP:2022"}, res.Successes())
	assert.Equal(t, []string{job.Destination}, extracted)

	got, err := os.ReadFile(job.Destination)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestRunRecordsFailureWithoutAbortingOtherJobs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	adapter := httpadapter.New(5*time.Second, retrypolicy.Default())
	core, logs := observer.New(zapcore.WarnLevel)
	sch := &Scheduler{
		Adapter:    adapter,
		Governor:   governor.Default(),
		Policy:     retrypolicy.Policy{Initial: time.Millisecond, Multiplier: 2, Cap: time.Millisecond, MaxAttempts: 1},
		MaxWorkers: 2,
		Logger:     zap.New(core),
	}

	jobs := []Job{
		{Family: domain.FCA, Year: 2021, URL: srv.URL + "/bad", Destination: filepath.Join(dir, "bad.csv")},
		{Family: domain.ITR, Year: 2021, URL: srv.URL + "/good", Destination: filepath.Join(dir, "good.csv")},
	}
	res, err := sch.Run(context.Background(), jobs)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount())
	assert.Equal(t, 1, res.ErrorCount())
	assert.Contains(t, res.Failures(), "FCA:2021")
	assert.Contains(t, res.Successes(), "ITR:2021")

	warnings := logs.FilterMessage("job failed").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "FCA:2021", warnings[0].ContextMap()["job"])
}
