package cvm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jor0105/datafin/internal/domain"
)

func TestDownloadCVMRejectsEmptyFamilyList(t *testing.T) {
	_, err := DownloadCVM(context.Background(), Options{
		Destination: t.TempDir(),
		Families:    nil,
		InitialYear: 2020,
		LastYear:    2020,
	})
	require.Error(t, err)
}

func TestDownloadCVMRejectsUnknownFamily(t *testing.T) {
	_, err := DownloadCVM(context.Background(), Options{
		Destination: t.TempDir(),
		Families:    []string{"NOTAFAMILY"},
		InitialYear: 2020,
		LastYear:    2020,
	})
	require.Error(t, err)
}

func TestExpandJobsBuildsOneJobPerFamilyYear(t *testing.T) {
	jobs, err := expandJobs([]domain.DocumentFamily{domain.DFP, domain.ITR}, 2020, 2021, t.TempDir())
	require.NoError(t, err)
	assert.Len(t, jobs, 4)
}
