package domain_test

import (
	"testing"

	"filescan/pkg/domain"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		malicious  int
		suspicious int
		want       domain.HistoryStatus
	}{
		{"all zero", 0, 0, domain.HistorySafe},
		{"suspicious only", 0, 1, domain.HistorySuspicious},
		{"malicious only", 1, 0, domain.HistoryMalware},
		{"malicious wins over suspicious", 2, 5, domain.HistoryMalware},
		{"many suspicious", 0, 64, domain.HistorySuspicious},
		{"single malicious among many", 1, 63, domain.HistoryMalware},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, domain.Classify(tc.malicious, tc.suspicious))
		})
	}
}

func TestReport_Terminal(t *testing.T) {
	require.False(t, (*domain.Report)(nil).Terminal())
	require.False(t, (&domain.Report{Status: domain.ReportQueued}).Terminal())
	require.False(t, (&domain.Report{Status: domain.ReportRunning}).Terminal())
	require.True(t, (&domain.Report{Status: domain.ReportCompleted}).Terminal())
}

func TestHistoryID_RoundTrip(t *testing.T) {
	id, err := domain.ParseHistoryID("0191d9a0-5a8f-7cc3-b3a4-111111111111")
	require.NoError(t, err)
	require.Equal(t, "0191d9a0-5a8f-7cc3-b3a4-111111111111", id.String())

	_, err = domain.ParseHistoryID("not-an-id")
	require.Error(t, err)
}
