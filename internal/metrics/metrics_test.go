package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/subjects/internal/subject"
)

func TestRecordAdded(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAdded(2, 5)
	m.RecordAdded(1, 6)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.SubjectsAddedTotal))
	assert.Equal(t, float64(6), testutil.ToFloat64(m.Subjects))
}

func TestRecordRejected(t *testing.T) {
	m := New(prometheus.NewRegistry())

	_, err := subject.Parse("Иван", "Петров", "", "abc", "1985-03-14")
	var verr *subject.ValidationError
	require.True(t, errors.As(err, &verr))

	m.RecordRejected(verr)

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.SubjectsRejectedTotal.WithLabelValues(string(subject.ReasonPassportFormat))))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.SubjectsRejectedTotal.WithLabelValues(string(subject.ReasonPassportRange))))
}

func TestObserveExport(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveExport(true, nil, 10*time.Millisecond)
	m.ObserveExport(false, errors.New("disk full"), time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExportsTotal.WithLabelValues("sorted", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExportsTotal.WithLabelValues("plain", "error")))

	count, err := testutil.GatherAndCount(reg, "subjects_export_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on one registry would panic; separate ones must not.
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
