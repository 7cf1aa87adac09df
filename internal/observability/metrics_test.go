package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSubmission(t *testing.T) {
	before := testutil.ToFloat64(submissionsCounter.WithLabelValues("validation"))
	RecordSubmission("validation")
	assert.Equal(t, before+1, testutil.ToFloat64(submissionsCounter.WithLabelValues("validation")))
}

func TestRecordEmailUpdateFailure(t *testing.T) {
	before := testutil.ToFloat64(emailUpdateFailures)
	RecordEmailUpdateFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(emailUpdateFailures))
}

func TestObserveGeneration(t *testing.T) {
	before := testutil.CollectAndCount(generationDuration)
	ObserveGeneration("observability-test", time.Now(), errors.New("boom"))
	assert.Equal(t, before+1, testutil.CollectAndCount(generationDuration))
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, outcomeOf(nil))
	assert.Equal(t, OutcomeFailure, outcomeOf(errors.New("x")))
}
