package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordProductOperation(t *testing.T) {
	before := testutil.ToFloat64(ProductOperationsTotal.WithLabelValues("add", "success"))

	RecordProductOperation("add", "success")
	RecordProductOperation("add", "success")

	assert.Equal(t, before+2, testutil.ToFloat64(ProductOperationsTotal.WithLabelValues("add", "success")))
}

func TestRecordDBError(t *testing.T) {
	before := testutil.ToFloat64(DBErrorsTotal.WithLabelValues("product.add", "23505"))

	RecordDBError("product.add", "23505")

	assert.Equal(t, before+1, testutil.ToFloat64(DBErrorsTotal.WithLabelValues("product.add", "23505")))
}

func TestRecordDBQuery(t *testing.T) {
	RecordDBQuery("list", "product", 5*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(DBQueryDuration, "catalog_db_query_duration_seconds"))
}

func TestUpdateDBConnections(t *testing.T) {
	UpdateDBConnections(3, 2, 25)

	assert.Equal(t, float64(3), testutil.ToFloat64(DBConnections.WithLabelValues("idle")))
	assert.Equal(t, float64(2), testutil.ToFloat64(DBConnections.WithLabelValues("in_use")))
	assert.Equal(t, float64(25), testutil.ToFloat64(DBConnections.WithLabelValues("max")))
}

func TestRecordOutboxEvent(t *testing.T) {
	before := testutil.ToFloat64(OutboxEventsTotal.WithLabelValues("product.created", "published"))

	RecordOutboxEvent("product.created", "published")

	assert.Equal(t, before+1, testutil.ToFloat64(OutboxEventsTotal.WithLabelValues("product.created", "published")))
}

func TestSetOutboxBreakerState(t *testing.T) {
	SetOutboxBreakerState("nats", BreakerOpen)
	assert.Equal(t, float64(BreakerOpen), testutil.ToFloat64(OutboxBreakerState.WithLabelValues("nats")))

	SetOutboxBreakerState("nats", BreakerClosed)
	assert.Equal(t, float64(BreakerClosed), testutil.ToFloat64(OutboxBreakerState.WithLabelValues("nats")))
}
