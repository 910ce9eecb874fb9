package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("summary", time.Second, nil)
	m.ObserveRequest("summary", time.Second, errors.New("boom"))
	m.ObserveRequest("chat", time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests().WithLabelValues("summary", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests().WithLabelValues("summary", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests().WithLabelValues("chat", "ok")))
}

func TestSetBoard(t *testing.T) {
	m := New()
	m.SetBoard(7, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Overdue()))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("chat", time.Second, nil)
	m.SetBoard(1, 1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.SetBoard(3, 1)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "taskboard_overdue_tasks 1"))
}
