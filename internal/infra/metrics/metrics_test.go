package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clickdom "github.com/lwb4/proofofclick/internal/domain/click"
)

func TestObserver_CountsOutcomes(t *testing.T) {
	c := operations.WithLabelValues(string(clickdom.OpBuyCursor), string(clickdom.OutcomeRejected))
	before := testutil.ToFloat64(c)

	Observer{}.ObserveOperation(clickdom.OpBuyCursor, clickdom.OutcomeRejected, 3*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(c))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	RecordHTTPRequest(http.MethodPost, "/v2/click", http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "proofofclick_http_requests_total"))
}
