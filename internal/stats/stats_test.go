package stats

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const (
	testWait = time.Second
	testTick = 10 * time.Millisecond
)

func TestNewStatsUpdater(t *testing.T) {
	su := NewStatsUpdater()
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updateChan, "expected updateChan to be initialized")
	assert.NotNil(t, su.vars.Get(MessagesReceived), "expected default metrics to be registered")
}

func TestIncr(t *testing.T) {
	su := NewStatsUpdater()
	su.Run()
	defer su.Stop()

	su.Incr(MessagesReceived)
	su.Incr(MessagesReceived)

	assert.Eventually(t, func() bool {
		return su.Get(MessagesReceived) == 2
	}, testWait, testTick, "expected counter to reach 2")
}

func TestIncr_UnregisteredMetric(t *testing.T) {
	su := NewStatsUpdater()
	su.Run()
	defer su.Stop()

	su.Incr("ad_hoc_metric")

	assert.Eventually(t, func() bool {
		return su.Get("ad_hoc_metric") == 1
	}, testWait, testTick, "expected the counter to be created on first use")
}

func TestHandler(t *testing.T) {
	su := NewStatsUpdater()
	su.Run()
	defer su.Stop()

	su.Incr(FramesDropped)
	assert.Eventually(t, func() bool {
		return su.Get(FramesDropped) == 1
	}, testWait, testTick, "expected counter to reach 1")

	rec := httptest.NewRecorder()
	su.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/debug/vars", nil))

	assert.Equal(t, 200, rec.Code)

	var data map[string]any
	err := json.Unmarshal(rec.Body.Bytes(), &data)
	assert.NoError(t, err, "expected valid JSON body")
	assert.EqualValues(t, 1, data[FramesDropped], "expected frames_dropped to be 1")
}
