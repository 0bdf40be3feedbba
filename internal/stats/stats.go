package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
)

// Metric names registered by default.
const (
	MessagesReceived = "messages_received"
	FramesDropped    = "frames_dropped"
	MessagesSent     = "messages_sent"
	HistoryFetches   = "history_fetches"
	RoomRefreshes    = "room_refreshes"
	Reconnects       = "reconnects"
)

type Recorder interface {
	Incr(name string)
	RegisterMetric(name string)
}

type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq
}

type metricsUpdateReq struct {
	name  string
	value int
}

// NewStatsUpdater creates a stats updater with the default session metrics
// registered.
func NewStatsUpdater() *StatsUpdater {
	su := &StatsUpdater{
		vars:       new(expvar.Map).Init(),
		updateChan: make(chan *metricsUpdateReq, 512),
	}

	for _, name := range []string{
		MessagesReceived,
		FramesDropped,
		MessagesSent,
		HistoryFetches,
		RoomRefreshes,
		Reconnects,
	} {
		su.RegisterMetric(name)
	}

	return su
}

// Handler serves the current metric values as JSON.
func (su *StatsUpdater) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		expvarData := make(map[string]any)
		su.vars.Do(func(kv expvar.KeyValue) {
			var value any
			json.Unmarshal([]byte(kv.Value.String()), &value)
			expvarData[kv.Key] = value
		})

		json.NewEncoder(w).Encode(expvarData)
	})
}

func (su *StatsUpdater) updateMetrics() {
	for req := range su.updateChan {
		// Add creates the counter if the name was never registered, so an
		// unknown metric is counted rather than fatal.
		su.vars.Add(req.name, int64(req.value))
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- &metricsUpdateReq{name: name, value: 1}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Get(name string) int64 {
	metric := su.vars.Get(name)
	if metric == nil {
		return 0
	}

	return metric.(*expvar.Int).Value()
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
}

// Noop discards all metric updates. Useful for tests that don't assert on
// stats.
type Noop struct{}

func (Noop) Incr(name string)           {}
func (Noop) RegisterMetric(name string) {}
