package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/pable/go-cs-demostats/internal/decoder"
	"github.com/pable/go-cs-demostats/internal/metrics"
)

func TestWarningLabels(t *testing.T) {
	c := metrics.New()
	c.Warning(&decoder.UnknownEventWarning{Name: "player_jump", Tick: 4})
	c.Warning(&decoder.UnknownEventWarning{ID: 999})
	c.Warning(&decoder.UnresolvedPlayerWarning{Event: "player_death", Key: "userid", Slot: 3})
	c.Warning(errors.New("odd"))

	require.InDelta(t, 2, testutil.ToFloat64(c.WarningCounter.With(prometheus.Labels{"type": "unknown_event"})), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.WarningCounter.With(prometheus.Labels{"type": "unresolved_player"})), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.WarningCounter.With(prometheus.Labels{"type": "other"})), 0)
}

func TestCollectorsAreIsolated(t *testing.T) {
	a, b := metrics.New(), metrics.New()
	a.RoundCounter.Add(3)
	require.InDelta(t, 3, testutil.ToFloat64(a.RoundCounter), 0)
	require.InDelta(t, 0, testutil.ToFloat64(b.RoundCounter), 0)
}

func TestWriteTextfile(t *testing.T) {
	c := metrics.New()
	c.DemoCounter.With(prometheus.Labels{"engine": "native", "result": "ok"}).Inc()

	path := filepath.Join(t.TempDir(), "csdemostats.prom")
	require.NoError(t, c.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `csdemostats_demos_total{engine="native",result="ok"} 1`)
}
