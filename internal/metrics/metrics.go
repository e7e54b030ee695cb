package metrics

import (
	"net/http"
	"os"
	"strings"

	"github.com/alphabill-org/chainauthority/internal/logger"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/ethereum/go-ethereum/metrics/prometheus"
)

const envMetrics = "CA_METRICS"

var (
	log      = logger.CreateForPackage()
	registry metrics.Registry
)

type Counter struct {
	metrics.Counter
}

// GetOrRegisterCounter returns counter with given name. When metrics are not
// enabled the counter discards all updates.
func GetOrRegisterCounter(name string) *Counter {
	initMetrics()
	return &Counter{metrics.GetOrRegisterCounter(name, registry)}
}

func Enabled() bool {
	return metrics.Enabled
}

func PrometheusHandler() http.Handler {
	initMetrics()
	return prometheus.Handler(registry)
}

func initMetrics() {
	if registry != nil {
		return
	}
	registry = metrics.NewRegistry()
	if !isMetricsEnabled() {
		return
	}
	log.Debug("Initialising metrics")
	metrics.Enabled = true
}

func isMetricsEnabled() bool {
	if v := os.Getenv(envMetrics); v != "" && v != "0" && !strings.EqualFold(v, "false") {
		return true
	}
	// counters are created when packages are initialized, before the command
	// line is parsed, so peek into the arguments for the metrics flag.
	for _, arg := range os.Args {
		if strings.TrimLeft(arg, "-") == "metrics" {
			return true
		}
	}
	return false
}
