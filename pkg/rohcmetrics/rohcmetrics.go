// Package rohcmetrics exposes a Recorder of Prometheus counters and gauges counting the
// per-context Stats compressor.Context and decompressor.Context already
// track, the way spec §3's "statistics" fields become observable without
// putting a Prometheus dependency on the hot compress/decompress path
// itself: a caller opts in by registering a Recorder, and every other
// call site stays untouched.
package rohcmetrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the counters a caller registers once and then feeds from
// its own polling loop or from a trace callback.
type Recorder struct {
	IRSent        prometheus.Counter
	IRDynSent     prometheus.Counter
	UOSent        prometheus.Counter
	NotCompress   prometheus.Counter
	BytesSaved    prometheus.Counter
	CRCFailures   prometheus.Counter
	Repairs       prometheus.Counter
	Lost          prometheus.Counter
	StateIR       prometheus.Gauge
	StateFO       prometheus.Gauge
	StateSO       prometheus.Gauge
}

// NewRecorder constructs a Recorder and registers it with reg. namespace
// typically identifies the endpoint ("rohc_compressor", "rohc_decompressor").
func NewRecorder(reg prometheus.Registerer, namespace string) *Recorder {
	r := &Recorder{
		IRSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ir_packets_total", Help: "IR packets sent or received.",
		}),
		IRDynSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "ir_dyn_packets_total", Help: "IR-DYN packets sent or received.",
		}),
		UOSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "uo_packets_total", Help: "UO-0/UO-1/UOR-2 packets sent or received.",
		}),
		NotCompress: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "not_compressible_total", Help: "Packets no enabled profile accepted.",
		}),
		BytesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "bytes_saved_total", Help: "Header bytes elided versus the uncompressed packet.",
		}),
		CRCFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "crc_failures_total", Help: "Packets that failed header CRC verification.",
		}),
		Repairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "repairs_total", Help: "Packets recovered via CRC-repair retry.",
		}),
		Lost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "lost_total", Help: "Sequence numbers inferred lost between consecutive decodes.",
		}),
		StateIR: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "contexts_in_ir", Help: "Contexts currently in IR/NC state.",
		}),
		StateFO: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "contexts_in_fo", Help: "Contexts currently in FO/SC state.",
		}),
		StateSO: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "contexts_in_so", Help: "Contexts currently in SO/FC state.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.IRSent, r.IRDynSent, r.UOSent, r.NotCompress, r.BytesSaved,
			r.CRCFailures, r.Repairs, r.Lost, r.StateIR, r.StateFO, r.StateSO)
	}
	return r
}

// ObserveCompressorStats folds a compressor context's cumulative Stats
// into the recorder's counters. Callers own deduplication (call once per
// context per scrape interval, or track a delta themselves); Recorder
// does not remember previous values.
func ObserveCompressorStats(r *Recorder, irSent, irDynSent, uoSent, notCompress, packetsSent uint64, headerBytes, rawBytes int) {
	addCounter(r.IRSent, irSent)
	addCounter(r.IRDynSent, irDynSent)
	addCounter(r.UOSent, uoSent)
	addCounter(r.NotCompress, notCompress)
	if saved := rawBytes - headerBytes; saved > 0 {
		r.BytesSaved.Add(float64(saved))
	}
}

// ObserveDecompressorStats folds a decompressor context's cumulative
// Stats into the recorder's counters.
func ObserveDecompressorStats(r *Recorder, crcFailures, repairs, lost uint64) {
	addCounter(r.CRCFailures, crcFailures)
	addCounter(r.Repairs, repairs)
	addCounter(r.Lost, lost)
}

func addCounter(c prometheus.Counter, delta uint64) {
	if c == nil || delta == 0 {
		return
	}
	c.Add(float64(delta))
}
