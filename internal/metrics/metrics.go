// Package metrics exposes prometheus counters and gauges for the audio
// policy core's decision points: focus arbitration outcomes, duck/unduck
// transitions, HAL-batch mutations, and mixer-reconciliation results.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	focusGrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiopolicy_focus_grants_total",
		Help: "Total number of focus requests granted, by zone and context.",
	}, []string{"zone", "context"})

	focusRejectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiopolicy_focus_rejects_total",
		Help: "Total number of focus requests rejected, by zone and context.",
	}, []string{"zone", "context"})

	focusDelaysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiopolicy_focus_delays_total",
		Help: "Total number of focus requests delayed pending a future grant, by zone and context.",
	}, []string{"zone", "context"})

	focusHoldersGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "audiopolicy_focus_holders",
		Help: "Current number of active focus holders per zone.",
	}, []string{"zone"})

	duckTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiopolicy_duck_transitions_total",
		Help: "Total number of device addresses transitioned to ducked, by zone.",
	}, []string{"zone"})

	unduckTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiopolicy_unduck_transitions_total",
		Help: "Total number of device addresses transitioned out of ducked, by zone.",
	}, []string{"zone"})

	halBatchMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiopolicy_hal_batch_mutations_total",
		Help: "Total number of volume groups mutated by a HAL gain-change batch.",
	}, []string{"reason"})

	halBatchDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audiopolicy_hal_batch_dropped_total",
		Help: "Total number of HAL gain-change batch entries dropped for referencing an unknown zone or group.",
	})

	mixerReconciliationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiopolicy_mixer_reconciliations_total",
		Help: "Total number of core-mixer reconciliation outcomes, by outcome.",
	}, []string{"outcome"})

	mediaRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "audiopolicy_media_requests_total",
		Help: "Total number of media-audio requests, by terminal status.",
	}, []string{"status"})
)

// RecordFocusGrant increments the grant counter for zone/ctx.
func RecordFocusGrant(zone, ctx string) { focusGrantsTotal.WithLabelValues(zone, ctx).Inc() }

// RecordFocusReject increments the reject counter for zone/ctx.
func RecordFocusReject(zone, ctx string) { focusRejectsTotal.WithLabelValues(zone, ctx).Inc() }

// RecordFocusDelay increments the delay counter for zone/ctx.
func RecordFocusDelay(zone, ctx string) { focusDelaysTotal.WithLabelValues(zone, ctx).Inc() }

// SetFocusHolders sets the current holder-count gauge for zone.
func SetFocusHolders(zone string, count int) { focusHoldersGauge.WithLabelValues(zone).Set(float64(count)) }

// RecordDuckTransitions adds n to the duck-transition counter for zone.
func RecordDuckTransitions(zone string, n int) {
	if n > 0 {
		duckTransitionsTotal.WithLabelValues(zone).Add(float64(n))
	}
}

// RecordUnduckTransitions adds n to the unduck-transition counter for zone.
func RecordUnduckTransitions(zone string, n int) {
	if n > 0 {
		unduckTransitionsTotal.WithLabelValues(zone).Add(float64(n))
	}
}

// RecordHALBatchMutation increments the batch-mutation counter for reason.
func RecordHALBatchMutation(reason string) { halBatchMutationsTotal.WithLabelValues(reason).Inc() }

// RecordHALBatchDropped increments the dropped-entry counter.
func RecordHALBatchDropped() { halBatchDroppedTotal.Inc() }

// RecordMixerReconciliation increments the reconciliation-outcome counter.
func RecordMixerReconciliation(outcome string) {
	mixerReconciliationsTotal.WithLabelValues(outcome).Inc()
}

// RecordMediaRequestStatus increments the media-request terminal-status counter.
func RecordMediaRequestStatus(status string) { mediaRequestsTotal.WithLabelValues(status).Inc() }
