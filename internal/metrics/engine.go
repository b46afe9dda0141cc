package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	admissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admissions_total",
		Help:      "Participants admitted",
	})

	pairingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairings_created_total",
		Help:      "Pairings created, by how they were made",
	}, []string{"source"})

	pairingsBroken = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pairings_broken_total",
		Help:      "Pairings broken, by who broke them",
	}, []string{"actor"})

	conflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transaction_conflicts_total",
		Help:      "Engine transactions aborted by lock or serialization conflicts",
	})

	resets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "resets_total",
		Help:      "Full store resets",
	})

	participants = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "participants",
		Help:      "Participants currently in the store, by status",
	}, []string{"status"})

	activePairings = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_pairings",
		Help:      "Pairings currently active",
	})
)

func Admitted() {
	admissions.Inc()
}

// PairingCreated counts a new pairing. source is "match" or "admin".
func PairingCreated(source string) {
	pairingsCreated.WithLabelValues(source).Inc()
}

// PairingBroken counts a broken pairing. actor is "self", "admin" or "remove".
func PairingBroken(actor string) {
	pairingsBroken.WithLabelValues(actor).Inc()
}

func Conflict() {
	conflicts.Inc()
}

func Reset() {
	resets.Inc()
}

// SetPopulation overwrites the population gauges with a fresh store snapshot.
func SetPopulation(waiting, paired, left, active int64) {
	participants.WithLabelValues("waiting").Set(float64(waiting))
	participants.WithLabelValues("paired").Set(float64(paired))
	participants.WithLabelValues("left").Set(float64(left))
	activePairings.Set(float64(active))
}
