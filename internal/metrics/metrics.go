package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	installationsPerConnector = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "appblocks",
			Subsystem: "registry",
			Name:      "connector_installations_total",
			Help:      "Current number of active installations per connector",
		},
		[]string{"connector_id"},
	)

	installationsPerProvider = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "appblocks",
			Subsystem: "registry",
			Name:      "provider_installations_total",
			Help:      "Current number of active installations per provider app block",
		},
		[]string{"provider_id"},
	)

	installationsGrandTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appblocks",
			Subsystem: "registry",
			Name:      "installations_grand_total",
			Help:      "Total active installations across connectors and providers",
		},
	)

	collectorLastUpdateTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "appblocks",
			Subsystem: "registry",
			Name:      "collector_last_update_timestamp",
			Help:      "Unix timestamp of last successful metrics update",
		},
	)
)

func init() {
	prometheus.MustRegister(
		installationsPerConnector,
		installationsPerProvider,
		installationsGrandTotal,
		collectorLastUpdateTimestamp,
	)
}

type InstallationMetrics struct{}

func NewInstallationMetrics() *InstallationMetrics {
	return &InstallationMetrics{}
}

func (m *InstallationMetrics) UpdateConnectorInstallations(data map[string]int64) int64 {
	installationsPerConnector.Reset()

	var total int64
	for connectorID, count := range data {
		installationsPerConnector.WithLabelValues(connectorID).Set(float64(count))
		total += count
	}
	return total
}

func (m *InstallationMetrics) UpdateProviderInstallations(data map[string]int64) int64 {
	installationsPerProvider.Reset()

	var total int64
	for providerID, count := range data {
		installationsPerProvider.WithLabelValues(providerID).Set(float64(count))
		total += count
	}
	return total
}

func (m *InstallationMetrics) SetGrandTotal(total int64) {
	installationsGrandTotal.Set(float64(total))
}

func (m *InstallationMetrics) UpdateTimestamp() {
	collectorLastUpdateTimestamp.Set(float64(time.Now().Unix()))
}
