package metrics

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type DatabaseQuerier interface {
	CountInstallationsByConnector(ctx context.Context) (map[string]int64, error)
	CountInstallationsByProvider(ctx context.Context) (map[string]int64, error)
}

type InstallationCollector struct {
	db       DatabaseQuerier
	metrics  *InstallationMetrics
	logger   *logrus.Logger
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewInstallationCollector(db DatabaseQuerier, metrics *InstallationMetrics, logger *logrus.Logger, interval time.Duration) *InstallationCollector {
	return &InstallationCollector{
		db:       db,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (c *InstallationCollector) Start() {
	c.logger.Info("Starting installation metrics collector")

	go func() {
		defer close(c.doneCh)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				c.logger.Info("Stopping installation metrics collector")
				return
			}
		}
	}()
}

func (c *InstallationCollector) Stop() {
	close(c.stopCh)
	<-c.doneCh
}

func (c *InstallationCollector) collect() {
	ctx := context.Background()

	var grandTotal int64

	byConnector, err := c.db.CountInstallationsByConnector(ctx)
	if err != nil {
		c.logger.Errorf("Failed to collect connector installation counts: %v", err)
	} else {
		grandTotal += c.metrics.UpdateConnectorInstallations(byConnector)
	}

	byProvider, err := c.db.CountInstallationsByProvider(ctx)
	if err != nil {
		c.logger.Errorf("Failed to collect provider installation counts: %v", err)
	} else {
		grandTotal += c.metrics.UpdateProviderInstallations(byProvider)
	}

	c.metrics.SetGrandTotal(grandTotal)
	c.metrics.UpdateTimestamp()
}
