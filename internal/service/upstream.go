package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/internal/storage"
	itypes "github.com/buidl-renaissance/appblocks/internal/types"
)

// UpstreamService probes provider base URLs and moves their installations
// between active and error. A provider that stops answering degrades every
// grant pointed at it; a recovered provider restores them.
type UpstreamService struct {
	db     storage.DatabaseStorage
	client *retryablehttp.Client
	logger *logrus.Logger
}

func NewUpstreamService(db storage.DatabaseStorage) (*UpstreamService, error) {
	if db == nil {
		return nil, fmt.Errorf("database storage cannot be nil")
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 3 * time.Second
	client.HTTPClient.Timeout = 10 * time.Second
	client.Logger = nil

	return &UpstreamService{
		db:     db,
		client: client,
		logger: logrus.WithField("service", "upstream").Logger,
	}, nil
}

// CheckProvider probes one provider and reconciles its installations'
// status with the probe outcome.
func (s *UpstreamService) CheckProvider(ctx context.Context, providerID uuid.UUID) error {
	cfg, err := s.db.GetProviderConfig(ctx, providerID)
	if err != nil {
		return fmt.Errorf("failed to get provider config: %w", err)
	}
	if cfg == nil {
		return ErrProviderNotFound
	}
	if cfg.Status != itypes.ProviderStatusActive {
		return nil
	}

	healthy := s.probe(ctx, cfg.BaseAPIURL)

	if healthy {
		restored, err := s.db.SetProviderInstallationsStatus(ctx, providerID,
			itypes.InstallationStatusError, itypes.InstallationStatusActive)
		if err != nil {
			return fmt.Errorf("failed to restore installations: %w", err)
		}
		if restored > 0 {
			s.logger.WithFields(logrus.Fields{
				"provider_id": providerID,
				"count":       restored,
			}).Info("provider recovered, installations restored")
		}
		return nil
	}

	degraded, err := s.db.SetProviderInstallationsStatus(ctx, providerID,
		itypes.InstallationStatusActive, itypes.InstallationStatusError)
	if err != nil {
		return fmt.Errorf("failed to degrade installations: %w", err)
	}
	if degraded > 0 {
		s.logger.WithFields(logrus.Fields{
			"provider_id": providerID,
			"count":       degraded,
		}).Warn("provider unreachable, installations marked errored")
	}
	return nil
}

// CheckAllProviders probes every active provider. Individual failures are
// logged, not fatal, so one bad provider never blocks the sweep.
func (s *UpstreamService) CheckAllProviders(ctx context.Context) error {
	providers, err := s.db.FindActiveProviders(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active providers: %w", err)
	}
	for _, cfg := range providers {
		if err := s.CheckProvider(ctx, cfg.AppBlockID); err != nil {
			s.logger.WithError(err).WithField("provider_id", cfg.AppBlockID).Error("provider health check failed")
		}
	}
	return nil
}

func (s *UpstreamService) probe(ctx context.Context, baseURL string) bool {
	url := strings.TrimSuffix(baseURL, "/") + "/healthz"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	// Auth-shaped rejections mean the endpoint is alive but our standing is
	// gone; treat as unhealthy so grants degrade to error.
	return resp.StatusCode < 400
}
