package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/buidl-renaissance/appblocks/internal/tasks"
)

// WorkerService binds the asynq task types to their handlers.
type WorkerService struct {
	installer Installer
	upstream  *UpstreamService
	logger    *logrus.Logger
}

func NewWorkerService(installer Installer, upstream *UpstreamService) (*WorkerService, error) {
	if installer == nil {
		return nil, fmt.Errorf("installer cannot be nil")
	}
	if upstream == nil {
		return nil, fmt.Errorf("upstream service cannot be nil")
	}
	return &WorkerService{
		installer: installer,
		upstream:  upstream,
		logger:    logrus.WithField("service", "worker").Logger,
	}, nil
}

func (s *WorkerService) HandleInstallationTouch(ctx context.Context, t *asynq.Task) error {
	var payload tasks.TouchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("fail to unmarshal touch payload, err: %w", err)
	}
	if err := s.installer.Touch(ctx, string(payload.Kind), payload.InstallationID); err != nil {
		return fmt.Errorf("fail to touch installation %s, err: %w", payload.InstallationID, err)
	}
	return nil
}

func (s *WorkerService) HandleProviderHealthCheck(ctx context.Context, t *asynq.Task) error {
	var payload tasks.HealthCheckPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("fail to unmarshal health check payload, err: %w", err)
	}
	if payload.ProviderAppBlockID == uuid.Nil {
		return s.upstream.CheckAllProviders(ctx)
	}
	return s.upstream.CheckProvider(ctx, payload.ProviderAppBlockID)
}

func (s *WorkerService) HandleInstallationExpiry(ctx context.Context, t *asynq.Task) error {
	n, err := s.installer.ExpireOverdue(ctx, time.Now())
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.WithField("count", n).Info("expiry sweep completed")
	}
	return nil
}
