package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const QueueName = "appblocks-core"

const (
	TypeInstallationTouch   = "installation:touch"
	TypeProviderHealthCheck = "provider:healthCheck"
	TypeInstallationExpiry  = "installation:expirySweep"
)

// InstallationKind distinguishes the two installation tables in task
// payloads.
type InstallationKind string

const (
	KindConnector InstallationKind = "connector"
	KindAppBlock  InstallationKind = "app_block"
)

type TouchPayload struct {
	Kind           InstallationKind `json:"kind"`
	InstallationID uuid.UUID        `json:"installation_id"`
}

type HealthCheckPayload struct {
	ProviderAppBlockID uuid.UUID `json:"provider_app_block_id"`
}

func NewTouchTask(kind InstallationKind, installationID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(TouchPayload{Kind: kind, InstallationID: installationID})
	if err != nil {
		return nil, fmt.Errorf("fail to marshal touch payload, err: %w", err)
	}
	return asynq.NewTask(TypeInstallationTouch, payload), nil
}

func NewHealthCheckTask(providerID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(HealthCheckPayload{ProviderAppBlockID: providerID})
	if err != nil {
		return nil, fmt.Errorf("fail to marshal health check payload, err: %w", err)
	}
	return asynq.NewTask(TypeProviderHealthCheck, payload), nil
}

// NewHealthSweepTask probes every active provider. The zero provider id
// means "all".
func NewHealthSweepTask() (*asynq.Task, error) {
	return NewHealthCheckTask(uuid.Nil)
}

func NewExpiryTask() *asynq.Task {
	return asynq.NewTask(TypeInstallationExpiry, nil)
}
