package syncer

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks ContactAPI,Directory

import (
	"context"
	"time"

	"contactsync/internal/contacts/client"
	"contactsync/internal/contacts/models"
	"contactsync/internal/directory"
	"contactsync/internal/orchestration"
)

// ContactAPI is the contact directory as seen by the orchestrator.
type ContactAPI interface {
	Fetch(ctx context.Context, req client.FetchRequest) (*models.ContactIndex, orchestration.Trail, error)
	Upsert(ctx context.Context, p models.ContactPayload) (*models.Contact, orchestration.Trail, error)
	GroupUUID(ctx context.Context, name string) (string, orchestration.Trail, error)
}

// Directory is the provider directory as seen by the orchestrator.
type Directory interface {
	FetchProviders(ctx context.Context, lastSync time.Time, reset bool) ([]byte, orchestration.Trail, error)
	LoadProviders(ctx context.Context, providers [][]byte) (orchestration.Trail, error)
}

var (
	_ ContactAPI = (*client.Client)(nil)
	_ Directory  = (*directory.Client)(nil)
)
