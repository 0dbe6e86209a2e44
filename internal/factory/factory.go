package factory

import (
	"context"
	"fmt"

	"github.com/anime-shed/misinfo-inspector-go/internal/config"
	"github.com/anime-shed/misinfo-inspector-go/internal/storage"
)

// StorageType represents different types of upload storage backends
type StorageType string

const (
	// LocalStorage keeps uploads in a directory on the local file system
	LocalStorage StorageType = config.BackendLocal
	// AzureStorage keeps uploads in an Azure blob container
	AzureStorage StorageType = config.BackendAzure
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(ctx context.Context, storageType StorageType) (storage.UploadStore, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	upload config.UploadConfig
	azure  config.AzureConfig
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{upload: cfg.Upload, azure: cfg.Azure}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(ctx context.Context, storageType StorageType) (storage.UploadStore, error) {
	switch storageType {
	case LocalStorage:
		return storage.NewLocalStore(f.upload.Dir)
	case AzureStorage:
		return storage.NewAzureStore(ctx, f.azure.AccountName, f.azure.AccountKey, f.azure.Container, f.azure.ServiceURL)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}
