package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

type azureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureStore stores uploads as blobs in container, creating the container
// when it does not exist yet. serviceURL may be empty for the public endpoint.
func NewAzureStore(ctx context.Context, accountName, accountKey, container, serviceURL string) (UploadStore, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}

	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", accountName)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("azure client: %w", err)
	}

	if _, err := client.CreateContainer(ctx, container, nil); err != nil &&
		!bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return nil, fmt.Errorf("create container %s: %w", container, err)
	}

	return &azureStore{client: client, container: container}, nil
}

func (s *azureStore) Save(ctx context.Context, name string, data io.Reader) error {
	// UploadStream replaces an existing blob of the same name.
	if _, err := s.client.UploadStream(ctx, s.container, name, data, nil); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	return nil
}

func (s *azureStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	downloadResponse, err := s.client.DownloadStream(ctx, s.container, name, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	return downloadResponse.Body, nil
}

func (s *azureStore) Remove(ctx context.Context, name string) error {
	if _, err := s.client.DeleteBlob(ctx, s.container, name, nil); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

func (s *azureStore) Exists(ctx context.Context, name string) (bool, error) {
	blob := s.client.ServiceClient().NewContainerClient(s.container).NewBlobClient(name)
	if _, err := blob.GetProperties(ctx, nil); err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *azureStore) Location(name string) string {
	return fmt.Sprintf("azblob://%s/%s", s.container, name)
}
