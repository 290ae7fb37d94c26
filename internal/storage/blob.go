package storage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"

	"github.com/zasa-35/oura-visualizer/internal/config"
	"github.com/zasa-35/oura-visualizer/internal/models"
)

// blobUploader is the part of *azblob.Client the store uses.
type blobUploader interface {
	UploadBuffer(ctx context.Context, containerName, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// BlobStore writes each snapshot as its own JSON blob. Uploads are
// conditional on the blob not existing, so nothing is ever overwritten.
type BlobStore struct {
	client    blobUploader
	container string
	prefix    string
	now       func() time.Time
}

// NewBlobStore connects with a connection string when one is configured,
// otherwise with a shared key.
func NewBlobStore(cfg config.AzureBlobConfig) (*BlobStore, error) {
	var (
		client *azblob.Client
		err    error
	)
	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, fmt.Errorf("creating shared key credential: %w", err)
		}
		serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
		client, err = azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("creating blob client: %w", err)
	}
	return newBlobStore(client, cfg.Container, cfg.Prefix), nil
}

func newBlobStore(client blobUploader, container, prefix string) *BlobStore {
	if prefix == "" {
		prefix = "snapshots"
	}
	return &BlobStore{client: client, container: container, prefix: prefix, now: time.Now}
}

// blobName is <prefix>/<start>_<end>/<id>.json.
func (s *BlobStore) blobName(snap models.Snapshot, id string) string {
	return path.Join(s.prefix, snap.Start+"_"+snap.End, id+".json")
}

// Save uploads the payload. created_at is the service's Last-Modified.
func (s *BlobStore) Save(ctx context.Context, snap models.Snapshot) (*models.SavedSnapshot, error) {
	if err := validate(snap); err != nil {
		return nil, err
	}
	saved := &models.SavedSnapshot{ID: newID(), Start: snap.Start, End: snap.End}
	name := s.blobName(snap, saved.ID)

	resp, err := s.client.UploadBuffer(ctx, s.container, name, snap.Payload, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: to.Ptr("application/json")},
		Metadata: map[string]*string{
			"rangestart": to.Ptr(snap.Start),
			"rangeend":   to.Ptr(snap.End),
		},
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: to.Ptr(azcore.ETagAny)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("uploading snapshot blob %s: %w", name, err)
	}
	if resp.LastModified != nil {
		saved.CreatedAt = resp.LastModified.UTC()
	} else {
		saved.CreatedAt = s.now().UTC()
	}
	return saved, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (s *BlobStore) Close() error {
	return nil
}
