package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"trackcore/internal/blob"
	"trackcore/pkg/domain"
)

// BlobStore aliases the blob backend contract used for document contents.
type BlobStore = blob.Store

// DocumentInput carries caller-supplied fields for attaching a document.
type DocumentInput struct {
	AssetID      string
	Name         string
	ContentType  string
	UploadedByID *string
}

func (s *Service) requireBlobs() error {
	if s.blobs == nil {
		return fmt.Errorf("blob store not configured")
	}
	return nil
}

// AttachDocument streams the file into the blob store and records document
// metadata for the asset. The blob write happens first; if the metadata
// transaction fails the orphaned blob is removed.
func (s *Service) AttachDocument(ctx context.Context, input DocumentInput, r io.Reader) (Document, Result, error) {
	if err := s.requireBlobs(); err != nil {
		return Document{}, Result{}, err
	}
	if input.Name == "" {
		return Document{}, Result{}, domain.InvalidInput("", "document name is required")
	}

	key := fmt.Sprintf("assets/%s/%s", input.AssetID, uuid.NewString())
	info, err := s.blobs.Put(ctx, key, r, blob.PutOptions{
		ContentType: input.ContentType,
		Metadata:    map[string]string{"filename": input.Name},
	})
	if err != nil {
		return Document{}, Result{}, err
	}

	var created Document
	res, err := s.run(ctx, "attach_document", &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateDocument(Document{
			AssetID:      input.AssetID,
			Name:         input.Name,
			ContentType:  input.ContentType,
			BlobKey:      key,
			Size:         info.Size,
			UploadedByID: input.UploadedByID,
		})
		return err
	})
	if err != nil {
		s.removeBlobs(ctx, []string{key})
		return Document{}, res, err
	}
	return created, res, nil
}

// OpenDocument returns document metadata and a reader over its contents.
// The caller owns closing the reader.
func (s *Service) OpenDocument(ctx context.Context, id string) (Document, io.ReadCloser, error) {
	if err := s.requireBlobs(); err != nil {
		return Document{}, nil, err
	}
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	_, rc, err := s.blobs.Get(ctx, doc.BlobKey)
	if err != nil {
		return Document{}, nil, err
	}
	return doc, rc, nil
}

// PresignDocumentURL returns a time-limited download URL for a document.
// Drivers without pre-signing report blob.ErrUnsupported.
func (s *Service) PresignDocumentURL(ctx context.Context, id string, expiry time.Duration) (string, error) {
	if err := s.requireBlobs(); err != nil {
		return "", err
	}
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignURL(ctx, doc.BlobKey, blob.SignedURLOptions{Expiry: expiry})
}

// ListAssetDocuments returns the document metadata attached to an asset.
func (s *Service) ListAssetDocuments(_ context.Context, assetID string) []Document {
	var out []Document
	for _, doc := range s.store.ListDocuments() {
		if doc.AssetID == assetID {
			out = append(out, doc)
		}
	}
	return out
}

// DeleteDocument removes document metadata, then cleans up the blob after
// commit.
func (s *Service) DeleteDocument(ctx context.Context, id string) (Result, error) {
	var blobKey string
	res, err := s.run(ctx, "delete_document", &id, func(tx Transaction) error {
		doc, ok := tx.FindDocument(id)
		if !ok {
			return domain.NotFound(domain.EntityDocument, id)
		}
		blobKey = doc.BlobKey
		return tx.DeleteDocument(id)
	})
	if err != nil {
		return res, err
	}
	if s.blobs != nil {
		s.removeBlobs(ctx, []string{blobKey})
	}
	return res, nil
}

func (s *Service) findDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	found := false
	err := s.store.View(ctx, func(view TransactionView) error {
		for _, d := range view.ListDocuments() {
			if d.ID == id {
				doc = d
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return Document{}, err
	}
	if !found {
		return Document{}, domain.NotFound(domain.EntityDocument, id)
	}
	return doc, nil
}

// removeBlobs deletes blob contents best effort; metadata is already gone,
// so failures only leak storage and are logged.
func (s *Service) removeBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if _, err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("blob cleanup failed", "key", key, "error", err)
		}
	}
}
