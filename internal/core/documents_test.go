package core

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"trackcore/internal/blob"
	"trackcore/pkg/domain"
)

func newDocumentService(t *testing.T) (*Service, BlobStore) {
	t.Helper()
	blobs := blob.NewMemory()
	svc := newTestService(WithBlobStore(blobs))
	return svc, blobs
}

func seedAsset(t *testing.T, svc *Service) Asset {
	t.Helper()
	loc := mustLocation(t, svc, LocationInput{Name: "Archive", Kind: "room"})
	return mustAsset(t, svc, Asset{Name: "Spectrometer", Type: "instrument", LocationID: loc.ID})
}

func TestAttachAndOpenDocument(t *testing.T) {
	svc, blobs := newDocumentService(t)
	ctx := context.Background()
	asset := seedAsset(t, svc)

	content := "calibration report"
	doc, _, err := svc.AttachDocument(ctx, DocumentInput{
		AssetID:     asset.ID,
		Name:        "calibration.pdf",
		ContentType: "application/pdf",
	}, strings.NewReader(content))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if doc.Size != int64(len(content)) {
		t.Fatalf("expected recorded size %d, got %d", len(content), doc.Size)
	}
	if doc.BlobKey == "" {
		t.Fatalf("expected blob key")
	}

	got, rc, err := svc.OpenDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != content {
		t.Fatalf("content mismatch %q", data)
	}
	if got.Name != "calibration.pdf" {
		t.Fatalf("unexpected metadata %+v", got)
	}

	info, err := blobs.Head(ctx, doc.BlobKey)
	if err != nil {
		t.Fatalf("blob head: %v", err)
	}
	if info.Metadata["filename"] != "calibration.pdf" {
		t.Fatalf("expected filename metadata, got %+v", info.Metadata)
	}
}

func TestAttachDocumentMissingAssetCleansUpBlob(t *testing.T) {
	svc, blobs := newDocumentService(t)
	ctx := context.Background()

	_, _, err := svc.AttachDocument(ctx, DocumentInput{AssetID: "missing", Name: "orphan.txt"}, strings.NewReader("x"))
	if !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	infos, err := blobs.List(ctx, "")
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected orphaned blob removed, got %+v", infos)
	}
}

func TestAttachDocumentRequiresName(t *testing.T) {
	svc, _ := newDocumentService(t)
	_, _, err := svc.AttachDocument(context.Background(), DocumentInput{AssetID: "a"}, strings.NewReader("x"))
	if domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestDocumentOperationsRequireBlobStore(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	if _, _, err := svc.AttachDocument(ctx, DocumentInput{AssetID: "a", Name: "n"}, strings.NewReader("x")); err == nil {
		t.Fatalf("expected configuration error")
	}
	if _, _, err := svc.OpenDocument(ctx, "d"); err == nil {
		t.Fatalf("expected configuration error")
	}
	if _, err := svc.PresignDocumentURL(ctx, "d", 0); err == nil {
		t.Fatalf("expected configuration error")
	}
}

func TestDeleteDocumentRemovesBlob(t *testing.T) {
	svc, blobs := newDocumentService(t)
	ctx := context.Background()
	asset := seedAsset(t, svc)
	doc, _, err := svc.AttachDocument(ctx, DocumentInput{AssetID: asset.ID, Name: "note.txt"}, strings.NewReader("note"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	if _, err := svc.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if docs := svc.ListAssetDocuments(ctx, asset.ID); len(docs) != 0 {
		t.Fatalf("expected no documents, got %+v", docs)
	}
	if _, err := blobs.Head(ctx, doc.BlobKey); err == nil {
		t.Fatalf("expected blob removed")
	}
	if _, err := svc.DeleteDocument(ctx, doc.ID); !domain.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteAssetRemovesDocumentBlobs(t *testing.T) {
	svc, blobs := newDocumentService(t)
	ctx := context.Background()
	asset := seedAsset(t, svc)
	for _, name := range []string{"a.txt", "b.txt"} {
		if _, _, err := svc.AttachDocument(ctx, DocumentInput{AssetID: asset.ID, Name: name}, strings.NewReader(name)); err != nil {
			t.Fatalf("attach %s: %v", name, err)
		}
	}

	if _, err := svc.DeleteAsset(ctx, asset.ID); err != nil {
		t.Fatalf("delete asset: %v", err)
	}
	infos, err := blobs.List(ctx, "")
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(infos) != 0 {
		t.Fatalf("expected all blobs cleaned up, got %+v", infos)
	}
}

func TestPresignDocumentURLUnsupportedDriver(t *testing.T) {
	svc, _ := newDocumentService(t)
	ctx := context.Background()
	asset := seedAsset(t, svc)
	doc, _, err := svc.AttachDocument(ctx, DocumentInput{AssetID: asset.ID, Name: "m.txt"}, strings.NewReader("m"))
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, err := svc.PresignDocumentURL(ctx, doc.ID, 0); !errors.Is(err, blob.ErrUnsupported) {
		t.Fatalf("memory driver must report unsupported, got %v", err)
	}
}
