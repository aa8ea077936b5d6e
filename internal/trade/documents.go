// Package trade covers the trade-member surfaces that sit outside
// ordering: document storage with presigned downloads.
package trade

import (
	"context"
	"io"
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dukerupert/terrazzo/internal/domain"
	"github.com/dukerupert/terrazzo/internal/postgres"
	"github.com/dukerupert/terrazzo/internal/storage"
)

type DocumentService struct {
	store  *postgres.Store
	docs   storage.DocumentStore
	logger zerolog.Logger
}

func NewDocumentService(store *postgres.Store, docs storage.DocumentStore, logger zerolog.Logger) *DocumentService {
	return &DocumentService{
		store:  store,
		docs:   docs,
		logger: logger.With().Str("component", "trade.documents").Logger(),
	}
}

// Upload stores the file in the bucket and records its metadata.
func (s *DocumentService) Upload(ctx context.Context, tradeID uuid.UUID, name, contentType string, size int64, content io.Reader, actor string) (*domain.TradeDocument, error) {
	const op = "trade.document.upload"
	if name == "" {
		return nil, domain.Invalid(op, "a document name is required")
	}
	if _, err := s.store.GetTradeCustomer(ctx, tradeID); err != nil {
		return nil, err
	}
	d := &domain.TradeDocument{
		ID:              uuid.New(),
		TradeCustomerID: tradeID,
		Name:            name,
		ContentType:     contentType,
		SizeBytes:       size,
		UploadedBy:      actor,
	}
	d.ObjectKey = path.Join("trade-documents", tradeID.String(), d.ID.String()+"-"+name)
	if err := s.docs.Put(ctx, d.ObjectKey, content, contentType); err != nil {
		return nil, domain.Upstream(err, op, "document upload failed")
	}
	if err := s.store.InsertTradeDocument(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("trade", tradeID.String()).Str("doc", d.Name).Msg("trade document uploaded")
	return d, nil
}

// List returns a member's document metadata.
func (s *DocumentService) List(ctx context.Context, tradeID uuid.UUID) ([]domain.TradeDocument, error) {
	return s.store.ListTradeDocuments(ctx, tradeID)
}

// DownloadURL returns a presigned link for one document. The caller
// must already be authorized for the owning trade account.
func (s *DocumentService) DownloadURL(ctx context.Context, tradeID, docID uuid.UUID) (string, error) {
	const op = "trade.document.download"
	d, err := s.store.GetTradeDocument(ctx, docID)
	if err != nil {
		return "", err
	}
	if d.TradeCustomerID != tradeID {
		return "", domain.NotFound(op, "trade document")
	}
	url, err := s.docs.PresignGet(ctx, d.ObjectKey)
	if err != nil {
		return "", domain.Upstream(err, op, "failed to presign download")
	}
	return url, nil
}
