package service

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vindel10/vindel-api/internal/models"
)

type mediaSigner interface {
	Generate(ref, key string) (string, time.Time, error)
	Parse(token string) (ref, key string, expiresAt time.Time, err error)
}

// MediaLinker turns stored image keys into signed, expiring URLs.
type MediaLinker struct {
	signer  mediaSigner
	baseURL string
	logger  *zap.Logger
}

// NewMediaLinker builds a linker producing URLs of the form baseURL/<token>.
func NewMediaLinker(signer mediaSigner, baseURL string, logger *zap.Logger) *MediaLinker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaLinker{signer: signer, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// URL signs key on behalf of listingID.
func (m *MediaLinker) URL(listingID, key string) (string, time.Time, error) {
	token, expiresAt, err := m.signer.Generate(listingID, key)
	if err != nil {
		return "", time.Time{}, err
	}
	return m.baseURL + "/" + token, expiresAt, nil
}

// Link replaces the image keys of l with signed URLs. Keys that cannot be
// signed are dropped from the response.
func (m *MediaLinker) Link(l *models.Listing) {
	if m == nil || l == nil || len(l.Images) == 0 {
		return
	}
	urls := make([]string, 0, len(l.Images))
	for _, key := range l.Images {
		url, _, err := m.URL(l.ID, key)
		if err != nil {
			m.logger.Warn("sign listing image failed", zap.String("listing_id", l.ID), zap.Error(err))
			continue
		}
		urls = append(urls, url)
	}
	l.Images = urls
}

// Resolve validates a media token and returns the listing id and storage key.
func (m *MediaLinker) Resolve(token string) (listingID, key string, err error) {
	listingID, key, _, err = m.signer.Parse(token)
	return listingID, key, err
}
