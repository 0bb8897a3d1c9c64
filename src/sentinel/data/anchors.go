package data

import (
	"errors"

	"github.com/stake-plus/sentinel/src/sentinel/types"
	"gorm.io/gorm"
)

// AnchorStore is the durable slot -> message mapping behind the panel
// reconciler. Implemented on MySQL; tests substitute an in-memory fake.
type AnchorStore interface {
	GetAnchor(slot string) (*types.Anchor, error)
	PutAnchor(anchor *types.Anchor) error
}

type gormAnchorStore struct {
	db *gorm.DB
}

func NewAnchorStore(db *gorm.DB) AnchorStore {
	return &gormAnchorStore{db: db}
}

// GetAnchor returns nil without error when no record exists for the slot.
func (s *gormAnchorStore) GetAnchor(slot string) (*types.Anchor, error) {
	var anchor types.Anchor
	err := s.db.First(&anchor, "slot = ?", slot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &anchor, nil
}

func (s *gormAnchorStore) PutAnchor(anchor *types.Anchor) error {
	return s.db.Save(anchor).Error
}
