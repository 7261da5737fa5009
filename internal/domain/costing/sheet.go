package costing

import (
	"github.com/google/uuid"

	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// Sheet is the line-item section of a document: its ordered lines and the
// totals derived from them. Documents embed it and guard mutations with
// their own status rules.
type Sheet struct {
	Items  []LineItem
	Totals Totals
}

// NewSheet returns an empty sheet with zero totals.
func NewSheet() Sheet {
	return Sheet{Items: make([]LineItem, 0), Totals: Sum(nil)}
}

// AddLine appends a new line and recalculates the totals.
func (s *Sheet) AddLine(documentID uuid.UUID, raw RawLine, scale int32) (*LineItem, error) {
	item, err := NewLineItem(documentID, len(s.Items)+1, raw, scale)
	if err != nil {
		return nil, err
	}
	s.Items = append(s.Items, *item)
	s.Recalculate(scale)
	if err := s.checkTotals(); err != nil {
		s.Items = s.Items[:len(s.Items)-1]
		s.Recalculate(scale)
		return nil, err
	}
	return &s.Items[len(s.Items)-1], nil
}

// UpdateLine replaces the inputs of an existing line.
func (s *Sheet) UpdateLine(itemID uuid.UUID, raw RawLine, scale int32) (*LineItem, error) {
	idx := s.indexOf(itemID)
	if idx < 0 {
		return nil, shared.ErrNotFound.WithDetail("item_id", itemID.String())
	}
	previous := s.Items[idx]
	if err := s.Items[idx].Update(raw, scale); err != nil {
		return nil, err
	}
	s.Recalculate(scale)
	if err := s.checkTotals(); err != nil {
		s.Items[idx] = previous
		s.Recalculate(scale)
		return nil, err
	}
	return &s.Items[idx], nil
}

// RemoveLine deletes a line and renumbers the remaining ones.
func (s *Sheet) RemoveLine(itemID uuid.UUID, scale int32) error {
	idx := s.indexOf(itemID)
	if idx < 0 {
		return shared.ErrNotFound.WithDetail("item_id", itemID.String())
	}
	s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
	for i := range s.Items {
		s.Items[i].Position = i + 1
	}
	s.Recalculate(scale)
	return nil
}

// Recalculate re-derives every line and the document totals.
func (s *Sheet) Recalculate(scale int32) {
	s.Totals = Summarize(s.Items, scale)
}

// ItemCount returns the number of lines.
func (s *Sheet) ItemCount() int {
	return len(s.Items)
}

// Item returns the line with the given id.
func (s *Sheet) Item(itemID uuid.UUID) (*LineItem, bool) {
	idx := s.indexOf(itemID)
	if idx < 0 {
		return nil, false
	}
	return &s.Items[idx], true
}

func (s *Sheet) checkTotals() error {
	if !valueobject.FitsStorage(s.Totals.Subtotal) || !valueobject.FitsStorage(s.Totals.Total) {
		return outOfRange("DOCUMENT_TOO_LARGE", "Document total")
	}
	return nil
}

func (s *Sheet) indexOf(itemID uuid.UUID) int {
	for i := range s.Items {
		if s.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}
