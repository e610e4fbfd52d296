package port

import (
	"context"

	"github.com/MangoByte1987/MatchingEngine/internal/domain"
)

type Cache interface {
	SetBook(ctx context.Context, symbol string, snap *domain.BookSnapshot) error
	GetBook(ctx context.Context, symbol string) (*domain.BookSnapshot, error)
	Invalidate(ctx context.Context, symbol string) error
}
