package interfaces

import (
	"context"
	"time"

	"regime-engine/internal/news"
	"regime-engine/internal/types"
)

type NewsSignals interface {
	Enrich(ctx context.Context, symbol string, items []types.NewsItem, now time.Time) []types.NewsItem
	Resolve(ctx context.Context, symbol string, items []types.NewsItem, now time.Time) *news.Resolved
}
