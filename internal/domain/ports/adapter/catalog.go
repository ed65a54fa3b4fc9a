package adapter

import (
	"context"

	"content-marketplace/internal/domain/model"
)

// ContentCatalog is the read side of the remote content repository.
// Unknown ids return domain.ErrContentNotFound.
type ContentCatalog interface {
	ListArticles(ctx context.Context) ([]*model.Article, error)
	ListBooks(ctx context.Context) ([]*model.Book, error)
	GetArticle(ctx context.Context, id string) (*model.Article, error)
	GetBook(ctx context.Context, id string) (*model.Book, error)
	Lookup(ctx context.Context, contentType model.ContentType, id string) (*model.ContentItem, error)
}
