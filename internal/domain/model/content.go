package model

import "time"

// Article is a single markdown document sold (or given away) on its own.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Price     int64     `json:"price"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Content   string    `json:"content,omitempty"` // raw markdown
}

func (a *Article) IsPaid() bool { return a.Price > 0 }

// Chapter belongs to a Book. Free chapters are readable without a purchase.
type Chapter struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Order   int    `json:"order"`
	Free    bool   `json:"free"`
	Content string `json:"content,omitempty"`
}

// Book is a set of ordered chapters sold as one item.
type Book struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Tags         []string  `json:"tags"`
	Price        int64     `json:"price"`
	CoverImage   string    `json:"cover_image"`
	ChapterCount int       `json:"chapter_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Chapters     []Chapter `json:"chapters,omitempty"`
}

func (b *Book) IsPaid() bool { return b.Price > 0 }

// Chapter returns the chapter with the given slug and its index, or -1.
func (b *Book) Chapter(slug string) (*Chapter, int) {
	for i := range b.Chapters {
		if b.Chapters[i].Slug == slug {
			return &b.Chapters[i], i
		}
	}
	return nil, -1
}

// ContentItem is the catalog view used for pricing decisions. Everything but
// Price is display data.
type ContentItem struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Price       int64       `json:"price"`
	ContentType ContentType `json:"content_type"`
}

func (a *Article) Item() ContentItem {
	return ContentItem{ID: a.ID, Title: a.Title, Price: a.Price, ContentType: ContentTypeArticle}
}

func (b *Book) Item() ContentItem {
	return ContentItem{ID: b.ID, Title: b.Title, Price: b.Price, ContentType: ContentTypeBook}
}
