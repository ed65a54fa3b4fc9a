package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"content-marketplace/internal/config"
	"content-marketplace/internal/domain"
	"content-marketplace/internal/domain/model"
	"content-marketplace/internal/domain/ports/adapter"
)

const (
	articlesDir = "articles"
	booksDir    = "books"

	defaultArticleTitle = "Untitled"
	defaultEmoji        = "📝"

	// fetchConcurrency bounds parallel raw fetches per listing.
	fetchConcurrency = 8
)

// Compile-time check
var _ adapter.ContentCatalog = (*GitHubCatalog)(nil)

// GitHubCatalog reads articles and books from a GitHub repository through the
// contents API (listings) and the raw host (file bodies).
type GitHubCatalog struct {
	client  *http.Client
	apiBase string
	rawBase string
	owner   string
	repo    string
	branch  string
	token   string
	now     func() time.Time
}

func NewGitHubCatalog(cfg config.CatalogConfig) *GitHubCatalog {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GitHubCatalog{
		client:  &http.Client{Timeout: timeout},
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		rawBase: strings.TrimRight(cfg.RawBase, "/"),
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		branch:  cfg.Branch,
		token:   cfg.Token,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// entry is one element of a contents API directory listing.
type entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"` // file|dir
}

type articleMatter struct {
	Title       string   `yaml:"title"`
	Topics      []string `yaml:"topics"`
	Price       int64    `yaml:"price"`
	Emoji       string   `yaml:"emoji"`
	PublishedAt string   `yaml:"published_at"`
	UpdatedAt   string   `yaml:"updated_at"`
}

type chapterMatter struct {
	Title string `yaml:"title"`
	Free  bool   `yaml:"free"`
}

type bookConfig struct {
	Title       string   `yaml:"title"`
	Summary     string   `yaml:"summary"`
	Topics      []string `yaml:"topics"`
	Price       int64    `yaml:"price"`
	PublishedAt string   `yaml:"published_at"`
	UpdatedAt   string   `yaml:"updated_at"`
}

func (c *GitHubCatalog) ListArticles(ctx context.Context) ([]*model.Article, error) {
	entries, err := c.listDir(ctx, articlesDir)
	if err != nil {
		return nil, err
	}
	files := markdownFiles(entries)

	out := make([]*model.Article, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			a, err := c.fetchArticle(gctx, strings.TrimSuffix(f.Name, ".md"))
			if err != nil {
				return err
			}
			a.Content = ""
			out[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *GitHubCatalog) GetArticle(ctx context.Context, id string) (*model.Article, error) {
	if !validSlug(id) {
		return nil, domain.ErrContentNotFound
	}
	return c.fetchArticle(ctx, id)
}

func (c *GitHubCatalog) fetchArticle(ctx context.Context, id string) (*model.Article, error) {
	raw, err := c.fetchRaw(ctx, articlesDir+"/"+id+".md")
	if err != nil {
		return nil, err
	}
	var fm articleMatter
	body, err := parseFrontMatter(raw, &fm)
	if err != nil {
		return nil, fmt.Errorf("%w: article %s: %v", domain.ErrCatalogUnavailable, id, err)
	}

	a := &model.Article{
		ID:      id,
		Title:   orDefault(fm.Title, defaultArticleTitle),
		Tags:    nonNil(fm.Topics),
		Price:   max(fm.Price, 0),
		Emoji:   orDefault(fm.Emoji, defaultEmoji),
		Content: body,
	}
	a.CreatedAt, a.UpdatedAt = c.timestamps(fm.PublishedAt, fm.UpdatedAt)
	return a, nil
}

func (c *GitHubCatalog) ListBooks(ctx context.Context) ([]*model.Book, error) {
	entries, err := c.listDir(ctx, booksDir)
	if err != nil {
		return nil, err
	}
	var dirs []entry
	for _, e := range entries {
		if e.Type == "dir" && !strings.HasPrefix(e.Name, ".") {
			dirs = append(dirs, e)
		}
	}

	out := make([]*model.Book, len(dirs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, d := range dirs {
		i, d := i, d
		g.Go(func() error {
			b, err := c.fetchBookMeta(gctx, d.Name)
			if errors.Is(err, domain.ErrContentNotFound) {
				// a directory without config.yaml is not a book
				return nil
			}
			if err != nil {
				return err
			}
			out[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	books := out[:0]
	for _, b := range out {
		if b != nil {
			books = append(books, b)
		}
	}
	return books, nil
}

// GetBook returns the book with every chapter body. A book without chapters
// does not exist.
func (c *GitHubCatalog) GetBook(ctx context.Context, id string) (*model.Book, error) {
	if !validSlug(id) {
		return nil, domain.ErrContentNotFound
	}
	b, files, err := c.bookWithChapterFiles(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrContentNotFound
	}

	chapters := make([]model.Chapter, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			raw, err := c.fetchRaw(gctx, booksDir+"/"+id+"/"+f.Name)
			if err != nil {
				return err
			}
			var fm chapterMatter
			body, err := parseFrontMatter(raw, &fm)
			if err != nil {
				return fmt.Errorf("%w: chapter %s/%s: %v", domain.ErrCatalogUnavailable, id, f.Name, err)
			}
			chapters[i] = model.Chapter{
				Slug:    strings.TrimSuffix(f.Name, ".md"),
				Title:   orDefault(fm.Title, "Chapter "+strconv.Itoa(i+1)),
				Order:   i,
				Free:    fm.Free,
				Content: body,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	b.Chapters = chapters
	return b, nil
}

// Lookup resolves the pricing view of an item without fetching chapter bodies.
func (c *GitHubCatalog) Lookup(ctx context.Context, contentType model.ContentType, id string) (*model.ContentItem, error) {
	if !validSlug(id) {
		return nil, domain.ErrContentNotFound
	}
	switch contentType {
	case model.ContentTypeArticle:
		a, err := c.fetchArticle(ctx, id)
		if err != nil {
			return nil, err
		}
		item := a.Item()
		return &item, nil
	case model.ContentTypeBook:
		b, err := c.fetchBookMeta(ctx, id)
		if err != nil {
			return nil, err
		}
		item := b.Item()
		return &item, nil
	default:
		return nil, fmt.Errorf("%w: content type %q", domain.ErrInvalidRequest, contentType)
	}
}

func (c *GitHubCatalog) fetchBookMeta(ctx context.Context, slug string) (*model.Book, error) {
	b, _, err := c.bookWithChapterFiles(ctx, slug)
	return b, err
}

func (c *GitHubCatalog) bookWithChapterFiles(ctx context.Context, slug string) (*model.Book, []entry, error) {
	raw, err := c.fetchRaw(ctx, booksDir+"/"+slug+"/config.yaml")
	if err != nil {
		return nil, nil, err
	}
	var cfg bookConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, nil, fmt.Errorf("%w: book %s config: %v", domain.ErrCatalogUnavailable, slug, err)
	}

	entries, err := c.listDir(ctx, booksDir+"/"+slug)
	if err != nil {
		return nil, nil, err
	}
	files := markdownFiles(entries)
	sortChapters(files)

	b := &model.Book{
		ID:           slug,
		Title:        orDefault(cfg.Title, slug),
		Description:  cfg.Summary,
		Tags:         nonNil(cfg.Topics),
		Price:        max(cfg.Price, 0),
		CoverImage:   c.rawURL(booksDir + "/" + slug + "/cover.png"),
		ChapterCount: len(files),
	}
	b.CreatedAt, b.UpdatedAt = c.timestamps(cfg.PublishedAt, cfg.UpdatedAt)
	return b, files, nil
}

func (c *GitHubCatalog) listDir(ctx context.Context, path string) ([]entry, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", c.apiBase, c.owner, c.repo, path, c.branch)
	b, err := c.get(ctx, u, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	var entries []entry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("%w: decode listing %s: %v", domain.ErrCatalogUnavailable, path, err)
	}
	return entries, nil
}

func (c *GitHubCatalog) fetchRaw(ctx context.Context, path string) ([]byte, error) {
	return c.get(ctx, c.rawURL(path), "")
}

func (c *GitHubCatalog) rawURL(path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", c.rawBase, c.owner, c.repo, c.branch, path)
}

func (c *GitHubCatalog) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrContentNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: github status %d", domain.ErrCatalogUnavailable, resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrCatalogUnavailable, err)
	}
	return b, nil
}

// timestamps applies the fallback chain published_at -> now and
// updated_at -> published_at -> now.
func (c *GitHubCatalog) timestamps(published, updated string) (time.Time, time.Time) {
	now := c.now()
	created, ok := parseTime(published)
	if !ok {
		created = now
	}
	mod, ok := parseTime(updated)
	if !ok {
		mod = created
	}
	return created, mod
}

var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"}

func parseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func markdownFiles(entries []entry) []entry {
	var out []entry
	for _, e := range entries {
		if e.Type == "file" && strings.HasSuffix(e.Name, ".md") && !strings.HasPrefix(e.Name, ".") {
			out = append(out, e)
		}
	}
	return out
}

// sortChapters orders by the numeric prefix before the first dot ("2.setup.md").
// Names without one sort as 0. The sort is stable so ties keep listing order.
func sortChapters(files []entry) {
	sort.SliceStable(files, func(i, j int) bool {
		return chapterNumber(files[i].Name) < chapterNumber(files[j].Name)
	})
}

func chapterNumber(name string) int {
	head, _, _ := strings.Cut(name, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}

// validSlug keeps ids from escaping their directory.
func validSlug(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/\\?#") && !strings.HasPrefix(id, ".")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
