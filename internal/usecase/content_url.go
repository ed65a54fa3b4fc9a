package usecase

import "content-marketplace/internal/domain/model"

// SignInPath is where unauthenticated readers are sent.
const SignInPath = "/api/auth/signin"

// ContentURL is the canonical reader URL for a piece of content.
func ContentURL(baseURL string, t model.ContentType, id string) string {
	if t == model.ContentTypeBook {
		return baseURL + "/books/" + id
	}
	return baseURL + "/posts/" + id
}

// DenialRedirect is where a reader without a purchase lands: the book's
// overview page, or the article list for articles.
func DenialRedirect(baseURL string, t model.ContentType, id string) string {
	if t == model.ContentTypeBook {
		return baseURL + "/books/" + id
	}
	return baseURL + "/#articles"
}
