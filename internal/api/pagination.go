package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/meetup/internal/apperr"
)

// PageBody is a page of results with absolute links to its neighbours.
type PageBody[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// ParsePage reads the 1-based "page" query parameter. A missing parameter
// means the first page.
func ParsePage(c *gin.Context) (int, error) {
	raw, ok := c.GetQuery("page")
	if !ok || raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, apperr.ErrInvalidPage
	}
	return page, nil
}

// ParsePageSize reads the optional "page_size" query parameter. Missing or
// malformed values select def and larger values are capped at max.
func ParsePageSize(c *gin.Context, def, max int) int {
	size, err := strconv.Atoi(c.Query("page_size"))
	switch {
	case err != nil || size < 1:
		return def
	case size > max:
		return max
	}
	return size
}

// NewPageBody builds the response body for page out of count results split
// into pages of pageSize.
func NewPageBody[T any](c *gin.Context, count int64, page, pageSize int, results []T) PageBody[T] {
	if results == nil {
		results = []T{}
	}
	body := PageBody[T]{Count: count, Results: results}

	if int64(page)*int64(pageSize) < count {
		next := pageURL(c.Request, page+1)
		body.Next = &next
	}
	if page > 1 {
		prev := pageURL(c.Request, page-1)
		body.Previous = &prev
	}
	return body
}

// pageURL rebuilds the request URL with page replaced. The first page is
// linked without a page parameter.
func pageURL(r *http.Request, page int) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	q := r.URL.Query()
	if page == 1 {
		q.Del("page")
	} else {
		q.Set("page", strconv.Itoa(page))
	}

	u := *r.URL
	u.Scheme = scheme
	u.Host = r.Host
	u.RawQuery = q.Encode()
	return u.String()
}
