// Package content covers the two managed content types, news articles and
// blog posts. Both share one record shape and the create-or-update editor
// flow; the body is an opaque HTML string produced by the rich-text widget.
package content

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ctrlcompliance/admin-console/console"
)

const (
	NewsPath  = "/admin/news"
	BlogsPath = "/admin/blogs"
)

// Post is one news article or blog post as served by the admin content
// endpoints.
type Post struct {
	ID        string     `json:"_id,omitempty"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Excerpt   string     `json:"excerpt,omitempty"`
	Body      string     `json:"body,omitempty"` // opaque HTML
	Published bool       `json:"published"`
	CreatedAt time.Time  `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// News describes the news-article console.
func News() console.Resource[Post] {
	return resource("news", NewsPath)
}

// Blogs describes the blog-post console.
func Blogs() console.Resource[Post] {
	return resource("blogs", BlogsPath)
}

func resource(name, path string) console.Resource[Post] {
	return console.Resource[Post]{
		Name:        name,
		Path:        path,
		StatusParam: "published",
		ID:          func(p Post) string { return p.ID },
		Columns:     []string{"_id", "createdAt", "title", "slug", "published", "excerpt"},
		Row: func(p Post) []string {
			return []string{
				p.ID,
				p.CreatedAt.UTC().Format(time.RFC3339),
				p.Title,
				p.Slug,
				strconv.FormatBool(p.Published),
				p.Excerpt,
			}
		},
	}
}

type publishedPatch struct {
	Published bool `json:"published"`
}

// SetPublished publishes or unpublishes a post.
func SetPublished(published bool) console.Mutation {
	name := "unpublish"
	if published {
		name = "publish"
	}
	return console.Mutation{Name: name, Method: http.MethodPatch, Body: publishedPatch{Published: published}}
}

// Delete removes a post.
func Delete() console.Mutation {
	return console.Mutation{Name: "delete", Method: http.MethodDelete}
}
