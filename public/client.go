// Package public reads published site content and submits blog comments
// anonymously. No session, CSRF token or admin state is involved.
package public

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/ctrlcompliance/admin-console/api"
	"github.com/ctrlcompliance/admin-console/comments"
	"github.com/ctrlcompliance/admin-console/content"
)

// Client wraps the API client for the anonymous endpoints.
type Client struct {
	api *api.Client
}

// New creates a public-content client sharing the given API client.
func New(apiClient *api.Client) (*Client, error) {
	if apiClient == nil {
		return nil, errors.New("[public.New] api client is required")
	}
	return &Client{api: apiClient}, nil
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// News lists published news articles.
func (c *Client) News(ctx context.Context, page, limit int) ([]content.Post, int, error) {
	return c.listPosts(ctx, "/news", page, limit)
}

// Blogs lists published blog posts.
func (c *Client) Blogs(ctx context.Context, page, limit int) ([]content.Post, int, error) {
	return c.listPosts(ctx, "/blogs", page, limit)
}

func (c *Client) listPosts(ctx context.Context, path string, page, limit int) ([]content.Post, int, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	var res listResponse[content.Post]
	if err := c.api.Get(ctx, path, query, &res); err != nil {
		return nil, 0, errors.Wrapf(err, "[Client.listPosts] GET %s", path)
	}
	return res.Items, res.Total, nil
}

// Blog fetches one published blog post by slug.
func (c *Client) Blog(ctx context.Context, slug string) (*content.Post, error) {
	var post content.Post
	if err := c.api.Get(ctx, "/blogs/"+url.PathEscape(slug), nil, &post); err != nil {
		return nil, errors.Wrap(err, "[Client.Blog] GET")
	}
	return &post, nil
}

// Comments lists the approved comments on one blog post.
func (c *Client) Comments(ctx context.Context, slug string) ([]comments.Comment, error) {
	var res listResponse[comments.Comment]
	if err := c.api.Get(ctx, "/blogs/"+url.PathEscape(slug)+"/comments", nil, &res); err != nil {
		return nil, errors.Wrap(err, "[Client.Comments] GET")
	}
	return res.Items, nil
}

// commentSubmission carries the honeypot field. Real visitors leave Website
// empty; bots that fill it are discarded server-side.
type commentSubmission struct {
	Name    string `json:"name"`
	Comment string `json:"comment"`
	Website string `json:"website"`
}

// SubmitComment posts a visitor comment on a blog post. It goes through
// moderation before appearing publicly.
func (c *Client) SubmitComment(ctx context.Context, slug, name, comment string) error {
	body := commentSubmission{Name: name, Comment: comment}
	if err := c.api.Submit(ctx, "/blogs/"+url.PathEscape(slug)+"/comments", body, nil); err != nil {
		return errors.Wrap(err, "[Client.SubmitComment] POST")
	}
	return nil
}
