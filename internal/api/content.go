package api

import (
	"context"
	"net/url"
)

// CreateArticle starts article generation for a suggestion and returns
// the article id to poll.
func (c *Client) CreateArticle(ctx context.Context, suggestionID string) (string, error) {
	var out struct {
		ArticleID string `json:"article_id"`
		Status    string `json:"status"`
	}
	err := c.postJSON(ctx, "/api/articles", map[string]string{"suggestion_id": suggestionID}, &out)
	if err != nil {
		return "", c.quotaRedirect(err)
	}
	return out.ArticleID, nil
}

// GetArticle fetches an article snapshot.
func (c *Client) GetArticle(ctx context.Context, articleID string) (Article, error) {
	var article Article
	err := c.getJSON(ctx, "/api/articles/"+url.PathEscape(articleID), &article)
	return article, err
}

// UpdateArticle saves edits to an article. The server marks an edited
// article ready regardless of its prior status.
func (c *Client) UpdateArticle(ctx context.Context, articleID string, edit ArticleEdit) (Article, error) {
	var article Article
	err := c.putJSON(ctx, "/api/articles/"+url.PathEscape(articleID), edit, &article)
	return article, err
}

// CreateMeme starts meme generation for a suggestion and returns the
// meme id to poll.
func (c *Client) CreateMeme(ctx context.Context, suggestionID string) (string, error) {
	var out struct {
		MemeID string `json:"meme_id"`
		Status string `json:"status"`
	}
	err := c.postJSON(ctx, "/api/memes", map[string]string{"suggestion_id": suggestionID}, &out)
	if err != nil {
		return "", c.quotaRedirect(err)
	}
	return out.MemeID, nil
}

// GetMeme fetches a meme snapshot.
func (c *Client) GetMeme(ctx context.Context, memeID string) (Meme, error) {
	var meme Meme
	err := c.getJSON(ctx, "/api/memes/"+url.PathEscape(memeID), &meme)
	return meme, err
}

// MemeImage downloads the rendered image. Only available once the meme
// is ready; the server answers 404 otherwise.
func (c *Client) MemeImage(ctx context.Context, memeID string) ([]byte, error) {
	return c.readBytes(ctx, "/api/memes/"+url.PathEscape(memeID)+"/image")
}

// CreateSlop starts video generation for a suggestion and returns the
// slop id to poll.
func (c *Client) CreateSlop(ctx context.Context, suggestionID string) (string, error) {
	var out struct {
		SlopID string `json:"slop_id"`
		Status string `json:"status"`
	}
	err := c.postJSON(ctx, "/api/slops", map[string]string{"suggestion_id": suggestionID}, &out)
	if err != nil {
		return "", c.quotaRedirect(err)
	}
	return out.SlopID, nil
}

// GetSlop fetches a video generation snapshot.
func (c *Client) GetSlop(ctx context.Context, slopID string) (Slop, error) {
	var slop Slop
	err := c.getJSON(ctx, "/api/slops/"+url.PathEscape(slopID), &slop)
	return slop, err
}

// SlopVideo downloads the rendered video. Only available once the slop
// is ready; the server answers 404 otherwise.
func (c *Client) SlopVideo(ctx context.Context, slopID string) ([]byte, error) {
	return c.readBytes(ctx, "/api/slops/"+url.PathEscape(slopID)+"/video")
}
