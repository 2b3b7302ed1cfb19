package api

import (
	"strconv"

	"github.com/contentanonymity/backend/internal/cli/client"
	json "github.com/json-iterator/go"
)

// ListArticles returns one page of published articles
func ListArticles(q ArticleQuery) (*Page[Article], error) {
	req := client.GetClient().R()
	params := map[string]string{
		"category": q.Category,
		"tag":      q.Tag,
		"q":        q.Query,
		"sort":     q.Sort,
	}
	for k, v := range params {
		if v != "" {
			req.SetQueryParam(k, v)
		}
	}
	if q.Limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		req.SetQueryParam("offset", strconv.Itoa(q.Offset))
	}

	resp, err := req.Get("/api/v1/articles")
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var page Page[Article]
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Leaderboard returns the top members by points
func Leaderboard(limit int) ([]LeaderboardEntry, error) {
	req := client.GetClient().R()
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	resp, err := req.Get("/api/v1/gamification/leaderboard")
	if err := client.CheckResponse(resp, err); err != nil {
		return nil, err
	}
	var out struct {
		Items []LeaderboardEntry `json:"items"`
	}
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}
