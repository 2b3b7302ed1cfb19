package handlers

import (
	"net/http"

	"github.com/contentanonymity/backend/internal/models"
)

func (s *HandlersSuite) createArticle(token string, body map[string]interface{}) map[string]interface{} {
	resp := s.requireStatus(s.do(http.MethodPost, "/api/v1/editor/articles", token, body), http.StatusCreated)
	return resp["article"].(map[string]interface{})
}

func (s *HandlersSuite) TestArticleLifecycle() {
	_, editor := s.createUser("editor", models.RoleEditor)

	article := s.createArticle(editor, map[string]interface{}{
		"title":     "Faceless Channel Basics",
		"body":      "Start with a niche you can sustain.",
		"category":  "youtube",
		"tags":      []string{"YouTube", "Basics"},
		"published": true,
	})
	s.Equal("faceless-channel-basics", article["slug"])
	s.Equal(true, article["published"])
	s.NotEmpty(article["published_at"])
	s.Equal(float64(1), article["reading_minutes"])
	s.NotEmpty(article["cover_image_url"])
	id := article["id"].(string)

	// same slug again
	w := s.do(http.MethodPost, "/api/v1/editor/articles", editor, map[string]interface{}{"title": "Faceless Channel Basics"})
	body := s.requireStatus(w, http.StatusConflict)
	s.Equal("CONFLICT", body["code"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/articles/faceless-channel-basics", "", nil), http.StatusOK)
	s.Equal(id, body["article"].(map[string]interface{})["id"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/articles/by-id/"+id, "", nil), http.StatusOK)
	s.Equal("Faceless Channel Basics", body["article"].(map[string]interface{})["title"])

	w = s.do(http.MethodPatch, "/api/v1/editor/articles/"+id, editor, map[string]interface{}{"title": "Faceless Channel Fundamentals"})
	body = s.requireStatus(w, http.StatusOK)
	updated := body["article"].(map[string]interface{})
	s.Equal("Faceless Channel Fundamentals", updated["title"])
	s.Equal("faceless-channel-basics", updated["slug"], "the slug survives a title change")

	body = s.requireStatus(s.do(http.MethodDelete, "/api/v1/editor/articles/"+id, editor, nil), http.StatusOK)
	s.Equal(true, body["deleted"])

	w = s.do(http.MethodGet, "/api/v1/articles/faceless-channel-basics", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersSuite) TestMembersCannotEditCatalog() {
	_, member := s.createUser("member", models.RoleMember)

	w := s.do(http.MethodPost, "/api/v1/editor/articles", member, map[string]interface{}{"title": "Nope"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/api/v1/editor/articles", "", map[string]interface{}{"title": "Nope"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersSuite) TestDraftsAreHiddenFromReaders() {
	_, editor := s.createUser("editor", models.RoleEditor)
	s.createArticle(editor, map[string]interface{}{"title": "Live Post", "published": true})
	s.createArticle(editor, map[string]interface{}{"title": "Draft Post"})

	body := s.requireStatus(s.do(http.MethodGet, "/api/v1/articles", "", nil), http.StatusOK)
	s.Equal(float64(1), body["total"])
	items := body["items"].([]interface{})
	s.Require().Len(items, 1)
	s.Equal("live-post", items[0].(map[string]interface{})["slug"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/articles", editor, nil), http.StatusOK)
	s.Equal(float64(2), body["total"])

	w := s.do(http.MethodGet, "/api/v1/articles/draft-post", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
	w = s.do(http.MethodGet, "/api/v1/articles/draft-post", editor, nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlersSuite) TestArticleViewAndLikeAwards() {
	_, editor := s.createUser("editor", models.RoleEditor)
	reader, token := s.createUser("reader", models.RoleMember)
	s.createArticle(editor, map[string]interface{}{"title": "Scripting With AI", "published": true})

	// anonymous views count but earn nothing
	body := s.requireStatus(s.do(http.MethodPost, "/api/v1/articles/scripting-with-ai/view", "", nil), http.StatusOK)
	s.Equal(float64(1), body["view_count"])
	s.NotContains(body, "award")

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/articles/scripting-with-ai/view", token, nil), http.StatusOK)
	s.Equal(float64(2), body["view_count"])
	award := body["award"].(map[string]interface{})
	s.Equal(true, award["awarded"])
	s.Equal(float64(2), award["points"])

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/articles/scripting-with-ai/view", token, nil), http.StatusOK)
	s.Equal(false, body["award"].(map[string]interface{})["awarded"])

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/articles/scripting-with-ai/like", token, nil), http.StatusOK)
	s.Equal(float64(1), body["like_count"])
	s.NotContains(body, "already_liked")

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/articles/scripting-with-ai/like", token, nil), http.StatusOK)
	s.Equal(true, body["already_liked"])
	s.Equal(float64(1), body["like_count"])

	s.Equal(3, s.points(reader.ID))

	w := s.do(http.MethodPost, "/api/v1/articles/scripting-with-ai/like", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersSuite) TestTemplateDownloadAwardsOnce() {
	_, editor := s.createUser("editor", models.RoleEditor)
	member, token := s.createUser("member", models.RoleMember)

	w := s.do(http.MethodPost, "/api/v1/editor/templates", editor, map[string]interface{}{
		"title":     "Thumbnail Pack",
		"format":    "canva",
		"file_url":  "https://cdn.test/thumbs.zip",
		"published": true,
	})
	s.requireStatus(w, http.StatusCreated)

	body := s.requireStatus(s.do(http.MethodPost, "/api/v1/templates/thumbnail-pack/download", token, nil), http.StatusOK)
	s.Equal("https://cdn.test/thumbs.zip", body["file_url"])
	s.Equal(float64(1), body["download_count"])

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/templates/thumbnail-pack/download", token, nil), http.StatusOK)
	s.Equal(float64(2), body["download_count"])
	s.Equal(false, body["award"].(map[string]interface{})["awarded"])

	s.Equal(3, s.points(member.ID))
}

func (s *HandlersSuite) TestInvalidEnumFilterIsRejected() {
	w := s.do(http.MethodGet, "/api/v1/niches?competition=extreme", "", nil)
	body := s.requireStatus(w, http.StatusUnprocessableEntity)
	s.Equal("competition", body["field"])

	w = s.do(http.MethodGet, "/api/v1/tools?pricing=whatever", "", nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *HandlersSuite) TestNicheCompare() {
	_, editor := s.createUser("editor", models.RoleEditor)
	for _, n := range []map[string]interface{}{
		{"name": "Stoic Quotes", "competition": "low", "monetization_potential": 8, "published": true},
		{"name": "Luxury Cars", "competition": "high", "published": true},
		{"name": "Hidden Niche"},
	} {
		s.requireStatus(s.do(http.MethodPost, "/api/v1/editor/niches", editor, n), http.StatusCreated)
	}

	w := s.do(http.MethodGet, "/api/v1/niches/compare?slugs=luxury-cars,stoic-quotes,hidden-niche,unknown", "", nil)
	body := s.requireStatus(w, http.StatusOK)
	s.Equal(float64(2), body["count"])
	items := body["items"].([]interface{})
	s.Equal("luxury-cars", items[0].(map[string]interface{})["slug"], "requested order is kept")
	s.ElementsMatch([]interface{}{"hidden-niche", "unknown"}, body["missing"])

	w = s.do(http.MethodGet, "/api/v1/niches/compare", "", nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/api/v1/editor/niches", editor, map[string]interface{}{"name": "Bad", "monetization_potential": 11})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *HandlersSuite) TestCategoriesCountPublishedEntries() {
	_, editor := s.createUser("editor", models.RoleEditor)
	s.createArticle(editor, map[string]interface{}{"title": "One", "category": "growth", "published": true})
	s.createArticle(editor, map[string]interface{}{"title": "Two", "category": "growth", "published": true})
	s.createArticle(editor, map[string]interface{}{"title": "Three", "category": "tools", "published": true})

	body := s.requireStatus(s.do(http.MethodGet, "/api/v1/articles/categories", "", nil), http.StatusOK)
	cats := body["categories"].([]interface{})
	s.Require().NotEmpty(cats)
	first := cats[0].(map[string]interface{})
	s.Equal("growth", first["category"])
	s.Equal(float64(2), first["count"])
}
