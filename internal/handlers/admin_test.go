package handlers

import (
	"net/http"

	"github.com/contentanonymity/backend/internal/models"
)

const importToolsCSV = `External ID,Title,Website,Pricing,Rating,Tags,Published
t-1,Voice Forge,https://voiceforge.example,Freemium,4.5,"AI; Voice",yes
t-2,Clip Cutter,https://clip.example,paid,3,editing,no
t-3,Bad Price,https://bad.example,expensive,2,,yes
`

func (s *HandlersSuite) TestAdminImport() {
	_, admin := s.createUser("admin", models.RoleAdmin)
	_, editor := s.createUser("editor", models.RoleEditor)

	w := s.upload("/api/v1/admin/import/tools", editor, "file", "tools.csv", []byte(importToolsCSV), nil)
	s.Equal(http.StatusForbidden, w.Code)

	w = s.upload("/api/v1/admin/import/widgets", admin, "file", "tools.csv", []byte(importToolsCSV), nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.upload("/api/v1/admin/import/tools", admin, "file", "tools.xml", []byte(importToolsCSV), nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	body := s.requireStatus(s.upload("/api/v1/admin/import/tools?dry_run=true", admin, "file", "tools.csv", []byte(importToolsCSV), nil), http.StatusOK)
	s.Equal(true, body["dry_run"])
	s.Equal(float64(2), body["inserted"])
	var count int64
	s.Require().NoError(s.db.Model(&models.Tool{}).Count(&count).Error)
	s.Zero(count)

	body = s.requireStatus(s.upload("/api/v1/admin/import/tools", admin, "file", "tools.csv", []byte(importToolsCSV), nil), http.StatusOK)
	s.Equal(false, body["dry_run"])
	s.Equal(float64(3), body["rows"])
	s.Equal(float64(2), body["inserted"])
	s.Equal(float64(1), body["skipped"])
	errs := body["errors"].([]interface{})
	s.Require().Len(errs, 1)
	s.Equal(float64(3), errs[0].(map[string]interface{})["row"])

	// only the published row is visible to readers
	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/tools", "", nil), http.StatusOK)
	s.Equal(float64(1), body["total"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/admin/import/runs", admin, nil), http.StatusOK)
	s.Equal(float64(2), body["total"])
	items := body["items"].([]interface{})
	s.Require().Len(items, 2)
	for _, item := range items {
		runErrs, ok := item.(map[string]interface{})["errors"].([]interface{})
		s.Require().True(ok, "stored errors are a JSON list")
		s.Len(runErrs, 1)
		s.Equal(float64(3), runErrs[0].(map[string]interface{})["row"])
	}
}

func (s *HandlersSuite) TestAdminImportJSONFormatField() {
	_, admin := s.createUser("admin", models.RoleAdmin)
	payload := `[{"name": "Stoic Quotes", "competition": "low", "published": true}]`

	body := s.requireStatus(s.upload("/api/v1/admin/import/niches", admin, "file", "upload.txt", []byte(payload), map[string]string{"format": "json"}), http.StatusOK)
	s.Equal("json", body["format"])
	s.Equal(float64(1), body["inserted"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/niches/stoic-quotes", "", nil), http.StatusOK)
	s.Equal("low", body["niche"].(map[string]interface{})["competition"])
}

func (s *HandlersSuite) TestPromoteUser() {
	admin, adminToken := s.createUser("admin", models.RoleAdmin)
	_, memberToken := s.createUser("writer", models.RoleMember)

	w := s.do(http.MethodPut, "/api/v1/admin/users/writer/role", adminToken, map[string]interface{}{"role": "overlord"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	body := s.requireStatus(s.do(http.MethodPut, "/api/v1/admin/users/writer/role", adminToken, map[string]interface{}{"role": "editor"}), http.StatusOK)
	s.Equal("editor", body["user"].(map[string]interface{})["role"])

	// the new role applies on the next request
	w = s.do(http.MethodPost, "/api/v1/editor/articles", memberToken, map[string]interface{}{"title": "Now I can write"})
	s.Equal(http.StatusCreated, w.Code)

	w = s.do(http.MethodPut, "/api/v1/admin/users/"+admin.Username+"/role", adminToken, map[string]interface{}{"role": "member"})
	s.Equal(http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, "/api/v1/admin/users/ghost/role", adminToken, map[string]interface{}{"role": "editor"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersSuite) TestAdminStats() {
	_, admin := s.createUser("admin", models.RoleAdmin)
	_, editor := s.createUser("editor", models.RoleEditor)
	s.createArticle(editor, map[string]interface{}{"title": "Counted", "published": true})
	s.createArticle(editor, map[string]interface{}{"title": "Draft also counted"})

	body := s.requireStatus(s.do(http.MethodGet, "/api/v1/admin/stats", admin, nil), http.StatusOK)
	counts := body["counts"].(map[string]interface{})
	s.Equal(float64(2), counts["articles"])
	s.Equal(float64(2), counts["users"])
	s.Equal(float64(0), counts["subscribers"])

	w := s.do(http.MethodGet, "/api/v1/admin/stats", editor, nil)
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlersSuite) TestReindexWithoutElasticsearch() {
	_, admin := s.createUser("admin", models.RoleAdmin)
	w := s.do(http.MethodPost, "/api/v1/admin/search/reindex", admin, nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)
}

func (s *HandlersSuite) TestSearchFallsBackToDatabase() {
	_, editor := s.createUser("editor", models.RoleEditor)
	s.createArticle(editor, map[string]interface{}{"title": "Faceless Automation Guide", "published": true})
	s.createArticle(editor, map[string]interface{}{"title": "Faceless Draft"})
	s.requireStatus(s.do(http.MethodPost, "/api/v1/editor/tools", editor, map[string]interface{}{
		"name": "Faceless Voice", "published": true,
	}), http.StatusCreated)

	body := s.requireStatus(s.do(http.MethodGet, "/api/v1/search?q=faceless", "", nil), http.StatusOK)
	s.Equal("database", body["backend"])
	s.Equal(float64(2), body["total"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/search?q=faceless&kind=tool", "", nil), http.StatusOK)
	hits := body["hits"].([]interface{})
	s.Require().Len(hits, 1)
	s.Equal("faceless-voice", hits[0].(map[string]interface{})["slug"])

	w := s.do(http.MethodGet, "/api/v1/search?q=faceless&kind=podcast", "", nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/search?q=", "", nil), http.StatusOK)
	s.Equal(float64(0), body["total"])
}

func (s *HandlersSuite) TestReportVitals() {
	body := s.requireStatus(s.do(http.MethodPost, "/api/v1/vitals", "", map[string]interface{}{
		"samples": []map[string]interface{}{
			{"name": "LCP", "value": 1800, "page": "/"},
			{"name": "CLS", "value": 0.3, "page": "/"},
			{"name": "BOGUS", "value": 1, "page": "/"},
		},
	}), http.StatusAccepted)
	s.Equal(float64(2), body["accepted"])
	s.Equal(float64(1), body["rejected"])
	ratings := body["ratings"].(map[string]interface{})
	s.Equal(float64(1), ratings["good"])
	s.Equal(float64(1), ratings["poor"])

	w := s.do(http.MethodPost, "/api/v1/vitals", "", map[string]interface{}{"samples": []interface{}{}})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *HandlersSuite) TestEditorImageUpload() {
	_, editor := s.createUser("editor", models.RoleEditor)
	_, member := s.createUser("member", models.RoleMember)

	w := s.upload("/api/v1/uploads/image", member, "file", "cover.jpg", []byte("jpeg"), nil)
	s.Equal(http.StatusForbidden, w.Code)

	body := s.requireStatus(s.upload("/api/v1/uploads/image", editor, "file", "cover.JPEG", []byte("jpeg"), nil), http.StatusCreated)
	s.Equal("images/mock/1.jpg", body["key"])
	s.Equal("https://cdn.test/images/mock/1.jpg", body["url"])
}
