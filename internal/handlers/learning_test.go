package handlers

import (
	"net/http"

	"github.com/contentanonymity/backend/internal/models"
)

// createPathWithLessons builds a published path through the editor API
func (s *HandlersSuite) createPathWithLessons(editor string, titles ...string) (string, []string) {
	w := s.do(http.MethodPost, "/api/v1/editor/paths", editor, map[string]interface{}{
		"title":     "YouTube Automation 101",
		"level":     "beginner",
		"published": true,
	})
	path := s.requireStatus(w, http.StatusCreated)["path"].(map[string]interface{})
	pathID := path["id"].(string)

	var lessonIDs []string
	for i, title := range titles {
		w := s.do(http.MethodPost, "/api/v1/editor/paths/"+pathID+"/lessons", editor, map[string]interface{}{"title": title})
		lesson := s.requireStatus(w, http.StatusCreated)["lesson"].(map[string]interface{})
		s.Equal(float64(i+1), lesson["position"])
		lessonIDs = append(lessonIDs, lesson["id"].(string))
	}
	return pathID, lessonIDs
}

func (s *HandlersSuite) TestLearningPathCompletion() {
	_, editor := s.createUser("editor", models.RoleEditor)
	learner, token := s.createUser("learner", models.RoleMember)
	_, lessons := s.createPathWithLessons(editor, "Pick a niche", "Write a script")

	body := s.requireStatus(s.do(http.MethodPost, "/api/v1/learning/paths/youtube-automation-101/enroll", token, nil), http.StatusCreated)
	s.Equal(true, body["created"])
	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/learning/paths/youtube-automation-101/enroll", token, nil), http.StatusOK)
	s.Equal(false, body["created"])

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/learning/lessons/"+lessons[0]+"/complete", token, nil), http.StatusOK)
	s.Equal(true, body["newly_completed"])
	s.Equal(false, body["path_completed"])
	s.Len(body["awards"], 1)
	progress := body["progress"].(map[string]interface{})
	s.Equal(float64(50), progress["percent"])

	// completing again changes nothing
	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/learning/lessons/"+lessons[0]+"/complete", token, nil), http.StatusOK)
	s.Equal(false, body["newly_completed"])
	s.Len(body["awards"], 0)

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/learning/lessons/"+lessons[1]+"/complete", token, nil), http.StatusOK)
	s.Equal(true, body["path_completed"])
	awards := body["awards"].([]interface{})
	s.Require().Len(awards, 2)
	s.Equal("path_complete", awards[1].(map[string]interface{})["action"])
	s.Equal(float64(100), awards[1].(map[string]interface{})["points"])

	s.Equal(120, s.points(learner.ID))

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/learning/paths/youtube-automation-101/progress", token, nil), http.StatusOK)
	progress = body["progress"].(map[string]interface{})
	s.Equal(float64(100), progress["percent"])
	s.Equal(float64(2), progress["completed"])
	s.NotEmpty(progress["completed_at"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/learning/enrollments", token, nil), http.StatusOK)
	s.Equal(float64(1), body["count"])

	s.createPost(token, "Which voice do you use?")
	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/users/learner", "", nil), http.StatusOK)
	stats := body["stats"].(map[string]interface{})
	s.Equal(float64(2), stats["lessons_completed"])
	s.Equal(float64(1), stats["forum_posts"])
}

func (s *HandlersSuite) TestLearningPathDetail() {
	_, editor := s.createUser("editor", models.RoleEditor)
	_, token := s.createUser("learner", models.RoleMember)
	s.createPathWithLessons(editor, "First", "Second", "Third")

	body := s.requireStatus(s.do(http.MethodGet, "/api/v1/learning/paths/youtube-automation-101", "", nil), http.StatusOK)
	path := body["path"].(map[string]interface{})
	lessons := path["lessons"].([]interface{})
	s.Require().Len(lessons, 3)
	s.Equal("First", lessons[0].(map[string]interface{})["title"])
	s.NotContains(body, "progress", "anonymous readers get no progress")

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/learning/paths/youtube-automation-101", token, nil), http.StatusOK)
	s.Equal(false, body["progress"].(map[string]interface{})["enrolled"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/learning/paths", "", nil), http.StatusOK)
	items := body["items"].([]interface{})
	s.Require().Len(items, 1)
	s.Equal(float64(3), items[0].(map[string]interface{})["lesson_count"])

	w := s.do(http.MethodGet, "/api/v1/learning/paths?level=wizard", "", nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/api/v1/learning/lessons/missing/complete", token, nil)
	s.Equal(http.StatusNotFound, w.Code)
}
