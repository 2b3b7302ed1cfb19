package handlers

import (
	"net/http"

	"github.com/contentanonymity/backend/internal/models"
)

func (s *HandlersSuite) createPost(token, title string) map[string]interface{} {
	w := s.do(http.MethodPost, "/api/v1/forum/posts", token, map[string]interface{}{
		"title":    title,
		"body":     "What is everyone using for voiceovers?",
		"category": "tools",
	})
	body := s.requireStatus(w, http.StatusCreated)
	return body["post"].(map[string]interface{})
}

func (s *HandlersSuite) TestForumThreadFlow() {
	asker, askerToken := s.createUser("asker", models.RoleMember)
	helper, helperToken := s.createUser("helper", models.RoleMember)

	post := s.createPost(askerToken, "Best TTS voices")
	s.Equal("best-tts-voices", post["slug"])
	s.Equal("tools", post["category"])
	postID := post["id"].(string)

	// a second thread with the same title gets its own slug
	second := s.createPost(askerToken, "Best TTS voices")
	s.NotEqual("best-tts-voices", second["slug"])

	w := s.do(http.MethodPost, "/api/v1/forum/posts/"+postID+"/replies", helperToken, map[string]interface{}{"body": "Try the neural voices."})
	body := s.requireStatus(w, http.StatusCreated)
	replyID := body["reply"].(map[string]interface{})["id"].(string)
	s.Equal(float64(5), body["award"].(map[string]interface{})["points"])

	// only the thread author may accept
	w = s.do(http.MethodPost, "/api/v1/forum/replies/"+replyID+"/accept", helperToken, nil)
	s.Equal(http.StatusForbidden, w.Code)

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/forum/replies/"+replyID+"/accept", askerToken, nil), http.StatusOK)
	s.Equal(replyID, body["accepted_reply_id"])
	s.Equal(float64(25), body["award"].(map[string]interface{})["points"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/forum/posts/"+postID, "", nil), http.StatusOK)
	s.Equal(replyID, body["post"].(map[string]interface{})["accepted_reply_id"])

	s.Equal(30, s.points(asker.ID), "two threads")
	s.Equal(30, s.points(helper.ID), "reply plus accepted answer")
}

func (s *HandlersSuite) TestAcceptingOwnReplyPaysNothing() {
	author, token := s.createUser("author", models.RoleMember)
	post := s.createPost(token, "Answering myself")

	w := s.do(http.MethodPost, "/api/v1/forum/posts/"+post["id"].(string)+"/replies", token, map[string]interface{}{"body": "Found it."})
	replyID := s.requireStatus(w, http.StatusCreated)["reply"].(map[string]interface{})["id"].(string)

	body := s.requireStatus(s.do(http.MethodPost, "/api/v1/forum/replies/"+replyID+"/accept", token, nil), http.StatusOK)
	s.Nil(body["award"])
	s.Equal(20, s.points(author.ID))
}

func (s *HandlersSuite) TestLockedThreadRejectsReplies() {
	_, adminToken := s.createUser("admin", models.RoleAdmin)
	_, memberToken := s.createUser("member", models.RoleMember)
	post := s.createPost(memberToken, "Please lock me")
	postID := post["id"].(string)

	w := s.do(http.MethodPut, "/api/v1/forum/posts/"+postID+"/moderation", memberToken, map[string]interface{}{"locked": true})
	s.Equal(http.StatusForbidden, w.Code)

	body := s.requireStatus(s.do(http.MethodPut, "/api/v1/forum/posts/"+postID+"/moderation", adminToken, map[string]interface{}{"locked": true}), http.StatusOK)
	s.Equal(true, body["post"].(map[string]interface{})["locked"])

	w = s.do(http.MethodPost, "/api/v1/forum/posts/"+postID+"/replies", memberToken, map[string]interface{}{"body": "too late"})
	s.Equal(http.StatusForbidden, w.Code)
}

func (s *HandlersSuite) TestForumVotes() {
	_, authorToken := s.createUser("author", models.RoleMember)
	_, voterToken := s.createUser("voter", models.RoleMember)
	postID := s.createPost(authorToken, "Vote for me")["id"].(string)

	body := s.requireStatus(s.do(http.MethodPost, "/api/v1/forum/posts/"+postID+"/vote", voterToken, nil), http.StatusOK)
	s.Equal(true, body["changed"])
	s.Equal(float64(1), body["upvote_count"])

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/forum/posts/"+postID+"/vote", voterToken, nil), http.StatusOK)
	s.Equal(false, body["changed"])
	s.Equal(float64(1), body["upvote_count"])

	body = s.requireStatus(s.do(http.MethodDelete, "/api/v1/forum/posts/"+postID+"/vote", voterToken, nil), http.StatusOK)
	s.Equal(true, body["changed"])
	s.Equal(float64(0), body["upvote_count"])

	w := s.do(http.MethodPost, "/api/v1/forum/posts/missing/vote", voterToken, nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersSuite) TestForumPostValidationAndOwnership() {
	_, authorToken := s.createUser("author", models.RoleMember)
	_, otherToken := s.createUser("other", models.RoleMember)

	w := s.do(http.MethodPost, "/api/v1/forum/posts", authorToken, map[string]interface{}{"title": "No body here"})
	body := s.requireStatus(w, http.StatusUnprocessableEntity)
	s.Equal("body", body["field"])

	w = s.do(http.MethodPost, "/api/v1/forum/posts", authorToken, map[string]interface{}{"title": "Bad category", "body": "x", "category": "memes"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	postID := s.createPost(authorToken, "Mine to edit")["id"].(string)

	w = s.do(http.MethodPatch, "/api/v1/forum/posts/"+postID, otherToken, map[string]interface{}{"title": "Hijacked"})
	s.Equal(http.StatusForbidden, w.Code)

	body = s.requireStatus(s.do(http.MethodPatch, "/api/v1/forum/posts/"+postID, authorToken, map[string]interface{}{"title": "Edited title"}), http.StatusOK)
	s.Equal("Edited title", body["post"].(map[string]interface{})["title"])

	w = s.do(http.MethodGet, "/api/v1/forum/posts?category=memes", "", nil)
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/forum/posts?category=tools", "", nil), http.StatusOK)
	s.Equal(float64(1), body["total"])

	s.requireStatus(s.do(http.MethodDelete, "/api/v1/forum/posts/"+postID, authorToken, nil), http.StatusOK)
	w = s.do(http.MethodGet, "/api/v1/forum/posts/"+postID, "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}
