package handlers

import (
	"net/http"
	"time"

	"github.com/contentanonymity/backend/internal/models"
	"github.com/pquerna/otp/totp"
)

func (s *HandlersSuite) register(email, username, password string) map[string]interface{} {
	w := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email":    email,
		"username": username,
		"password": password,
	})
	return s.requireStatus(w, http.StatusCreated)
}

func (s *HandlersSuite) TestRegisterAndLogin() {
	body := s.register("maker@example.com", "maker", "correct-horse")
	s.NotEmpty(body["token"])
	s.Equal("maker", body["user"].(map[string]interface{})["username"])

	w := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email": "maker@example.com", "username": "maker2", "password": "correct-horse",
	})
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email": "other@example.com", "username": "bad name", "password": "correct-horse",
	})
	body = s.requireStatus(w, http.StatusUnprocessableEntity)
	s.Equal("username", body["field"])

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{"email": "maker@example.com", "password": "wrong-horse"})
	s.Equal(http.StatusUnauthorized, w.Code)

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email": "maker@example.com", "password": "correct-horse",
	}), http.StatusOK)
	token := body["token"].(string)

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/me", token, nil), http.StatusOK)
	s.Equal("maker@example.com", body["user"].(map[string]interface{})["email"])
	s.Equal(false, body["profile_complete"])
	s.Contains(body, "points")
}

func (s *HandlersSuite) TestRegisterCannotClaimPasswordlessAccount() {
	owner, _ := s.createUser("owner", models.RoleAdmin)
	s.Nil(owner.PasswordHash)

	w := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]interface{}{
		"email": "owner@example.com", "username": "claimant", "password": "correct-horse",
	})
	s.Equal(http.StatusConflict, w.Code)
	s.NotContains(w.Body.String(), `"token"`)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, "id = ?", owner.ID).Error)
	s.Nil(stored.PasswordHash)
	s.Equal("owner", stored.Username)
	s.Equal(models.RoleAdmin, stored.Role)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{"email": "owner@example.com", "password": "correct-horse"})
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersSuite) TestTwoFactorLogin() {
	token := s.register("secure@example.com", "secure", "correct-horse")["token"].(string)

	setup := s.requireStatus(s.do(http.MethodPost, "/api/v1/auth/2fa/setup", token, nil), http.StatusOK)
	secret := setup["secret"].(string)
	s.Contains(setup["otpauth_url"], "otpauth://")

	w := s.do(http.MethodPost, "/api/v1/auth/2fa/enable", token, map[string]interface{}{"code": "000000"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	code, err := totp.GenerateCode(secret, time.Now())
	s.Require().NoError(err)
	s.requireStatus(s.do(http.MethodPost, "/api/v1/auth/2fa/enable", token, map[string]interface{}{"code": code}), http.StatusOK)

	w = s.do(http.MethodPost, "/api/v1/auth/2fa/setup", token, nil)
	s.Equal(http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{"email": "secure@example.com", "password": "correct-horse"})
	body := s.requireStatus(w, http.StatusUnauthorized)
	s.Equal("totp_code", body["field"])

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email": "secure@example.com", "password": "correct-horse", "totp_code": code,
	}), http.StatusOK)
	s.NotEmpty(body["token"])
}

func (s *HandlersSuite) TestPasswordReset() {
	s.register("forgetful@example.com", "forgetful", "first-password")

	// unknown addresses get the same answer
	s.requireStatus(s.do(http.MethodPost, "/api/v1/auth/password/forgot", "", map[string]interface{}{"email": "nobody@example.com"}), http.StatusOK)
	s.requireStatus(s.do(http.MethodPost, "/api/v1/auth/password/forgot", "", map[string]interface{}{"email": "forgetful@example.com"}), http.StatusOK)

	resetToken := s.mail.resets["forgetful@example.com"]
	s.Require().NotEmpty(resetToken)
	s.Len(s.mail.resets, 1)

	w := s.do(http.MethodPost, "/api/v1/auth/password/reset", "", map[string]interface{}{"token": "bogus", "password": "second-password"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	s.requireStatus(s.do(http.MethodPost, "/api/v1/auth/password/reset", "", map[string]interface{}{"token": resetToken, "password": "second-password"}), http.StatusOK)

	// single use
	w = s.do(http.MethodPost, "/api/v1/auth/password/reset", "", map[string]interface{}{"token": resetToken, "password": "third-password"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	s.requireStatus(s.do(http.MethodPost, "/api/v1/auth/login", "", map[string]interface{}{
		"email": "forgetful@example.com", "password": "second-password",
	}), http.StatusOK)
}

func (s *HandlersSuite) TestGoogleLoginDisabledWithoutConfig() {
	w := s.do(http.MethodGet, "/api/v1/auth/google", "", nil)
	s.Equal(http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodGet, "/api/v1/auth/google/callback?code=abc&state=xyz", "", nil)
	s.Equal(http.StatusBadRequest, w.Code, "state cookie is missing")
}

func (s *HandlersSuite) TestProfileCompletionAward() {
	user, token := s.createUser("creator", models.RoleMember)
	s.createUser("taken", models.RoleMember)

	w := s.do(http.MethodPatch, "/api/v1/me", token, map[string]interface{}{"username": "taken"})
	s.Equal(http.StatusConflict, w.Code)

	body := s.requireStatus(s.do(http.MethodPatch, "/api/v1/me", token, map[string]interface{}{
		"bio":             "I make faceless history videos.",
		"avatar_url":      "https://cdn.test/me.png",
		"niche_interests": []string{"History", "Documentary"},
	}), http.StatusOK)
	s.Equal(true, body["profile_complete"])
	s.Equal(float64(20), body["award"].(map[string]interface{})["points"])

	// saving again pays nothing more
	body = s.requireStatus(s.do(http.MethodPatch, "/api/v1/me", token, map[string]interface{}{"bio": "Still history."}), http.StatusOK)
	s.Equal(false, body["award"].(map[string]interface{})["awarded"])
	s.Equal(20, s.points(user.ID))

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/users/creator", "", nil), http.StatusOK)
	profile := body["profile"].(map[string]interface{})
	s.Equal("creator", profile["username"])
	s.NotContains(profile, "email")

	w = s.do(http.MethodGet, "/api/v1/users/nobody", "", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersSuite) TestAvatarUpload() {
	user, token := s.createUser("pictured", models.RoleMember)

	body := s.requireStatus(s.upload("/api/v1/me/avatar", token, "avatar", "me.png", []byte("\x89PNG\r\n\x1a\nfake"), nil), http.StatusOK)
	s.Equal("https://cdn.test/avatars/mock/1.png", body["avatar_url"])
	s.Len(s.uploads.Uploads, 1)

	var stored models.User
	s.Require().NoError(s.db.First(&stored, "id = ?", user.ID).Error)
	s.Equal("https://cdn.test/avatars/mock/1.png", stored.AvatarURL)

	w := s.upload("/api/v1/me/avatar", token, "avatar", "notes.txt", []byte("hello"), nil)
	s.Equal(http.StatusUnsupportedMediaType, w.Code)

	w = s.upload("/api/v1/me/avatar", token, "", "", nil, map[string]string{"x": "y"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersSuite) TestCheckInAndLeaderboard() {
	user, token := s.createUser("daily", models.RoleMember)
	s.createUser("idle", models.RoleMember)

	body := s.requireStatus(s.do(http.MethodPost, "/api/v1/gamification/checkin", token, nil), http.StatusOK)
	s.Equal(true, body["awarded"])
	s.Equal(float64(1), body["streak_days"])
	s.Equal(false, body["already_checked_in"])

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/gamification/checkin", token, nil), http.StatusOK)
	s.Equal(true, body["already_checked_in"])
	s.Equal(5, s.points(user.ID))

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/gamification/leaderboard?limit=5", "", nil), http.StatusOK)
	items := body["items"].([]interface{})
	s.Require().NotEmpty(items)
	first := items[0].(map[string]interface{})
	s.Equal("daily", first["username"])
	s.Equal(float64(1), first["rank"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/gamification/me", token, nil), http.StatusOK)
	s.Equal(float64(5), body["points"])

	body = s.requireStatus(s.do(http.MethodGet, "/api/v1/gamification/badges", "", nil), http.StatusOK)
	s.NotEmpty(body["badges"])
	s.Equal(float64(100), body["points"].(map[string]interface{})["path_complete"])

	w := s.do(http.MethodPost, "/api/v1/gamification/checkin", "", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *HandlersSuite) TestNewsletterDoubleOptIn() {
	member, _ := s.createUser("reader", models.RoleMember)

	w := s.do(http.MethodPost, "/api/v1/newsletter/subscribe", "", map[string]interface{}{"email": "not-an-email"})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	body := s.requireStatus(s.do(http.MethodPost, "/api/v1/newsletter/subscribe", "", map[string]interface{}{
		"email": "Reader@Example.com", "source": "footer",
	}), http.StatusAccepted)
	s.Equal("pending", body["status"])

	token := s.mail.confirms["reader@example.com"]
	s.Require().NotEmpty(token)

	w = s.do(http.MethodPost, "/api/v1/newsletter/confirm?token=unknown", "", nil)
	s.Equal(http.StatusNotFound, w.Code)

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/newsletter/confirm?token="+token, "", nil), http.StatusOK)
	s.Equal("confirmed", body["status"])
	s.Equal(float64(10), body["award"].(map[string]interface{})["points"])
	s.Equal(10, s.points(member.ID))

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/newsletter/subscribe", "", map[string]interface{}{"email": "reader@example.com"}), http.StatusOK)
	s.Equal(true, body["already_subscribed"])

	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/newsletter/unsubscribe", "", map[string]interface{}{"token": token}), http.StatusOK)
	s.Equal("unsubscribed", body["status"])
	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/newsletter/unsubscribe", "", map[string]interface{}{"token": token}), http.StatusOK)
	s.Equal("unsubscribed", body["status"])

	w = s.do(http.MethodPost, "/api/v1/newsletter/confirm?token="+token, "", nil)
	s.Equal(http.StatusConflict, w.Code)

	// subscribing again starts over with a fresh token
	body = s.requireStatus(s.do(http.MethodPost, "/api/v1/newsletter/subscribe", "", map[string]interface{}{"email": "reader@example.com"}), http.StatusAccepted)
	s.Equal("pending", body["status"])
	s.NotEqual(token, s.mail.confirms["reader@example.com"])
}
