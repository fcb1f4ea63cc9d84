package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"learnsphere_backend/internal/config"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/service"
	"learnsphere_backend/internal/testutil"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	app    *App
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:       config.ServerConfig{Mode: "test"},
		JWT:          config.JWTConfig{Secret: "router-test-secret", ExpireTime: time.Hour},
		Storage:      config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		RateLimit:    config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Gamification: config.GamificationConfig{CertificatePrefix: "LS", CalendarDays: 60},
	}
	db := testutil.NewDB(t)
	storage := &service.StorageService{Provider: &service.LocalStorageProvider{Root: cfg.Storage.LocalPath}}

	a := build(cfg, db, nil, storage)
	a.services.auth.BcryptCost = bcrypt.MinCost
	t.Cleanup(a.limiter.Stop)
	return &testServer{app: a, router: a.Router}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

// signup 注册并登录，返回 token 与用户 ID
func (s *testServer) signup(t *testing.T, email string, role model.UserRole) (string, uint) {
	t.Helper()
	code, _ := s.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"fullName": "Test " + string(role),
		"email":    email,
		"password": "password123",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, code)
	return s.login(t, email)
}

func (s *testServer) login(t *testing.T, email string) (string, uint) {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": email, "password": "password123"})
	require.Equal(t, http.StatusOK, code)
	var resp struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.Token, resp.User.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, http.StatusOK, env.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/learner/my-courses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, http.StatusUnauthorized, env.Code)

	code, _ = s.do(t, http.MethodGet, "/api/auth/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestSignupValidationAndConflict(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{"fullName": "x", "email": "bad", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, code)

	s.signup(t, "dup@example.com", model.Learner)
	code, _ = s.do(t, http.MethodPost, "/api/auth/signup", "", gin.H{
		"fullName": "Again", "email": "dup@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "dup@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRoleGuards(t *testing.T) {
	s := newTestServer(t)
	learnerToken, _ := s.signup(t, "learner@example.com", model.Learner)

	code, _ := s.do(t, http.MethodPost, "/api/instructor/courses", learnerToken, gin.H{"title": "Nope"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodGet, "/api/admin/users", learnerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestUnknownQuizIsNotFound(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.signup(t, "quiz@example.com", model.Learner)

	code, env := s.do(t, http.MethodGet, "/api/learner/quizzes/424242", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "quiz not found", env.Message)

	code, _ = s.do(t, http.MethodGet, "/api/learner/quizzes/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLearningFlowIssuesCertificate(t *testing.T) {
	s := newTestServer(t)
	instructorToken, _ := s.signup(t, "instructor@example.com", model.Instructor)
	learnerToken, _ := s.signup(t, "student@example.com", model.Learner)

	code, env := s.do(t, http.MethodPost, "/api/instructor/courses", instructorToken, gin.H{"title": "HTTP Course", "published": true})
	require.Equal(t, http.StatusCreated, code)
	var course model.Course
	require.NoError(t, json.Unmarshal(env.Data, &course))

	var lessonIDs []uint
	for i := 0; i < 2; i++ {
		code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/instructor/courses/%d/lessons", course.ID), instructorToken, gin.H{"title": fmt.Sprintf("L%d", i)})
		require.Equal(t, http.StatusCreated, code)
		var lesson model.Lesson
		require.NoError(t, json.Unmarshal(env.Data, &lesson))
		lessonIDs = append(lessonIDs, lesson.ID)
	}

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/learner/courses/%d/progress", course.ID), learnerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/learner/courses/%d/enroll", course.ID), learnerToken, nil)
	require.Equal(t, http.StatusCreated, code)
	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/learner/courses/%d/enroll", course.ID), learnerToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Already enrolled", env.Message)

	for _, id := range lessonIDs {
		code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/learner/lessons/%d/complete", id), learnerToken, nil)
		require.Equal(t, http.StatusOK, code)
	}
	var completion service.LessonCompletion
	require.NoError(t, json.Unmarshal(env.Data, &completion))
	assert.True(t, completion.CourseCompleted)
	assert.Equal(t, 100, completion.Progress.Percentage)
	require.NotNil(t, completion.Certificate)

	code, env = s.do(t, http.MethodPut, fmt.Sprintf("/api/learner/certificates/%d/download", completion.Certificate.ID), learnerToken, nil)
	require.Equal(t, http.StatusOK, code)
	var download service.CertificateDownload
	require.NoError(t, json.Unmarshal(env.Data, &download))
	assert.NotEmpty(t, download.DownloadURL)

	code, env = s.do(t, http.MethodGet, "/api/learner/points", learnerToken, nil)
	require.Equal(t, http.StatusOK, code)
	var summary service.PointsSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 2*service.PointsLessonCompletion+service.PointsCourseCompletion, summary.TotalPoints)

	// 其他讲师不能查看学员列表
	otherToken, _ := s.signup(t, "other-instructor@example.com", model.Instructor)
	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/instructor/courses/%d/students", course.ID), otherToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/instructor/courses/%d/students", course.ID), instructorToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestAdminChangesRole(t *testing.T) {
	s := newTestServer(t)
	_, userID := s.signup(t, "promote@example.com", model.Learner)
	s.signup(t, "admin@example.com", model.Learner)
	require.NoError(t, s.app.DB.Model(&model.User{}).Where("email = ?", "admin@example.com").Update("role", model.Admin).Error)
	adminToken, _ := s.login(t, "admin@example.com")

	code, _ := s.do(t, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/role", userID), adminToken, gin.H{"role": "overlord"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env := s.do(t, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/role", userID), adminToken, gin.H{"role": model.Instructor})
	require.Equal(t, http.StatusOK, code)
	var user model.User
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, model.Instructor, user.Role)

	// 管理员可以访问讲师接口
	code, _ = s.do(t, http.MethodGet, "/api/instructor/courses", adminToken, nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestPaidCourseAccessAndAttachments(t *testing.T) {
	s := newTestServer(t)
	instructorToken, _ := s.signup(t, "instructor@example.com", model.Instructor)
	learnerToken, learnerID := s.signup(t, "student@example.com", model.Learner)

	code, env := s.do(t, http.MethodPost, "/api/instructor/courses", instructorToken, gin.H{"title": "Paid Course", "access": "payment", "price": 49, "published": true})
	require.Equal(t, http.StatusCreated, code)
	var course model.Course
	require.NoError(t, json.Unmarshal(env.Data, &course))

	code, env = s.do(t, http.MethodPost, fmt.Sprintf("/api/instructor/courses/%d/lessons", course.ID), instructorToken, gin.H{"title": "Intro"})
	require.Equal(t, http.StatusCreated, code)
	var lesson model.Lesson
	require.NoError(t, json.Unmarshal(env.Data, &lesson))

	accessPath := fmt.Sprintf("/api/learner/courses/%d/access", course.ID)
	code, env = s.do(t, http.MethodGet, accessPath, learnerToken, nil)
	require.Equal(t, http.StatusOK, code)
	var access service.AccessCheck
	require.NoError(t, json.Unmarshal(env.Data, &access))
	assert.False(t, access.HasAccess)

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/learner/courses/%d/enroll", course.ID), learnerToken, nil)
	require.Equal(t, http.StatusCreated, code)
	paidPath := fmt.Sprintf("/api/instructor/courses/%d/students/%d/paid", course.ID, learnerID)
	code, _ = s.do(t, http.MethodPut, paidPath, learnerToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPut, paidPath, instructorToken, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, accessPath, learnerToken, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &access))
	assert.True(t, access.HasAccess)
	assert.Equal(t, service.AccessReasonEnrolled, access.Reason)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("chapter one notes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/instructor/lessons/%d/attachments", lesson.ID), &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+instructorToken)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/instructor/lessons/%d/attachments", lesson.ID), instructorToken,
		gin.H{"fileName": "Docs", "fileUrl": "https://example.com/docs"})
	require.Equal(t, http.StatusCreated, code)

	code, env = s.do(t, http.MethodGet, fmt.Sprintf("/api/lessons/%d/attachments", lesson.ID), "", nil)
	require.Equal(t, http.StatusOK, code)
	var list []model.LessonAttachment
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "notes.txt", list[0].FileName)

	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, list[0].FileURL, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "chapter one notes", w.Body.String())

	code, _ = s.do(t, http.MethodDelete, fmt.Sprintf("/api/instructor/lessons/%d/attachments/%d", lesson.ID, list[1].ID), instructorToken, nil)
	assert.Equal(t, http.StatusOK, code)
}
