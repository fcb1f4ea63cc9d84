package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"learnsphere_backend/internal/model"
	"learnsphere_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// markComplete 直接把选课写成 100%，绕过课时流水线
func markComplete(t *testing.T, f *fixture, userID, courseID uint) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, f.db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(map[string]interface{}{
			"progress_percentage": 100,
			"status":              model.EnrollmentCompleted,
			"completed_date":      now,
		}).Error)
}

func TestIssueIfCompleteRequiresFullProgress(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, _ := f.createCourse(t, instructor.ID, 2)

	cert, issued, err := f.certificates.IssueIfComplete(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	assert.Nil(t, cert)
	assert.False(t, issued)

	f.enroll(t, learner.ID, course.ID)
	cert, issued, err = f.certificates.IssueIfComplete(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	assert.Nil(t, cert)
	assert.False(t, issued)

	markComplete(t, f, learner.ID, course.ID)
	cert, issued, err = f.certificates.IssueIfComplete(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	require.NotNil(t, cert)
	assert.True(t, issued)
	require.NotNil(t, cert.CompletionDate)

	again, issued, err := f.certificates.IssueIfComplete(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	assert.False(t, issued)
	assert.Equal(t, cert.ID, again.ID)
	assert.Equal(t, cert.CertificateNumber, again.CertificateNumber)
}

func TestIssueRecoversFromConcurrentInsert(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, _ := f.createCourse(t, instructor.ID, 1)
	f.enroll(t, learner.ID, course.ID)
	markComplete(t, f, learner.ID, course.ID)

	// 在首次“未找到证书”之后插入一条证书，模拟并发事务抢先签发
	fired := false
	err := f.db.Callback().Query().After("gorm:query").Register("test:concurrent_certificate", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "certificates" || !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return
		}
		fired = true
		now := time.Now().UTC()
		_, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"INSERT INTO certificates (user_id, course_id, certificate_number, issued_date, grade, is_downloaded, document_key, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			learner.ID, course.ID, "LS-WINNER", now, "A", false, "", now, now)
		require.NoError(t, err)
	})
	require.NoError(t, err)

	cert, issued, err := f.certificates.IssueIfComplete(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)
	require.True(t, fired)
	assert.False(t, issued)
	require.NotNil(t, cert)
	assert.Equal(t, "LS-WINNER", cert.CertificateNumber)

	assert.Equal(t, int64(1), f.count(t, &model.Certificate{}, "user_id = ?", learner.ID))
	assert.Equal(t, int64(0), f.count(t, &model.Achievement{}, "user_id = ?", learner.ID))
	assert.Equal(t, int64(0), f.count(t, &model.PointEntry{}, "user_id = ?", learner.ID))
	assert.Empty(t, f.notifier.ofType(NotifyCertificateIssued))
}

func TestCertificateGetIsScopedToOwner(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	other := f.createUser(t, model.Learner)
	course, _ := f.createCourse(t, instructor.ID, 1)
	f.enroll(t, learner.ID, course.ID)
	res, err := f.progress.ForceComplete(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)

	cert, err := f.certificates.Get(f.ctx, learner.ID, res.Certificate.ID)
	require.NoError(t, err)
	require.NotNil(t, cert.Course)
	assert.Equal(t, course.Title, cert.Course.Title)

	_, err = f.certificates.Get(f.ctx, other.ID, res.Certificate.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	list, err := f.certificates.List(f.ctx, learner.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCertificateMarkDownloaded(t *testing.T) {
	f := newFixture(t)
	instructor := f.createUser(t, model.Instructor)
	learner := f.createUser(t, model.Learner)
	course, _ := f.createCourse(t, instructor.ID, 1)
	f.enroll(t, learner.ID, course.ID)
	res, err := f.progress.ForceComplete(f.ctx, learner.ID, course.ID)
	require.NoError(t, err)

	// 清掉文档键，验证下载时补生成
	require.NoError(t, f.db.Model(&model.Certificate{}).Where("id = ?", res.Certificate.ID).Update("document_key", "").Error)

	dl, err := f.certificates.MarkDownloaded(f.ctx, learner.ID, res.Certificate.ID)
	require.NoError(t, err)
	assert.True(t, dl.Certificate.IsDownloaded)
	assert.True(t, strings.HasPrefix(dl.DownloadURL, "/uploads/certificates/"))

	var stored model.Certificate
	require.NoError(t, f.db.First(&stored, res.Certificate.ID).Error)
	assert.True(t, stored.IsDownloaded)
	assert.NotEmpty(t, stored.DocumentKey)
}

func TestRenderCertificate(t *testing.T) {
	completed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cert := &model.Certificate{
		CertificateNumber: "LS-2026-000001-0002",
		Grade:             "A",
		IssuedDate:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		CompletionDate:    &completed,
	}

	doc := string(RenderCertificate(cert, "Ada Lovelace", "Go in Practice"))
	assert.Contains(t, doc, "Ada Lovelace")
	assert.Contains(t, doc, `"Go in Practice"`)
	assert.Contains(t, doc, "LS-2026-000001-0002")
	assert.Contains(t, doc, "Issued: 2026-03-02")
	assert.Contains(t, doc, "Completed: 2026-03-01")
}
