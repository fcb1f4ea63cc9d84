package repository

import (
	"context"
	"learnsphere_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CertificateRepository struct {
	DB *gorm.DB
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: db}
}

func (r *CertificateRepository) WithTx(tx *gorm.DB) *CertificateRepository {
	return &CertificateRepository{DB: tx}
}

func (r *CertificateRepository) FindByUserCourse(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindCommitted 读取其他事务已提交的证书，用于唯一键冲突后的恢复。
// MySQL 可重复读下普通读取看不到并发事务提交的行，需要加共享锁读取最新版本
func (r *CertificateRepository) FindCommitted(ctx context.Context, userID, courseID uint) (*model.Certificate, error) {
	db := r.DB.WithContext(ctx)
	if db.Dialector.Name() != "sqlite" {
		db = db.Clauses(clause.Locking{Strength: "SHARE"})
	}
	var cert model.Certificate
	err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// FindByIDAndUser 只返回属于该学员的证书
func (r *CertificateRepository) FindByIDAndUser(ctx context.Context, id, userID uint) (*model.Certificate, error) {
	var cert model.Certificate
	err := r.DB.WithContext(ctx).Preload("Course").
		Where("id = ? AND user_id = ?", id, userID).
		First(&cert).Error
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// Create 唯一索引冲突时返回 gorm.ErrDuplicatedKey
func (r *CertificateRepository) Create(ctx context.Context, cert *model.Certificate) error {
	return r.DB.WithContext(ctx).Omit("Course").Create(cert).Error
}

func (r *CertificateRepository) ListByUser(ctx context.Context, userID uint) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.DB.WithContext(ctx).Preload("Course").
		Where("user_id = ?", userID).
		Order("issued_date DESC, id DESC").
		Find(&certs).Error
	return certs, err
}

func (r *CertificateRepository) MarkDownloaded(ctx context.Context, id, userID uint) error {
	return r.DB.WithContext(ctx).Model(&model.Certificate{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_downloaded", true).Error
}

func (r *CertificateRepository) SetDocumentKey(ctx context.Context, id uint, key string) error {
	return r.DB.WithContext(ctx).Model(&model.Certificate{}).Where("id = ?", id).Update("document_key", key).Error
}
