package company

import (
	"context"
	"jobflow/account"
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/idgen"
	"jobflow/persistence"
	"jobflow/session"
	"time"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	idWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateCompanyFunc  = CreateCompany
	QueryCompaniesFunc = QueryCompanies
)

func CreateCompany(c *domain.CompanyCreation, s *session.Session) (*domain.Company, error) {
	if s == nil {
		return nil, bizerror.ErrForbidden
	}

	record := domain.Company{
		ID:   idgen.NextID(idWorker),
		Name: c.Name,

		CreatorID:  s.Identity.ID,
		CreateTime: time.Now().Round(time.Millisecond),
	}

	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		// the creator manages the company they created
		return tx.Create(&account.CompanyMember{
			UserID: s.Identity.ID, CompanyID: record.ID, Role: domain.CompanyRoleManager,
			CreateTime: types.CurrentTimestamp(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func QueryCompanies(query *domain.CompanyQuery, s *session.Session) (*[]domain.Company, error) {
	var companies []domain.Company
	db := persistence.ActiveDataSourceManager.GormDB(sessionContext(s))

	q := db.Model(&domain.Company{})
	if query.Name != "" {
		q = q.Where("name like ?", "%"+query.Name+"%")
	}
	visibleCompanies := s.VisibleCompanies()
	if len(visibleCompanies) == 0 {
		return &[]domain.Company{}, nil
	}
	q = q.Where("id in (?)", visibleCompanies)
	if err := q.Find(&companies).Error; err != nil {
		return nil, err
	}
	return &companies, nil
}

func sessionContext(s *session.Session) context.Context {
	if s == nil || s.Context == nil {
		return context.Background()
	}
	return s.Context
}
