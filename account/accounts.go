package account

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/idgen"
	"jobflow/persistence"
	"jobflow/session"
	"os"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateUserFunc          = CreateUser
	QueryUsersFunc          = QueryUsers
	CreateCompanyMemberFunc = CreateCompanyMember
	LoadPermFunc            = LoadPerm
)

// platform scope managers administer users and platform stage defaults
const platformAdminRole = domain.CompanyRoleManager + "_0"

// BootstrapAdmin seeds the initial admin account with platform manager
// perms when no user with id 1 exists yet.
func BootstrapAdmin() error {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	return db.Transaction(func(tx *gorm.DB) error {
		admin := User{}
		err := tx.Model(&User{}).Where(&User{ID: 1}).First(&admin).Error
		if err == nil {
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		initialAdminPassword := os.Getenv("INITIAL_ADMIN_PASSWORD")
		if initialAdminPassword == "" {
			initialAdminPassword = "admin123"
		}
		now := types.CurrentTimestamp()
		if err := tx.Create(&User{ID: 1, Name: "admin", Secret: HashSha256(initialAdminPassword), CreateTime: now}).Error; err != nil {
			return err
		}
		return tx.Create(&CompanyMember{UserID: 1, CompanyID: 0, Role: domain.CompanyRoleManager, CreateTime: now}).Error
	})
}

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func CreateUser(c *UserCreation, s *session.Session) (*UserInfo, error) {
	if s == nil || !s.HasRole(platformAdminRole) {
		return nil, bizerror.ErrForbidden
	}

	user := User{
		ID: idgen.NextID(userIdWorker), Name: c.Name, Nickname: c.Nickname,
		Secret:     HashSha256(c.Secret),
		CreateTime: types.CurrentTimestamp(),
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Nickname: user.Nickname}, nil
}

func QueryUsers(s *session.Session) (*[]UserInfo, error) {
	var users []UserInfo
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&User{}).Scan(&users).Error; err != nil {
		return nil, err
	}
	return &users, nil
}

// CreateCompanyMember grants a role in one company; only a manager of that
// company (or a platform admin) may grant it.
func CreateCompanyMember(c *CompanyMemberCreation, s *session.Session) (*CompanyMember, error) {
	if s == nil || (!s.HasRole(domain.CompanyRoleManager+"_"+c.CompanyID.String()) && !s.HasRole(platformAdminRole)) {
		return nil, bizerror.ErrForbidden
	}
	if c.Role != domain.CompanyRoleManager && c.Role != domain.CompanyRoleMember {
		return nil, &bizerror.ErrBadParam{}
	}

	record := CompanyMember{
		UserID: c.UserID, CompanyID: c.CompanyID, Role: c.Role,
		CreateTime: types.CurrentTimestamp(),
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		user := User{}
		if err := tx.Where(&User{ID: c.UserID}).First(&user).Error; err != nil {
			return err
		}
		company := domain.Company{}
		if err := tx.Where(&domain.Company{ID: c.CompanyID}).First(&company).Error; err != nil {
			return err
		}
		return tx.Create(&record).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// LoadPerm loads a user's perms in "<role>_<companyId>" form.
func LoadPerm(userID types.ID) []string {
	var members []CompanyMember
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	if err := db.Where(&CompanyMember{UserID: userID}).Find(&members).Error; err != nil {
		return []string{}
	}
	perms := make([]string, 0, len(members))
	for _, m := range members {
		perms = append(perms, m.Role+"_"+m.CompanyID.String())
	}
	return perms
}

func QueryAccountNames(ids []types.ID) (map[types.ID]string, error) {
	if len(ids) == 0 {
		return map[types.ID]string{}, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	var records []UserInfo
	if err := db.Model(&User{}).Where("id IN (?)", ids).Scan(&records).Error; err != nil {
		return nil, err
	}
	result := map[types.ID]string{}
	for _, r := range records {
		result[r.ID] = r.DisplayName()
	}
	return result, nil
}
