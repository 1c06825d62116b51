package account_test

import (
	"context"
	"jobflow/account"
	"jobflow/bizerror"
	"jobflow/domain"
	"jobflow/persistence"
	"jobflow/testinfra"
	"testing"
	"time"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartMysqlTestDatabase("jobflow")
	assert.Nil(t, db.DS.GormDB(context.Background()).AutoMigrate(
		&account.User{}, &account.CompanyMember{}, &domain.Company{}).Error)
	persistence.ActiveDataSourceManager = db.DS
	*testDatabase = db
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func TestBootstrapAdmin(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should seed the admin account with platform manager perms exactly once", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		Expect(account.BootstrapAdmin()).To(BeNil())
		Expect(account.BootstrapAdmin()).To(BeNil())

		db := testDatabase.DS.GormDB(context.Background())
		var users []account.User
		Expect(db.Find(&users).Error).To(BeNil())
		Expect(len(users)).To(Equal(1))
		Expect(users[0].Name).To(Equal("admin"))

		Expect(account.LoadPerm(1)).To(Equal([]string{domain.CompanyRoleManager + "_0"}))
	})
}

func TestCreateUser(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should only allow platform managers to create users", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		creation := &account.UserCreation{Name: "ann", Secret: "secret-1"}
		info, err := account.CreateUser(creation, testinfra.BuildSession(10, domain.CompanyRoleManager+"_100"))
		Expect(info).To(BeNil())
		Expect(err).To(Equal(bizerror.ErrForbidden))

		info, err = account.CreateUser(creation, testinfra.BuildSession(1, domain.CompanyRoleManager+"_0"))
		Expect(err).To(BeNil())
		Expect(info.Name).To(Equal("ann"))

		// the secret is stored hashed
		db := testDatabase.DS.GormDB(context.Background())
		u := account.User{}
		Expect(db.Where(&account.User{ID: info.ID}).First(&u).Error).To(BeNil())
		Expect(u.Secret).To(Equal(account.HashSha256("secret-1")))
	})
}

func TestCreateCompanyMember(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should grant a role and surface it through LoadPerm", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		admin := testinfra.BuildSession(1, domain.CompanyRoleManager+"_0")
		info, err := account.CreateUser(&account.UserCreation{Name: "ann", Secret: "secret-1"}, admin)
		assert.Nil(t, err)

		db := testDatabase.DS.GormDB(context.Background())
		assert.Nil(t, db.Create(&domain.Company{ID: 100, Name: "Acme Roofing", CreatorID: 1, CreateTime: time.Now()}).Error)

		_, err = account.CreateCompanyMember(&account.CompanyMemberCreation{
			UserID: info.ID, CompanyID: 100, Role: domain.CompanyRoleMember,
		}, testinfra.BuildSession(2, domain.CompanyRoleManager+"_200"))
		Expect(err).To(Equal(bizerror.ErrForbidden))

		member, err := account.CreateCompanyMember(&account.CompanyMemberCreation{
			UserID: info.ID, CompanyID: 100, Role: domain.CompanyRoleMember,
		}, admin)
		Expect(err).To(BeNil())
		Expect(member.Role).To(Equal(domain.CompanyRoleMember))

		Expect(account.LoadPerm(info.ID)).To(Equal([]string{domain.CompanyRoleMember + "_100"}))
	})
}
