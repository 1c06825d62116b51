package session

import (
	"context"
	"strings"
	"time"

	"github.com/fundwit/go-commons/types"
)

type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
	Perms    []string `json:"perms"`

	SigningTime time.Time `json:"-"`

	Context context.Context `json:"-"`
}

type Identity struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

func (s *Session) Clone() Session {
	c := *s
	c.Perms = append([]string{}, s.Perms...)
	return c
}

func (s *Session) HasRole(role string) bool {
	for _, v := range s.Perms {
		if v == role {
			return true
		}
	}
	return false
}

func (s *Session) HasRoleSuffix(suffix string) bool {
	for _, v := range s.Perms {
		if strings.HasSuffix(v, suffix) {
			return true
		}
	}
	return false
}

func (s *Session) HasCompanyViewPerm(companyID types.ID) bool {
	return s.HasRoleSuffix("_" + companyID.String())
}

// VisibleCompanies parse visible company ids from Session.Perms
func (s *Session) VisibleCompanies() []types.ID {
	var companyIds []types.ID
	for _, v := range s.Perms {
		pairs := strings.Split(v, "_")
		if len(pairs) == 2 {
			id, err := types.ParseID(pairs[1])
			if err != nil {
				continue
			}
			companyIds = append(companyIds, id)
		}
	}
	if companyIds == nil {
		return []types.ID{}
	}
	return companyIds
}
