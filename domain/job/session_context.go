package job

import (
	"context"
	"jobflow/session"
)

func sessionContext(s *session.Session) context.Context {
	if s == nil || s.Context == nil {
		return context.Background()
	}
	return s.Context
}
