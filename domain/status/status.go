package status

// Status is the coarse reporting status every stage maps to.
type Status string

const (
	Planning  Status = "PLANNING"
	Active    Status = "ACTIVE"
	OnHold    Status = "ON_HOLD"
	Completed Status = "COMPLETED"
	Cancelled Status = "CANCELLED"
)

func (s Status) IsTerminal() bool {
	return s == Completed || s == Cancelled
}

func (s Status) IsValid() bool {
	switch s {
	case Planning, Active, OnHold, Completed, Cancelled:
		return true
	}
	return false
}
