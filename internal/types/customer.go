package types

// CustomerStatus is the commercial status of a reseller customer. Only
// ACTIVE customers are invoiced.
type CustomerStatus string

const (
	CustomerStatusActive     CustomerStatus = "ACTIVE"
	CustomerStatusSuspended  CustomerStatus = "SUSPENDED"
	CustomerStatusTerminated CustomerStatus = "TERMINATED"
)

func (s CustomerStatus) Validate() bool {
	switch s {
	case CustomerStatusActive, CustomerStatusSuspended, CustomerStatusTerminated:
		return true
	}
	return false
}
