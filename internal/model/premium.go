package model

// PremiumStatus is the entitlement record written by the billing webhook
// under premium:<email>. A missing record means a free identity.
type PremiumStatus struct {
	IsActive   bool   `json:"isActive"`
	CustomerID string `json:"customerId,omitempty"`
}
