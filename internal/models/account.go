package models

import "time"

// AccountStatus is the connection state of a LinkedIn sender account
type AccountStatus string

const (
	AccountConnected    AccountStatus = "connected"
	AccountDisconnected AccountStatus = "disconnected"
	AccountError        AccountStatus = "error"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountConnected, AccountDisconnected, AccountError:
		return true
	}
	return false
}

// LinkedinAccount is a sender identity with a request quota.
// Progress is derived on read and never stored.
type LinkedinAccount struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Status        AccountStatus `json:"status"`
	RequestsSent  int           `json:"requestsSent"`
	RequestsLimit int           `json:"requestsLimit"`
	Progress      float64       `json:"progress"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// AccountDraft carries the client fields accepted when creating an account
type AccountDraft struct {
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Status        AccountStatus `json:"status"`
	RequestsSent  int           `json:"requestsSent"`
	RequestsLimit int           `json:"requestsLimit"`
}
