package model

import "time"

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

// Profile holds the personal details of a user.  A user has at most one
// active profile; deleted profiles stay in the table with IsActive=false.
type Profile struct {
	ID               ID
	UserID           ID
	FirstName        string
	LastName         string
	Phone            string
	Address          Address
	Position         *string
	BirthDate        time.Time
	Avatar           *string
	EmergencyContact *EmergencyContact
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
