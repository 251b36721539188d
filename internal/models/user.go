package models

import "time"

type UserRole string

const (
	UserRoleBuyer      UserRole = "buyer"
	UserRoleDealer     UserRole = "dealer"
	UserRoleSalesAgent UserRole = "sales_agent"
)

func (r UserRole) Valid() bool {
	switch r {
	case UserRoleBuyer, UserRoleDealer, UserRoleSalesAgent:
		return true
	}
	return false
}

// IsStaff reports whether the role works for the dealership.
func (r UserRole) IsStaff() bool {
	return r == UserRoleDealer || r == UserRoleSalesAgent
}

type NotificationPrefs struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
}

// Profile is the role dependent part of a user record. Only the fields that
// belong to the user's role are populated.
type Profile struct {
	// buyer
	Address           string             `json:"address,omitempty" mapstructure:"address"`
	PreferredContact  string             `json:"preferredContact,omitempty" mapstructure:"preferredContact"`
	SavedSearches     []string           `json:"savedSearches,omitempty" mapstructure:"savedSearches"`
	Favorites         []string           `json:"favorites,omitempty" mapstructure:"favorites"`
	NotificationPrefs *NotificationPrefs `json:"notificationPrefs,omitempty" mapstructure:"notificationPrefs"`

	// dealer and sales agent
	Department     string  `json:"department,omitempty" mapstructure:"department"`
	Supervisor     string  `json:"supervisor,omitempty" mapstructure:"supervisor"`
	Region         string  `json:"region,omitempty" mapstructure:"region"`
	Specialization string  `json:"specialization,omitempty" mapstructure:"specialization"`
	SalesTarget    float64 `json:"salesTarget,omitempty" mapstructure:"salesTarget"`
	YTDSales       float64 `json:"ytdSales,omitempty" mapstructure:"ytdSales"`
}

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   []byte    `json:"passwordHash"`
	Role           UserRole  `json:"role"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Phone          string    `json:"phone"`
	EmployeeID     string    `json:"employeeId,omitempty"`
	CommissionRate float64   `json:"commissionRate,omitempty"`
	Profile        Profile   `json:"profile"`
	CreatedAt      time.Time `json:"createdAt"`
	LastLogin      time.Time `json:"lastLogin"`
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

func (u User) IsFavorite(vehicleID string) bool {
	for _, id := range u.Profile.Favorites {
		if id == vehicleID {
			return true
		}
	}
	return false
}

// Session is the signed-in projection of a user held by the session store.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      UserRole  `json:"role"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Remember  bool      `json:"remember"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the session is still usable at now. A session whose
// expiry is not strictly after now is dead.
func (s Session) Valid(now time.Time) bool {
	return s.ExpiresAt.After(now)
}
