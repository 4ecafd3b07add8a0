package model

import "time"

// Address is the denormalized postal address kept on user rows.
type Address struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
	Landmark string `json:"landmark"`
}

// UserProfile is the self-service view of a user-kind principal.  It never
// carries the password hash.
type UserProfile struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Role  Role   `json:"role"`
	Address
	TotalSavings     float64   `json:"totalSavings"`
	MembershipStatus string    `json:"membershipStatus"`
	FavoritesCount   int       `json:"favoritesCount"`
	BookingsCount    int       `json:"bookingsCount"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// WorkerProfile is the self-service view of a worker-kind principal.
type WorkerProfile struct {
	ID            uint64    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Role          Role      `json:"role"`
	Service       string    `json:"service"`
	Rating        float64   `json:"rating"`
	TotalEarnings float64   `json:"totalEarnings"`
	CompletedJobs int       `json:"completedJobs"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ProfilePatch lists the fields a user may change about themselves.  A nil
// pointer means "leave as is".  Email and role cannot be patched.
type ProfilePatch struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Street   *string `json:"street,omitempty"`
	City     *string `json:"city,omitempty"`
	State    *string `json:"state,omitempty"`
	Pincode  *string `json:"pincode,omitempty"`
	Landmark *string `json:"landmark,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Street == nil && p.City == nil &&
		p.State == nil && p.Pincode == nil && p.Landmark == nil
}

// Apply copies the present fields of p onto u.
func (p ProfilePatch) Apply(u *UserProfile) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.Name, p.Name)
	set(&u.Phone, p.Phone)
	set(&u.Street, p.Street)
	set(&u.City, p.City)
	set(&u.State, p.State)
	set(&u.Pincode, p.Pincode)
	set(&u.Landmark, p.Landmark)
}
