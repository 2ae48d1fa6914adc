package users

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/nochance19900208-source/Real-Estate/pkg/auth"
)

// User is the account document stored in the users collection.
type User struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Email            string             `bson:"email" json:"email"`
	Name             string             `bson:"name" json:"name"`
	Role             auth.Role          `bson:"role" json:"role"`
	HashedPassword   string             `bson:"hashed_password" json:"-"`
	StripeCustomerID string             `bson:"stripe_customer_id,omitempty" json:"-"`
	IsActive         bool               `bson:"is_active" json:"is_active"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// PublicID returns the identifier exposed to clients and used as user_id in
// subscription and favorite documents.
func (u *User) PublicID() string {
	return u.ID.Hex()
}

// IsAdmin reports whether this account bypasses the subscription gate.
func (u *User) IsAdmin() bool {
	return u.Role == auth.RoleAdmin
}

// DTO is the account representation returned to clients.
type DTO struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      auth.Role `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DTO converts the stored document into its client-facing form.
func (u *User) DTO() *DTO {
	return &DTO{
		ID:        u.PublicID(),
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
