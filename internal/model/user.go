package model

import (
	"time"
)

// RoleDoctor is the role stored on doctor user records
const RoleDoctor = "doctor"

// User is a record in the users directory. It is owned by the user management
// side; this service only reads it.
type User struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	Firstname string    `json:"firstname" bson:"firstname"`
	Surname   string    `json:"surname" bson:"surname"`
	Role      string    `json:"role,omitempty" bson:"role,omitempty"`
	Email     string    `json:"email" bson:"email"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
