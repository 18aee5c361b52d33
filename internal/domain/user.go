package domain

import "time"

// User es el registro de cuenta que persiste el store de usuarios.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Name          *string   `json:"name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// PublicUser es la vista del usuario que se devuelve a los clientes.
type PublicUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          *string   `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Public devuelve la vista sin datos sensibles.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// UserUpdate describe los campos a modificar; nil significa "sin cambios".
// Un Name apuntando a "" borra el nombre.
type UserUpdate struct {
	Email         *string
	Name          *string
	PasswordHash  *string
	EmailVerified *bool
}

// IsEmpty indica si no hay ningun campo para actualizar.
func (u UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Name == nil && u.PasswordHash == nil && u.EmailVerified == nil
}
