package users

import "errors"

const (
	// MaxOperators caps the number of operator accounts.
	MaxOperators = 10
	// MinPasswordLength applies to operator and admin passwords.
	MinPasswordLength = 4
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrOperatorExists     = errors.New("operator already exists")
	ErrOperatorNotFound   = errors.New("operator not found")
	ErrOperatorLimit      = errors.New("maximum number of operators reached")
	ErrReservedUsername   = errors.New("username is reserved")
	ErrPasswordTooShort   = errors.New("password must be at least 4 characters")
	ErrWrongPassword      = errors.New("current password is incorrect")
)

// Credential is a plaintext username/password pair, used for seeding and login.
type Credential struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// operatorRecord is a stored operator account.
type operatorRecord struct {
	Username     string
	PasswordHash string
}
