package models

// Operator is the public view of an operator account.
type Operator struct {
	Username string `json:"username"`
}
