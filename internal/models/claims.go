package models

import "github.com/golang-jwt/jwt/v5"

// Roles resolved by the authentication collaborator.
const (
	RoleUser     = "USER"
	RoleReceiver = "RECEIVER"
	RoleAdmin    = "ADMIN"
)

// UserClaims is the identity the auth collaborator resolves for a request.
// ActingAsReceiverID is set when a merchant operator is acting on behalf of
// one of its submerchants.
type UserClaims struct {
	UserID             uint   `json:"user_id"`
	Role               string `json:"role"`
	ReceiverID         *uint  `json:"receiver_id,omitempty"`
	ActingAsReceiverID *uint  `json:"acting_as_receiver_id,omitempty"`
	jwt.RegisteredClaims
}
