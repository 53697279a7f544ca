package models

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleShopOwner Role = "shop_owner"
)

// Principal is the caller identity handed to us by the identity provider.
type Principal struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}
