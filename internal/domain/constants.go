package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Entity names used in error messages.
const (
	EntityReferral = "Referral"
	EntitySlab     = "CommissionSlab"
	EntityUser     = "User"
)

// Websocket event types on the admin referral feed.
const (
	EventTypeReferralCreated = "referral.created"
	EventTypeAccrued         = "referral.accrued"
	EventTypePaid            = "referral.paid"
	EventTypeSlabChanged     = "slab.changed"
)

// CommissionScale is the number of decimal places kept on money values.
const CommissionScale = 2
