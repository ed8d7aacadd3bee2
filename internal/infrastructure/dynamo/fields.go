package dynamo

// DynamoDB attribute names used in keys and expressions across all repos.
const (
	fieldUserID        = "user_id"
	fieldEmail         = "email"
	fieldPhone         = "phone"
	fieldCode          = "code"
	fieldTransactionID = "transaction_id"
	fieldCreatedAt     = "created_at"
	fieldUpdatedAt     = "updated_at"
	fieldWatchlistID   = "watchlist_id"
	fieldPairKey       = "pair"
	fieldReservationID = "reservation_id"
	fieldExpiresAt     = "expires_at"
	fieldUsed          = "used"
)

const (
	indexEmail         = "email-index"
	indexPhone         = "phone-index"
	indexUserCreatedAt = "user_id-created_at-index"
)
