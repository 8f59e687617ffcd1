package utils

import "time"

// Application Constants
const (
	AppName    = "KhabarLagbe"
	AppVersion = "1.0.0"

	// Default values
	DefaultLanguage    = "bn"
	DefaultCurrency    = "BDT"
	DefaultCountryCode = "+880"
	DefaultTimeZone    = "Asia/Dhaka"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Order Constants
	OrderNumberPrefix    = "KL"
	DefaultDeliveryFee   = 4000 // paisa
	DefaultTaxRate       = 5    // percent of subtotal
	MaxItemsPerOrder     = 50
	DefaultSearchRadius  = 5.0  // kilometers
	MaxSearchRadius      = 15.0 // kilometers
	RiderCandidateLimit  = 20
	OrderLockTTL         = 10 * time.Second
	RatingWindow         = 7 * 24 * time.Hour
	CancellationNoteMax  = 500
	StatusNoteMaxLength  = 500
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error Messages
const (
	ErrInvalidInput       = "invalid input"
	ErrInternalServer     = "internal server error"
	ErrUnauthorized       = "unauthorized"
	ErrForbidden          = "forbidden"
	ErrNotFound           = "not found"
	ErrValidationFailed   = "validation failed"
	ErrOrderNotFound      = "order not found"
	ErrPaymentNotFound    = "payment not found"
	ErrPromoNotFound      = "promo code not found"
	ErrOrderTaken         = "order already taken"
	ErrOrderNotAcceptable = "order not open for acceptance"
)

// Cache Keys
const (
	CacheOrderPrefix     = "order:"
	CachePromoPrefix     = "promo:"
	CacheOrderLockPrefix = "order_lock:"
	CacheRiderGeoKey     = "rider_locations"
)

// Notification channels. One room per order plus one per actor; the
// redis topic bridges poll-based clients.
const (
	ChannelOrderPrefix      = "order_"
	ChannelUserPrefix       = "user_"
	ChannelRestaurantPrefix = "restaurant_"
	ChannelRiderPrefix      = "rider_"
	RedisOrderEventTopic    = "order_events"
)
