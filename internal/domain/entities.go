package domain

import (
	"time"

	"github.com/google/uuid"
)

type Destination struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Country    string   `json:"country"`
	Price      float64  `json:"price"`
	Currency   string   `json:"currency"`
	Img        string   `json:"img"`
	Highlights []string `json:"highlights,omitempty"`
	IsFeatured bool     `json:"is_featured"`
}

type Package struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Category   string   `json:"category"`
	Duration   string   `json:"duration"`
	Price      float64  `json:"price"`
	Currency   string   `json:"currency"`
	Img        string   `json:"img"`
	Highlights []string `json:"highlights,omitempty"`
	IsFeatured bool     `json:"is_featured"`
}

// CategoryListing is a single offer on a category page (a flight, a hotel, a cab...).
type CategoryListing struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Departure   string  `json:"departure,omitempty"`
	Arrival     string  `json:"arrival,omitempty"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
	Img         string  `json:"img,omitempty"`
}

type Deal struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Img         string `json:"img"`
	IsActive    bool   `json:"is_active"`
}

const (
	KindDestination = "destination"
	KindPackage     = "package"
)

// BookableItem is the snapshot of whatever the traveler picked, carried by value
// through the rest of the flow.
type BookableItem struct {
	Kind     string  `json:"kind"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Country  string  `json:"country,omitempty"`
	Duration string  `json:"duration,omitempty"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Img      string  `json:"img,omitempty"`
}

func (i BookableItem) Lodging() bool {
	return IsLodging(i.Kind)
}

func (d Destination) Bookable() BookableItem {
	return BookableItem{
		Kind:     KindDestination,
		ID:       d.ID,
		Name:     d.Name,
		Country:  d.Country,
		Price:    d.Price,
		Currency: d.Currency,
		Img:      d.Img,
	}
}

func (p Package) Bookable() BookableItem {
	return BookableItem{
		Kind:     KindPackage,
		ID:       p.ID,
		Name:     p.Title,
		Category: p.Category,
		Duration: p.Duration,
		Price:    p.Price,
		Currency: p.Currency,
		Img:      p.Img,
	}
}

func (l CategoryListing) Bookable() BookableItem {
	return BookableItem{
		Kind:     l.Type,
		ID:       l.ID,
		Name:     l.Title,
		Duration: l.Duration,
		Price:    l.Price,
		Currency: l.Currency,
		Img:      l.Img,
	}
}

const BookingStatusConfirmed = "confirmed"

type Booking struct {
	ID              string     `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	UserName        string     `json:"user_name"`
	UserEmail       string     `json:"user_email"`
	UserPhone       string     `json:"user_phone"`
	BookingType     string     `json:"booking_type"`
	DestinationID   string     `json:"destination_id"`
	DestinationName string     `json:"destination_name"`
	Date            time.Time  `json:"date"`
	Adults          int        `json:"adults"`
	Children        int        `json:"children"`
	Rooms           *int       `json:"rooms"`
	TotalPrice      float64    `json:"total_price"`
	Currency        string     `json:"currency"`
	PaymentID       string     `json:"payment_id"`
	PaymentMethod   string     `json:"payment_method"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
}

type ContactMessage struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type User struct {
	ID           uuid.UUID
	Email        string
	DisplayName  string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Identity is the signed-in principal resolved from a bearer token.
type Identity struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

type IntentStatus string

const (
	IntentCreated  IntentStatus = "CREATED"
	IntentCaptured IntentStatus = "CAPTURED"
	IntentBooked   IntentStatus = "BOOKED"
	IntentExpired  IntentStatus = "EXPIRED"
)

// PaymentIntent is the local ledger row for one gateway order. CAPTURED without
// BOOKED is the "payment captured, booking pending" marker the reconciler works from.
type PaymentIntent struct {
	ID             uuid.UUID
	FlowID         uuid.UUID
	UserID         uuid.UUID
	GatewayOrderID string
	PaymentID      string
	Amount         int64
	Currency       string
	Status         IntentStatus
	Draft          Booking
	Attempts       int
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const (
	EventBookingConfirmed = "booking.confirmed"
	EventContactReceived  = "contact.received"
)
