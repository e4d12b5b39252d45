package mongo

import (
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
)

// Document shapes keep the field names the storefront's documents already use.

type destinationDoc struct {
	ID         string   `bson:"_id"`
	Name       string   `bson:"name"`
	Country    string   `bson:"country"`
	Price      float64  `bson:"price"`
	Currency   string   `bson:"currency,omitempty"`
	Img        string   `bson:"img"`
	Highlights []string `bson:"highlights,omitempty"`
	IsFeatured bool     `bson:"isFeatured"`
}

func (d destinationDoc) toDomain() domain.Destination {
	return domain.Destination(d)
}

type packageDoc struct {
	ID         string   `bson:"_id"`
	Title      string   `bson:"title"`
	Category   string   `bson:"category"`
	Duration   string   `bson:"duration"`
	Price      float64  `bson:"price"`
	Currency   string   `bson:"currency,omitempty"`
	Img        string   `bson:"img"`
	Highlights []string `bson:"highlights,omitempty"`
	IsFeatured bool     `bson:"isFeatured"`
}

func (p packageDoc) toDomain() domain.Package {
	return domain.Package(p)
}

type listingDoc struct {
	ID          string  `bson:"_id"`
	Type        string  `bson:"type"`
	Title       string  `bson:"title"`
	Departure   string  `bson:"departure,omitempty"`
	Arrival     string  `bson:"arrival,omitempty"`
	Description string  `bson:"description,omitempty"`
	Price       float64 `bson:"price"`
	Currency    string  `bson:"currency,omitempty"`
	Duration    string  `bson:"duration,omitempty"`
	Rating      float64 `bson:"rating,omitempty"`
	Img         string  `bson:"img,omitempty"`
}

func (l listingDoc) toDomain() domain.CategoryListing {
	return domain.CategoryListing(l)
}

type dealDoc struct {
	ID          string `bson:"_id"`
	Title       string `bson:"title"`
	Description string `bson:"description"`
	Img         string `bson:"img"`
	IsActive    bool   `bson:"isActive"`
}

func (d dealDoc) toDomain() domain.Deal {
	return domain.Deal(d)
}

type bookingDoc struct {
	ID              string     `bson:"_id"`
	UserID          string     `bson:"userId"`
	UserName        string     `bson:"userName"`
	UserEmail       string     `bson:"userEmail"`
	UserPhone       string     `bson:"userPhone"`
	BookingType     string     `bson:"bookingType"`
	DestinationID   string     `bson:"destinationId"`
	DestinationName string     `bson:"destinationName"`
	Date            time.Time  `bson:"date"`
	Adults          int        `bson:"adults"`
	Children        int        `bson:"children"`
	Rooms           *int       `bson:"rooms,omitempty"`
	TotalPrice      float64    `bson:"totalPrice"`
	Currency        string     `bson:"currency"`
	PaymentID       string     `bson:"paymentId"`
	PaymentMethod   string     `bson:"paymentMethod"`
	Status          string     `bson:"status"`
	CreatedAt       time.Time  `bson:"createdAt"`
	ConfirmedAt     *time.Time `bson:"confirmedAt,omitempty"`
}

func bookingFromDomain(b domain.Booking) bookingDoc {
	return bookingDoc{
		ID:              b.ID,
		UserID:          b.UserID.String(),
		UserName:        b.UserName,
		UserEmail:       b.UserEmail,
		UserPhone:       b.UserPhone,
		BookingType:     b.BookingType,
		DestinationID:   b.DestinationID,
		DestinationName: b.DestinationName,
		Date:            b.Date,
		Adults:          b.Adults,
		Children:        b.Children,
		Rooms:           b.Rooms,
		TotalPrice:      b.TotalPrice,
		Currency:        b.Currency,
		PaymentID:       b.PaymentID,
		PaymentMethod:   b.PaymentMethod,
		Status:          b.Status,
		CreatedAt:       b.CreatedAt,
		ConfirmedAt:     b.ConfirmedAt,
	}
}

func (d bookingDoc) toDomain() domain.Booking {
	userID, _ := uuid.Parse(d.UserID)
	return domain.Booking{
		ID:              d.ID,
		UserID:          userID,
		UserName:        d.UserName,
		UserEmail:       d.UserEmail,
		UserPhone:       d.UserPhone,
		BookingType:     d.BookingType,
		DestinationID:   d.DestinationID,
		DestinationName: d.DestinationName,
		Date:            d.Date,
		Adults:          d.Adults,
		Children:        d.Children,
		Rooms:           d.Rooms,
		TotalPrice:      d.TotalPrice,
		Currency:        d.Currency,
		PaymentID:       d.PaymentID,
		PaymentMethod:   d.PaymentMethod,
		Status:          d.Status,
		CreatedAt:       d.CreatedAt,
		ConfirmedAt:     d.ConfirmedAt,
	}
}

type contactDoc struct {
	ID        string    `bson:"_id"`
	FirstName string    `bson:"firstName"`
	Email     string    `bson:"email"`
	Message   string    `bson:"message"`
	CreatedAt time.Time `bson:"createdAt"`
}
