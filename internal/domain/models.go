// Package domain defines the persistence models for couples, guests,
// vendors, conversations, and messages. These types are mapped with GORM
// and form the core data layer of the wedding-planning backend.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Sender types for Message.SenderType.
const (
	SenderCouple = "couple"
	SenderVendor = "vendor"
)

// Guest RSVP statuses.
const (
	GuestConfirmed = "confirmed"
	GuestPending   = "pending"
	GuestDeclined  = "declined"
)

// Couple represents a planning account. Wedding details stored here are the
// lowest-precedence source of matching preferences: an explicit query
// parameter or a live guest-count estimate both override them.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - WeddingDate: planned date, nil until the couple sets one.
//   - Location: free-text venue town/area, used for vendor location matching.
//   - GuestEstimate: manually entered guest count, nil when unknown.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Couple struct {
	ID            string         `json:"id"             gorm:"type:char(36);primaryKey"`
	DisplayName   string         `json:"display_name"   gorm:"type:varchar(120);not null;default:''"`
	WeddingDate   *time.Time     `json:"wedding_date,omitempty"`
	Location      *string        `json:"location,omitempty"       gorm:"type:varchar(255)"`
	GuestEstimate *int           `json:"guest_estimate,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"-"              gorm:"index"`
}

// TableName returns the database table name for Couple.
func (Couple) TableName() string { return "couples" }

// Guest is a single invitee on a couple's guest list. Confirmed guests
// drive the guest-count estimate used by vendor matching.
type Guest struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	CoupleID  string         `json:"couple_id" gorm:"type:char(36);not null;index:idx_couple_guests"`
	Name      string         `json:"name"      gorm:"type:varchar(120);not null"`
	Status    string         `json:"status"    gorm:"type:varchar(16);not null;default:'pending';check:status IN ('confirmed','pending','declined')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for Guest.
func (Guest) TableName() string { return "guests" }

// Vendor is an immutable snapshot of a supplier listing. Category-specific
// capacity bounds live either directly on the vendor (catering) or on its
// products (venues), mirroring how listings are authored.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - CategoryID: one of the fixed vendor categories (see match.Category).
//   - Description / Location / PriceRange: optional listing copy.
//   - CateringMinGuests / CateringMaxGuests: serving bounds for caterers.
//   - CulturalExpertise: canonical tradition keys the vendor advertises.
type Vendor struct {
	ID                string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	BusinessName      string         `json:"businessName"       gorm:"type:varchar(255);not null"`
	CategoryID        *string        `json:"categoryId,omitempty"   gorm:"type:varchar(32);index:idx_vendor_category"`
	Description       *string        `json:"description,omitempty"  gorm:"type:text"`
	Location          *string        `json:"location,omitempty"     gorm:"type:varchar(255)"`
	PriceRange        *string        `json:"priceRange,omitempty"   gorm:"type:varchar(32)"`
	CateringMinGuests *int           `json:"cateringMinGuests,omitempty"`
	CateringMaxGuests *int           `json:"cateringMaxGuests,omitempty"`
	CulturalExpertise []string       `json:"culturalExpertise,omitempty" gorm:"serializer:json"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `json:"-"              gorm:"index"`

	// Products are the vendor's offerings; venue capacity bounds are
	// carried per product.
	Products []VendorProduct `json:"products,omitempty" gorm:"foreignKey:VendorID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Vendor.
func (Vendor) TableName() string { return "vendors" }

// VendorProduct is a single offering within a vendor listing. For venues the
// guest bounds describe the room; other categories leave them nil.
type VendorProduct struct {
	ID             string         `json:"id"        gorm:"type:char(36);primaryKey"`
	VendorID       string         `json:"vendor_id" gorm:"type:char(36);not null;index:idx_vendor_products"`
	Name           string         `json:"name"      gorm:"type:varchar(255);not null"`
	VenueMinGuests *int           `json:"venueMinGuests,omitempty"`
	VenueMaxGuests *int           `json:"venueMaxGuests,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for VendorProduct.
func (VendorProduct) TableName() string { return "vendor_products" }

// Conversation is a couple↔vendor message thread.
type Conversation struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	CoupleID  string         `json:"couple_id" gorm:"type:char(36);not null;index:idx_couple_convs"`
	VendorID  string         `json:"vendor_id" gorm:"type:char(36);not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message is a single utterance within a conversation, authored by either
// side of the thread. IDs are server-assigned and unique, which is what the
// realtime client relies on for de-duplication.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ConversationID: foreign key to the owning conversation (indexed).
//   - SenderType: "couple" or "vendor" (enforced by DB constraint).
//   - SenderID: identifier of the author on the sending side.
//   - Body: message text.
//   - AttachmentURL / AttachmentMIME: optional attachment reference.
//   - EditedAt: set when the body is changed after sending.
//   - ReadAt: set when the counterpart opens the message.
//   - DeletedAt: soft deletion marker.
type Message struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string         `json:"conversationId"  gorm:"type:char(36);not null;index:idx_conv_msgs,priority:1"`
	SenderType     string         `json:"senderType"      gorm:"type:varchar(16);not null;check:sender_type IN ('couple','vendor')"`
	SenderID       string         `json:"senderId"        gorm:"type:char(36);not null"`
	Body           string         `json:"body"            gorm:"type:text;not null"`
	AttachmentURL  *string        `json:"attachmentUrl,omitempty"  gorm:"type:varchar(1024)"`
	AttachmentMIME *string        `json:"attachmentMime,omitempty" gorm:"type:varchar(128)"`
	CreatedAt      time.Time      `json:"createdAt"       gorm:"index:idx_conv_msgs,priority:2"`
	UpdatedAt      time.Time      `json:"updated_at"`
	EditedAt       *time.Time     `json:"editedAt,omitempty"`
	ReadAt         *time.Time     `json:"readAt,omitempty"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	// Conversation is the parent thread. Messages are cascade-deleted
	// if their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
