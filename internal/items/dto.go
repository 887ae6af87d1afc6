package items

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/quartermasterhq/quartermaster-backend/pkg/db/models"
	"github.com/quartermasterhq/quartermaster-backend/pkg/enums"
)

// ItemDTO is the transport shape for an inventory item.
type ItemDTO struct {
	ID            uuid.UUID        `json:"id"`
	TeamID        uuid.UUID        `json:"team_id"`
	ProductName   string           `json:"product_name"`
	ActualName    *string          `json:"actual_name,omitempty"`
	NSN           *string          `json:"nsn,omitempty"`
	LIIN          *string          `json:"liin,omitempty"`
	EndItemNIIN   *string          `json:"end_item_niin,omitempty"`
	SerialNumber  *string          `json:"serial_number,omitempty"`
	Quantity      int              `json:"quantity"`
	AuthQuantity  int              `json:"auth_quantity"`
	Description   *string          `json:"description,omitempty"`
	Status        enums.ItemStatus `json:"status"`
	ParentID      *uuid.UUID       `json:"parent_id,omitempty"`
	IsKit         bool             `json:"is_kit"`
	ImageURL      *string          `json:"image_url,omitempty"`
	DamageReports []string         `json:"damage_reports"`
	CreatedBy     uuid.UUID        `json:"created_by"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ItemDetailDTO enriches an item with context that needs extra lookups.
type ItemDetailDTO struct {
	ItemDTO
	ParentName     *string    `json:"parent_name,omitempty"`
	LastReviewedBy *string    `json:"last_reviewed_by,omitempty"`
	LastReviewedAt *time.Time `json:"last_reviewed_at,omitempty"`
}

// Page is one cursor page of items plus the parent/child index for the
// rows it contains.
type Page struct {
	Items      []ItemDTO                   `json:"items"`
	Children   map[uuid.UUID][]uuid.UUID   `json:"children"`
	NextCursor string                      `json:"next_cursor,omitempty"`
}

// CreateItemInput carries the fields accepted when recording an item.
type CreateItemInput struct {
	ProductName  string     `json:"product_name" validate:"required"`
	ActualName   *string    `json:"actual_name"`
	NSN          *string    `json:"nsn"`
	LIIN         *string    `json:"liin"`
	EndItemNIIN  *string    `json:"end_item_niin"`
	SerialNumber *string    `json:"serial_number"`
	Quantity     int        `json:"quantity" validate:"gte=0"`
	AuthQuantity int        `json:"auth_quantity" validate:"gte=0"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	ParentID     *uuid.UUID `json:"parent_id"`
	IsKit        bool       `json:"is_kit"`
	ImageDataURL *string    `json:"image_data_url"`
}

// UpdateItemInput is a partial patch; nil fields are left untouched.
type UpdateItemInput struct {
	ProductName  *string    `json:"product_name"`
	ActualName   *string    `json:"actual_name"`
	NSN          *string    `json:"nsn"`
	LIIN         *string    `json:"liin"`
	EndItemNIIN  *string    `json:"end_item_niin"`
	SerialNumber *string    `json:"serial_number"`
	Quantity     *int       `json:"quantity" validate:"omitempty,gte=0"`
	AuthQuantity *int       `json:"auth_quantity" validate:"omitempty,gte=0"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	ParentID     *uuid.UUID `json:"parent_id"`
	ImageDataURL *string    `json:"image_data_url"`
}

// FromModel converts a persisted item into its DTO. Image URLs are
// resolved separately because they require presigning.
func FromModel(m *models.Item) *ItemDTO {
	if m == nil {
		return nil
	}
	return &ItemDTO{
		ID:            m.ID,
		TeamID:        m.TeamID,
		ProductName:   m.ProductName,
		ActualName:    m.ActualName,
		NSN:           m.NSN,
		LIIN:          m.LIIN,
		EndItemNIIN:   m.EndItemNIIN,
		SerialNumber:  m.SerialNumber,
		Quantity:      m.Quantity,
		AuthQuantity:  m.AuthQuantity,
		Description:   m.Description,
		Status:        m.Status,
		ParentID:      m.ParentID,
		IsKit:         m.IsKit,
		DamageReports: append([]string(nil), []string(m.DamageReports)...),
		CreatedBy:     m.CreatedBy,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toStringArray(values []string) pq.StringArray {
	if values == nil {
		return pq.StringArray{}
	}
	return pq.StringArray(values)
}
