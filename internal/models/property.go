package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Property struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	URL          string         `json:"url"`
	ImageURL     string         `json:"image_url"`
	Price        float64        `gorm:"default:0;index" json:"price"`
	Description  string         `gorm:"type:text" json:"description"`
	Location     string         `gorm:"size:200" json:"location"`
	Bedrooms     int            `gorm:"default:0" json:"bedrooms"`
	DateOnSale   string         `gorm:"size:10" json:"date_on_sale"` // YYYY-MM-DD
	EstateAgent  string         `gorm:"size:100" json:"estate_agent"`
	Reduced      bool           `gorm:"default:false" json:"reduced"`
	Views        bool           `gorm:"default:false" json:"views"`
	Gardens      bool           `gorm:"default:false" json:"gardens"`
	Outbuildings bool           `gorm:"default:false" json:"outbuildings"`
	Condition    string         `gorm:"size:100" json:"condition"`
	Features     datatypes.JSON `json:"features"` // JSON array of strings
	AddedBy      uuid.UUID      `gorm:"type:uuid;index" json:"added_by"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// FeatureList decodes the stored feature array. Malformed data reads as empty.
func (p *Property) FeatureList() []string {
	if len(p.Features) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(p.Features, &out); err != nil {
		return []string{}
	}
	return out
}

// SetFeatures stores features trimmed, without empties and without
// case-insensitive duplicates, preserving first-seen order.
func (p *Property) SetFeatures(features []string) {
	p.Features = EncodeFeatures(features)
}

// EncodeFeatures normalises a feature list into its stored JSON form.
func EncodeFeatures(features []string) datatypes.JSON {
	seen := make(map[string]bool, len(features))
	clean := make([]string, 0, len(features))
	for _, f := range features {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		key := strings.ToLower(f)
		if seen[key] {
			continue
		}
		seen[key] = true
		clean = append(clean, f)
	}
	raw, _ := json.Marshal(clean)
	return datatypes.JSON(raw)
}
