package types

import (
	"fmt"
	"strconv"
)

// EntityType names a kind of record. The string is also the display name
// used in dependency reports.
type EntityType string

// Entity types of the DMLS process database.
const (
	TypePowder        EntityType = "Powder"
	TypePowderResults EntityType = "PowderResults"

	TypeHatchUpSkin     EntityType = "HatchUpSkin"
	TypeHatchInfill     EntityType = "HatchInfill"
	TypeHatchDownSkin   EntityType = "HatchDownSkin"
	TypeContourOnPart   EntityType = "ContourOnPart"
	TypeContourStandard EntityType = "ContourStandard"
	TypeContourDown     EntityType = "ContourDown"
	TypeEdge            EntityType = "Edge"
	TypeCore            EntityType = "Core"
	TypeSupport         EntityType = "Support"
	TypeSetting         EntityType = "Setting"

	TypePlate       EntityType = "Plate"
	TypeCoupon      EntityType = "Coupon"
	TypeCouponArray EntityType = "CouponArray"
	TypePart        EntityType = "Part"
	TypePartArray   EntityType = "PartArray"

	TypeBuild     EntityType = "Build"
	TypeWorkOrder EntityType = "WorkOrder"
	TypeJob       EntityType = "Job"
)

// ID is a primary key value. Integer surrogate keys are carried in their
// decimal form; composite keys (Powder) are carried verbatim. The empty ID
// means "no record".
type ID = string

// Ref identifies one record.
type Ref struct {
	Type EntityType
	ID   ID
}

// String renders the ref as "Type#id".
func (r Ref) String() string {
	return fmt.Sprintf("%s#%s", r.Type, r.ID)
}

// Record is the unit read and written through an EntityStore. Fields holds
// column values keyed by column name; the primary key lives in ID, never in
// Fields. A nil field value is SQL NULL.
type Record struct {
	Type   EntityType
	ID     ID
	Fields map[string]any
}

// Ref returns the record's identity.
func (r *Record) Ref() Ref {
	return Ref{Type: r.Type, ID: r.ID}
}

// RefField returns the ID stored in a reference column, or "" when the
// column is null or absent.
func (r *Record) RefField(name string) ID {
	v, ok := r.Fields[name]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return fmt.Sprint(x)
	}
}

// CompareIDs orders two IDs. When both parse as integers they compare
// numerically so that "9" sorts before "10"; otherwise they compare as
// strings.
func CompareIDs(a, b ID) int {
	ai, aerr := strconv.ParseInt(a, 10, 64)
	bi, berr := strconv.ParseInt(b, 10, 64)
	if aerr == nil && berr == nil {
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
