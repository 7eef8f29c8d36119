package catalog

import "github.com/mesh-intelligence/powdertrack/pkg/types"

// Slot-array capacities of the DMLS schema.
const (
	CouponSlots = 256
	PartSlots   = 128
)

// featureSettingTypes are the nine per-feature laser parameter sets a
// Setting points at, paired with the Setting column that references each.
var featureSettingTypes = []struct {
	Type   types.EntityType
	Table  string
	Column string
}{
	{types.TypeHatchUpSkin, "hatch_up_skin", "hatch_up_skin"},
	{types.TypeHatchInfill, "hatch_infill", "hatch_infill"},
	{types.TypeHatchDownSkin, "hatch_down_skin", "hatch_down_skin"},
	{types.TypeContourOnPart, "contour_on_part", "contour_on_part"},
	{types.TypeContourStandard, "contour_standard", "contour_standard"},
	{types.TypeContourDown, "contour_down", "contour_down"},
	{types.TypeEdge, "edge", "edge"},
	{types.TypeCore, "core", "core"},
	{types.TypeSupport, "support", "support"},
}

func col(name string, kind types.ColumnKind, nullable bool) types.Column {
	return types.Column{Name: name, Kind: kind, Nullable: nullable}
}

func ref(name string, target types.EntityType, nullable bool) types.Column {
	return types.Column{Name: name, Kind: types.ColumnRef, Nullable: nullable, Ref: target}
}

// Default returns the catalog of the DMLS process database with every rule
// set to PolicyWarn and every slot array using ScopeMandatoryPrefix.
func Default() *Catalog {
	c := New()

	c.AddTable(types.TableSchema{
		Type: types.TypePowder, Table: "powders", Key: "id", KeyKind: types.KeyText,
		Columns: []types.Column{
			col("init_date_time", types.ColumnTimestamp, true),
			col("description", types.ColumnText, true),
			col("mat_id", types.ColumnText, true),
			col("man_lot", types.ColumnText, true),
			col("subgroup", types.ColumnInteger, true),
			col("rev", types.ColumnInteger, true),
			col("quantity", types.ColumnReal, true),
		},
	})
	c.AddTable(types.TableSchema{
		Type: types.TypePowderResults, Table: "powder_results", Key: "powder", KeyKind: types.KeyText,
		KeyRef: types.TypePowder,
		Columns: []types.Column{
			col("water_content", types.ColumnReal, true),
			col("skeletal_density", types.ColumnReal, true),
			col("sphericity", types.ColumnReal, true),
			col("symmetry", types.ColumnReal, true),
			col("aspect_ratio", types.ColumnReal, true),
			col("d10", types.ColumnInteger, true),
			col("d50", types.ColumnInteger, true),
			col("d90", types.ColumnInteger, true),
			col("xcmin10", types.ColumnInteger, true),
			col("xcmin50", types.ColumnInteger, true),
			col("xcmin90", types.ColumnInteger, true),
			col("perc_wt_gt_53", types.ColumnReal, true),
			col("perc_wt_gt_63", types.ColumnReal, true),
			col("apparent_dens", types.ColumnReal, true),
		},
	})

	for _, fs := range featureSettingTypes {
		c.AddTable(types.TableSchema{
			Type: fs.Type, Table: fs.Table, Key: "id", KeyKind: types.KeyInteger,
			Columns: []types.Column{
				col("name", types.ColumnText, true),
				col("description", types.ColumnText, true),
				col("is_preset", types.ColumnBool, true),
				col("power", types.ColumnReal, true),
				col("scan_speed", types.ColumnReal, true),
				col("layer_thick", types.ColumnReal, true),
				col("hatch_dist", types.ColumnReal, true),
			},
		})
	}

	setting := types.TableSchema{
		Type: types.TypeSetting, Table: "settings", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("name", types.ColumnText, false),
			col("description", types.ColumnText, false),
			col("is_preset", types.ColumnBool, false),
		},
	}
	for _, fs := range featureSettingTypes {
		setting.Columns = append(setting.Columns, ref(fs.Column, fs.Type, false))
	}
	c.AddTable(setting)

	c.AddTable(types.TableSchema{
		Type: types.TypePlate, Table: "plates", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("description", types.ColumnText, true),
			col("material", types.ColumnText, false),
			col("foreign_keys_list", types.ColumnJSON, true),
			col("stamped_heights", types.ColumnJSON, true),
		},
	})
	c.AddTable(types.TableSchema{
		Type: types.TypeCoupon, Table: "coupons", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("name", types.ColumnText, false),
			col("description", types.ColumnText, false),
			col("is_preset", types.ColumnBool, false),
			col("x_position", types.ColumnReal, true),
			col("y_position", types.ColumnReal, true),
			col("z_position", types.ColumnReal, true),
			col("direction", types.ColumnText, false),
		},
	})
	c.AddTable(types.TableSchema{
		Type: types.TypeCouponArray, Table: "coupon_arrays", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("name", types.ColumnText, true),
			col("description", types.ColumnText, true),
			col("is_preset", types.ColumnBool, true),
		},
	})
	c.AddTable(types.TableSchema{
		Type: types.TypePart, Table: "parts", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("name", types.ColumnText, true),
			col("description", types.ColumnText, true),
			col("file_path", types.ColumnText, true),
			col("is_complete", types.ColumnBool, true),
		},
	})
	c.AddTable(types.TableSchema{
		Type: types.TypePartArray, Table: "part_arrays", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("name", types.ColumnText, true),
			col("description", types.ColumnText, true),
		},
	})
	c.AddTable(types.TableSchema{
		Type: types.TypeBuild, Table: "builds", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("datetime", types.ColumnTimestamp, false),
			col("name", types.ColumnText, false),
			col("description", types.ColumnText, false),
			col("powder_weight_required", types.ColumnReal, true),
			col("powder_weight_loaded", types.ColumnReal, true),
			ref("setting", types.TypeSetting, false),
			ref("powder", types.TypePowder, false),
			ref("plate", types.TypePlate, false),
			ref("coupon_array", types.TypeCouponArray, false),
		},
	})
	c.AddTable(types.TableSchema{
		Type: types.TypeWorkOrder, Table: "work_orders", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("name", types.ColumnText, false),
			col("description", types.ColumnText, false),
			col("pvid", types.ColumnInteger, false),
			col("parts", types.ColumnJSON, true),
			ref("parent", types.TypeWorkOrder, true),
		},
	})
	c.AddTable(types.TableSchema{
		Type: types.TypeJob, Table: "jobs", Key: "id", KeyKind: types.KeyInteger,
		Columns: []types.Column{
			col("name", types.ColumnText, false),
			col("description", types.ColumnText, false),
			col("parts", types.ColumnJSON, true),
			ref("work_order", types.TypeWorkOrder, false),
			ref("build", types.TypeBuild, false),
		},
	})

	c.AddSlotArray(types.SlotArraySpec{
		Owner: types.TypeCouponArray, Prefix: "coupon", Capacity: CouponSlots,
		Element: types.TypeCoupon, MinMandatorySlots: 0,
	})
	c.AddSlotArray(types.SlotArraySpec{
		Owner: types.TypePartArray, Prefix: "part", Capacity: PartSlots,
		Element: types.TypePart, MinMandatorySlots: 1,
	})

	for _, fs := range featureSettingTypes {
		c.Register(types.ReferenceRule{Source: types.TypeSetting, Field: fs.Column, Target: fs.Type})
	}
	c.Register(types.ReferenceRule{Source: types.TypePowderResults, Field: "powder", Target: types.TypePowder})
	c.Register(types.ReferenceRule{Source: types.TypeBuild, Field: "setting", Target: types.TypeSetting})
	c.Register(types.ReferenceRule{Source: types.TypeBuild, Field: "powder", Target: types.TypePowder})
	c.Register(types.ReferenceRule{Source: types.TypeBuild, Field: "plate", Target: types.TypePlate})
	c.Register(types.ReferenceRule{Source: types.TypeBuild, Field: "coupon_array", Target: types.TypeCouponArray})
	c.Register(types.ReferenceRule{Source: types.TypeWorkOrder, Field: "parent", Target: types.TypeWorkOrder, Nullable: true})
	c.Register(types.ReferenceRule{Source: types.TypeJob, Field: "work_order", Target: types.TypeWorkOrder})
	c.Register(types.ReferenceRule{Source: types.TypeJob, Field: "build", Target: types.TypeBuild})
	c.Register(types.ReferenceRule{
		Source: types.TypeCouponArray, Field: "coupon", Target: types.TypeCoupon, Nullable: true,
		Slots: &types.SlotArraySpec{},
	})
	c.Register(types.ReferenceRule{
		Source: types.TypePartArray, Field: "part", Target: types.TypePart, Nullable: true,
		Slots: &types.SlotArraySpec{},
	})

	return c
}

// ForConfig returns the default catalog with the config's policies applied,
// validated.
func ForConfig(cfg types.Config) (*Catalog, error) {
	c := Default().Apply(cfg)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
