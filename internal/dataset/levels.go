package dataset

import "fmt"

// The four built-in datasets, one per ISA-95 automation level. Units are
// declared in the order the upstream generators emit them, which is already
// a valid dependency order; the computed load order only reorders where the
// graph allows it.

var level1 = &Dataset{
	Level:       1,
	Name:        "level1",
	Description: "Process sensing and actuation: sensors, actuators, readings, commands, diagnostics and control loops",
	Units: []Unit{
		{Name: "sensors", KeyColumn: "sensor_id"},
		{Name: "actuators", KeyColumn: "actuator_id"},
		{Name: "sensor_readings", KeyColumn: "reading_id"},
		{Name: "actuator_commands", KeyColumn: "command_id"},
		{Name: "device_diagnostics", KeyColumn: "diagnostic_id"},
		{Name: "control_loops", KeyColumn: "loop_id"},
	},
	References: []Reference{
		{Child: "sensor_readings", FKColumn: "sensor_id", Parent: "sensors", ParentKey: "sensor_id"},
		{Child: "actuator_commands", FKColumn: "actuator_id", Parent: "actuators", ParentKey: "actuator_id"},
		{Child: "control_loops", FKColumn: "process_variable_sensor_id", Parent: "sensors", ParentKey: "sensor_id"},
		{Child: "control_loops", FKColumn: "control_output_actuator_id", Parent: "actuators", ParentKey: "actuator_id"},
	},
	// device_diagnostics.device_id draws from sensors and actuators at
	// once, so it orders after both but has no single-column check.
	OrderingEdges: []OrderingEdge{
		{Parent: "sensors", Child: "device_diagnostics"},
		{Parent: "actuators", Child: "device_diagnostics"},
	},
}

var level2 = &Dataset{
	Level:       2,
	Name:        "level2",
	Description: "Supervisory control and batch automation: facilities, process areas, equipment, recipes and batch execution",
	Units: []Unit{
		{Name: "facilities", KeyColumn: "facility_id"},
		{Name: "process_areas", KeyColumn: "area_id"},
		{Name: "equipment", KeyColumn: "equipment_id"},
		{Name: "equipment_states", KeyColumn: "state_id"},
		{Name: "alarms", KeyColumn: "alarm_id"},
		{Name: "recipes", KeyColumn: "recipe_id"},
		{Name: "batch_steps", KeyColumn: "step_id"},
		{Name: "batches", KeyColumn: "batch_id"},
		{Name: "batch_execution", KeyColumn: "execution_id"},
		{Name: "process_parameters", KeyColumn: "parameter_id"},
	},
	References: []Reference{
		{Child: "process_areas", FKColumn: "facility_id", Parent: "facilities", ParentKey: "facility_id"},
		{Child: "equipment", FKColumn: "area_id", Parent: "process_areas", ParentKey: "area_id"},
		{Child: "equipment_states", FKColumn: "equipment_id", Parent: "equipment", ParentKey: "equipment_id"},
		{Child: "alarms", FKColumn: "equipment_id", Parent: "equipment", ParentKey: "equipment_id"},
		{Child: "batch_steps", FKColumn: "recipe_id", Parent: "recipes", ParentKey: "recipe_id"},
		{Child: "batches", FKColumn: "recipe_id", Parent: "recipes", ParentKey: "recipe_id"},
		{Child: "batches", FKColumn: "equipment_id", Parent: "equipment", ParentKey: "equipment_id"},
		{Child: "batch_execution", FKColumn: "batch_id", Parent: "batches", ParentKey: "batch_id"},
		{Child: "batch_execution", FKColumn: "step_id", Parent: "batch_steps", ParentKey: "step_id"},
		{Child: "batch_execution", FKColumn: "equipment_id", Parent: "equipment", ParentKey: "equipment_id"},
		{Child: "process_parameters", FKColumn: "equipment_id", Parent: "equipment", ParentKey: "equipment_id"},
		{Child: "process_parameters", FKColumn: "batch_id", Parent: "batches", ParentKey: "batch_id"},
		// Hierarchy self references, verified but not ordered
		{Child: "facilities", FKColumn: "parent_facility_id", Parent: "facilities", ParentKey: "facility_id"},
		{Child: "process_areas", FKColumn: "parent_area_id", Parent: "process_areas", ParentKey: "area_id"},
		{Child: "equipment", FKColumn: "parent_equipment_id", Parent: "equipment", ParentKey: "equipment_id"},
		{Child: "batches", FKColumn: "parent_batch_id", Parent: "batches", ParentKey: "batch_id"},
	},
}

var level3 = &Dataset{
	Level:       3,
	Name:        "level3",
	Description: "Manufacturing operations: work orders, material flow, quality and maintenance",
	Units: []Unit{
		{Name: "work_orders", KeyColumn: "work_order_id"},
		{Name: "material_lots", KeyColumn: "lot_id"},
		{Name: "material_transactions", KeyColumn: "transaction_id"},
		{Name: "material_consumption", KeyColumn: "consumption_id"},
		{Name: "quality_tests", KeyColumn: "test_id"},
		{Name: "quality_events", KeyColumn: "event_id"},
		{Name: "maintenance_activities", KeyColumn: "activity_id"},
		{Name: "resource_utilization", KeyColumn: ""}, // interval data, no row key
		{Name: "production_performance", KeyColumn: "performance_id"},
	},
	References: []Reference{
		{Child: "material_transactions", FKColumn: "lot_id", Parent: "material_lots", ParentKey: "lot_id"},
		{Child: "material_transactions", FKColumn: "work_order_id", Parent: "work_orders", ParentKey: "work_order_id"},
		{Child: "material_consumption", FKColumn: "lot_id", Parent: "material_lots", ParentKey: "lot_id"},
		{Child: "material_consumption", FKColumn: "work_order_id", Parent: "work_orders", ParentKey: "work_order_id"},
		{Child: "quality_tests", FKColumn: "lot_id", Parent: "material_lots", ParentKey: "lot_id"},
		{Child: "quality_tests", FKColumn: "work_order_id", Parent: "work_orders", ParentKey: "work_order_id"},
		{Child: "quality_events", FKColumn: "lot_id", Parent: "material_lots", ParentKey: "lot_id"},
		{Child: "maintenance_activities", FKColumn: "work_order_id", Parent: "work_orders", ParentKey: "work_order_id"},
		{Child: "production_performance", FKColumn: "work_order_id", Parent: "work_orders", ParentKey: "work_order_id"},
		{Child: "material_lots", FKColumn: "parent_lot_id", Parent: "material_lots", ParentKey: "lot_id"},
	},
	// resource_utilization rows mix equipment, personnel, material and
	// utility resources; only the work order and lot pools come from
	// relations in this dataset.
	OrderingEdges: []OrderingEdge{
		{Parent: "work_orders", Child: "resource_utilization"},
		{Parent: "material_lots", Child: "resource_utilization"},
	},
}

var level4 = &Dataset{
	Level:       4,
	Name:        "level4",
	Description: "Business planning and logistics: products, orders, procurement, inventory and costing",
	Units: []Unit{
		{Name: "products", KeyColumn: "product_id"},
		{Name: "materials", KeyColumn: "material_id"},
		{Name: "bill_of_materials", KeyColumn: "bom_id"},
		{Name: "customers", KeyColumn: "customer_id"},
		{Name: "suppliers", KeyColumn: "supplier_id"},
		{Name: "personnel", KeyColumn: "personnel_id"},
		{Name: "customer_orders", KeyColumn: "order_id"},
		{Name: "order_lines", KeyColumn: "line_id"},
		{Name: "purchase_orders", KeyColumn: "po_id"},
		{Name: "purchase_order_lines", KeyColumn: "line_id"},
		{Name: "facilities", KeyColumn: "facility_id"},
		{Name: "storage_locations", KeyColumn: "location_id"},
		{Name: "shifts", KeyColumn: "shift_id"},
		{Name: "production_schedules", KeyColumn: "schedule_id"},
		{Name: "scheduled_production", KeyColumn: "scheduled_id"},
		{Name: "material_lots", KeyColumn: "lot_id"},
		{Name: "inventory_transactions", KeyColumn: "transaction_id"},
		{Name: "material_consumption", KeyColumn: "consumption_id"},
		{Name: "costs", KeyColumn: "cost_id"},
		{Name: "cogs", KeyColumn: "cogs_id"},
	},
	References: []Reference{
		{Child: "bill_of_materials", FKColumn: "product_id", Parent: "products", ParentKey: "product_id"},
		{Child: "bill_of_materials", FKColumn: "material_id", Parent: "materials", ParentKey: "material_id"},
		{Child: "customer_orders", FKColumn: "customer_id", Parent: "customers", ParentKey: "customer_id"},
		{Child: "customer_orders", FKColumn: "sales_rep_id", Parent: "personnel", ParentKey: "personnel_id"},
		{Child: "order_lines", FKColumn: "order_id", Parent: "customer_orders", ParentKey: "order_id"},
		{Child: "order_lines", FKColumn: "product_id", Parent: "products", ParentKey: "product_id"},
		{Child: "purchase_orders", FKColumn: "supplier_id", Parent: "suppliers", ParentKey: "supplier_id"},
		{Child: "purchase_orders", FKColumn: "buyer_id", Parent: "personnel", ParentKey: "personnel_id"},
		{Child: "purchase_order_lines", FKColumn: "po_id", Parent: "purchase_orders", ParentKey: "po_id"},
		{Child: "purchase_order_lines", FKColumn: "material_id", Parent: "materials", ParentKey: "material_id"},
		{Child: "storage_locations", FKColumn: "facility_id", Parent: "facilities", ParentKey: "facility_id"},
		{Child: "shifts", FKColumn: "facility_id", Parent: "facilities", ParentKey: "facility_id"},
		{Child: "shifts", FKColumn: "supervisor_id", Parent: "personnel", ParentKey: "personnel_id"},
		{Child: "production_schedules", FKColumn: "facility_id", Parent: "facilities", ParentKey: "facility_id"},
		{Child: "scheduled_production", FKColumn: "schedule_id", Parent: "production_schedules", ParentKey: "schedule_id"},
		{Child: "scheduled_production", FKColumn: "product_id", Parent: "products", ParentKey: "product_id"},
		{Child: "scheduled_production", FKColumn: "order_id", Parent: "customer_orders", ParentKey: "order_id"},
		{Child: "material_lots", FKColumn: "material_id", Parent: "materials", ParentKey: "material_id"},
		{Child: "material_lots", FKColumn: "supplier_id", Parent: "suppliers", ParentKey: "supplier_id"},
		{Child: "material_lots", FKColumn: "storage_location_id", Parent: "storage_locations", ParentKey: "location_id"},
		{Child: "inventory_transactions", FKColumn: "material_id", Parent: "materials", ParentKey: "material_id"},
		{Child: "inventory_transactions", FKColumn: "lot_id", Parent: "material_lots", ParentKey: "lot_id"},
		{Child: "inventory_transactions", FKColumn: "from_location_id", Parent: "storage_locations", ParentKey: "location_id"},
		{Child: "inventory_transactions", FKColumn: "to_location_id", Parent: "storage_locations", ParentKey: "location_id"},
		{Child: "material_consumption", FKColumn: "lot_id", Parent: "material_lots", ParentKey: "lot_id"},
		{Child: "costs", FKColumn: "product_id", Parent: "products", ParentKey: "product_id"},
		{Child: "cogs", FKColumn: "product_id", Parent: "products", ParentKey: "product_id"},
		// Hierarchy self references, verified but not ordered
		{Child: "products", FKColumn: "parent_product_id", Parent: "products", ParentKey: "product_id"},
		{Child: "personnel", FKColumn: "manager_id", Parent: "personnel", ParentKey: "personnel_id"},
		{Child: "facilities", FKColumn: "parent_facility_id", Parent: "facilities", ParentKey: "facility_id"},
		{Child: "storage_locations", FKColumn: "parent_location_id", Parent: "storage_locations", ParentKey: "location_id"},
		{Child: "material_lots", FKColumn: "parent_lot_id", Parent: "material_lots", ParentKey: "lot_id"},
	},
}

var registry = []*Dataset{level1, level2, level3, level4}

// Levels returns all built-in datasets in level order.
func Levels() []*Dataset {
	return registry
}

// ByLevel returns the dataset for an ISA-95 level number.
func ByLevel(level int) (*Dataset, error) {
	for _, d := range registry {
		if d.Level == level {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown dataset level %d (valid levels: 1-4)", level)
}

// ByName returns the dataset with the given name, e.g. "level3".
func ByName(name string) (*Dataset, error) {
	for _, d := range registry {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("unknown dataset %q (valid names: level1, level2, level3, level4)", name)
}

// ValidateAll validates every built-in dataset. Run at startup so that a
// broken registry refuses to load anything.
func ValidateAll() error {
	for _, d := range registry {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
