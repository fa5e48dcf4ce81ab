package importer

// gibddColumns: коды показателей формы ГИБДД для колонок 2..43 листа, по три на группу:
// всего, погибло, ранено.
var gibddColumns = []string{
	"dtp_total", "dtp_total_dead", "dtp_total_injured",
	"dtp_pedestrians", "dtp_pedestrians_dead", "dtp_pedestrians_injured",
	"dtp_children_16", "dtp_children_16_dead", "dtp_children_16_injured",
	"dtp_drivers_violation", "dtp_drivers_violation_dead", "dtp_drivers_violation_injured",
	"dtp_oncoming_lane", "dtp_oncoming_lane_dead", "dtp_oncoming_lane_injured",
	"dtp_children_18", "dtp_children_18_dead", "dtp_children_18_injured",
	"dtp_in_settlements", "dtp_in_settlements_dead", "dtp_in_settlements_injured",
	"dtp_on_highways", "dtp_on_highways_dead", "dtp_on_highways_injured",
	"dtp_railway_crossings", "dtp_railway_crossings_dead", "dtp_railway_crossings_injured",
	"dtp_outside_settlements", "dtp_outside_settlements_dead", "dtp_outside_settlements_injured",
	"dtp_hit_and_run", "dtp_hit_and_run_dead", "dtp_hit_and_run_injured",
	"dtp_driver_fled", "dtp_driver_fled_dead", "dtp_driver_fled_injured",
	"dtp_unknown_vehicle", "dtp_unknown_vehicle_dead", "dtp_unknown_vehicle_injured",
	"dtp_photo_radar", "dtp_photo_radar_dead", "dtp_photo_radar_injured",
}

const gibddFirstColumn = 2
