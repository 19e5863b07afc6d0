package atlas

// metricVocabulary maps, per device kind, the declarable metric names to
// the construct kind each name addresses. A MetricSpec given by name must
// use a name from its device kind's vocabulary; the construct kind is
// filled in from this table.
var metricVocabulary = map[DeviceKind]map[string]ConstructKind{
	DeviceCompressor: {
		"DischargePressure":    KindMetric,
		"DischargeTemperature": KindMetric,
		"SuctionPressure":      KindMetric,
		"SuctionTemperature":   KindMetric,
		"MotorCurrent":         KindMetric,
		"SlideValvePosition":   KindControlPoint,
		"RunCommand":           KindOutput,
		"RunStatus":            KindCondition,
		"CapacityLimit":        KindSetting,
	},
	DeviceCondenser: {
		"DischargePressure":    KindMetric,
		"DischargeTemperature": KindMetric,
		"FanSpeed":             KindControlPoint,
		"FanCommand":           KindOutput,
		"SprayPumpStatus":      KindCondition,
		"FanSpeedSetpoint":     KindSetting,
	},
	DeviceEvaporator: {
		"SupplyTemperature":       KindMetric,
		"ReturnTemperature":       KindMetric,
		"FanSpeed":                KindControlPoint,
		"FanCommand":              KindOutput,
		"DefrostStatus":           KindCondition,
		"RoomTemperatureSetpoint": KindSetting,
	},
	DeviceVessel: {
		"SuctionPressure": KindMetric,
		"LiquidLevel":     KindMetric,
		"PumpCommand":     KindOutput,
		"HighLevelAlarm":  KindCondition,
		"LevelSetpoint":   KindSetting,
	},
	DeviceEnergyMeter: {
		"Power":       KindMetric,
		"Energy":      KindMetric,
		"PowerFactor": KindMetric,
		"Demand":      KindMetric,
	},
}

// VocabularyFor returns the metric name vocabulary for a device kind.
// Unknown device kinds have an empty vocabulary.
func VocabularyFor(kind DeviceKind) map[string]ConstructKind {
	return metricVocabulary[kind]
}
