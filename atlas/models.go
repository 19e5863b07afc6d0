package atlas

import (
	"encoding/json"
	"time"
)

// WireTimeLayout is the literal timestamp format the platform speaks.
// All times are converted to UTC before formatting.
const WireTimeLayout = "2006-01-02T15:04:05Z"

// ConstructKind identifies which of a device's capability lists a
// construct originates from.
type ConstructKind string

const (
	KindControlPoint ConstructKind = "control_point"
	KindMetric       ConstructKind = "metric"
	KindOutput       ConstructKind = "output"
	KindCondition    ConstructKind = "condition"
	KindSetting      ConstructKind = "setting"
)

// DeviceKind identifies the equipment class of a device.
type DeviceKind string

const (
	DeviceCompressor  DeviceKind = "compressor"
	DeviceEvaporator  DeviceKind = "evaporator"
	DeviceCondenser   DeviceKind = "condenser"
	DeviceVessel      DeviceKind = "vessel"
	DeviceEnergyMeter DeviceKind = "energy meter"
)

// Aggregation is a statistical reduction applied to samples within a
// sampling interval.
type Aggregation string

const (
	AggregateAvg   Aggregation = "avg"
	AggregateMin   Aggregation = "min"
	AggregateMax   Aggregation = "max"
	AggregateFirst Aggregation = "first"
	AggregateLast  Aggregation = "last"
)

// DefaultAggregation is applied at the grouping boundary when a result
// arrives without an aggregation field.
const DefaultAggregation = AggregateAvg

// Construct is an addressable, typed point of data or control on a device.
type Construct struct {
	ID    string        `json:"id"`
	Alias string        `json:"alias"`
	Kind  ConstructKind `json:"-"`
	Unit  string        `json:"unit,omitempty"`
}

// Setting is the wire shape of a device setting. Settings carry a name
// instead of an alias; the catalog exposes them with Alias == Name.
type Setting struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Unit string `json:"unit,omitempty"`
}

// Connection is a weak reference to another device by id.
type Connection struct {
	DeviceID string `json:"deviceId"`
	Kind     string `json:"kind"`
}

// Device is a read-only topology snapshot as served by the devices
// endpoint. The five capability lists are normalized by NewCatalog.
type Device struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Alias         string       `json:"alias"`
	Kind          DeviceKind   `json:"kind"`
	ControlPoints []Construct  `json:"controlPoints"`
	Metrics       []Construct  `json:"metrics"`
	Outputs       []Construct  `json:"outputs"`
	Conditions    []Construct  `json:"conditions"`
	Settings      []Setting    `json:"settings"`
	Upstream      []Connection `json:"upstream"`
	Downstream    []Connection `json:"downstream"`
}

// Agent is the gateway process at a facility that serves device topology
// and historical data.
type Agent struct {
	AgentID string `json:"agent_id"`
}

// Facility is a physical site with one or more monitoring agents.
type Facility struct {
	OrganizationID string  `json:"organization_id"`
	FacilityID     string  `json:"facility_id"`
	DisplayName    string  `json:"display_name"`
	ShortName      string  `json:"short_name"`
	Address        string  `json:"address"`
	Timezone       string  `json:"timezone"`
	Agents         []Agent `json:"agents"`
}

// Deployment describes the active blueprint at a facility. The blueprint
// version selects which topology snapshot the devices endpoint serves.
type Deployment struct {
	ID               string `json:"id"`
	AgentID          string `json:"agent_id"`
	OrganizationID   string `json:"organization_id"`
	BlueprintVersion int    `json:"blueprint_version"`
}

// MetricSpec declares which constructs to read. Exactly one of Name and
// AliasRegex is set. With Name, ConstructKind is filled in from the device
// kind's vocabulary; with AliasRegex, ConstructKind must be supplied.
type MetricSpec struct {
	Name          string        `json:"name,omitempty" yaml:"name"`
	AliasRegex    string        `json:"alias_regex,omitempty" yaml:"alias_regex"`
	DeviceKind    DeviceKind    `json:"device_kind" yaml:"device_kind"`
	ConstructKind ConstructKind `json:"construct_kind,omitempty" yaml:"construct_kind"`
}

// Filter selects the facilities and metrics for one read.
type Filter struct {
	Facilities []string     `json:"facilities" yaml:"facilities"`
	Metrics    []MetricSpec `json:"metrics" yaml:"metrics"`
}

// ReadingQuery requests historical values for one reading-sourced
// construct (control point, metric, output or condition).
type ReadingQuery struct {
	SourceID    string        `json:"sourceId"`
	AggregateBy []Aggregation `json:"aggregateBy"`
}

// SettingQuery requests historical values for one setting.
type SettingQuery struct {
	SettingID   string        `json:"settingId"`
	AggregateBy []Aggregation `json:"aggregateBy"`
}

// SourceKind distinguishes the two wire shapes of streamed results.
type SourceKind string

const (
	SourceReading SourceKind = "reading"
	SourceSetting SourceKind = "setting"
)

// ReadingNumber is the numeric payload of a reading result. Scaled is the
// canonical sample value; Raw is the unscaled device word.
type ReadingNumber struct {
	Raw    float64 `json:"raw"`
	Scaled float64 `json:"scaled"`
}

// ResultValue is one aggregation's payload within a streamed record.
// Fields mirror the wire losslessly: absent fields stay nil/empty, and the
// avg default is applied only at the grouping stage.
type ResultValue struct {
	Aggregation Aggregation     `json:"aggregation,omitempty"`
	Number      *ReadingNumber  `json:"-"`
	Scalar      *float64        `json:"-"`
	Bool        *bool           `json:"boolValue,omitempty"`
	Enum        *int            `json:"enumValue,omitempty"`
	Sequence    json.RawMessage `json:"sequenceValue,omitempty"`
	Schedule    json.RawMessage `json:"scheduleValue,omitempty"`
}

// RawResultRecord is one decoded NDJSON line, normalized across the
// reading and setting wire shapes.
type RawResultRecord struct {
	Time     string
	SourceID string
	Kind     SourceKind
	Forced   *bool
	Results  []ResultValue
}

// Sample is one timestamped value within a time series group.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TimeSeriesGroup is a strictly-ordered series for one
// (device, construct, construct kind, aggregation) key. Groups are built
// incrementally during stream consumption and are not reopened afterwards.
type TimeSeriesGroup struct {
	DeviceID       string        `json:"device_id"`
	DeviceName     string        `json:"device_name"`
	DeviceAlias    string        `json:"device_alias"`
	ConstructID    string        `json:"construct_id"`
	ConstructAlias string        `json:"construct_alias"`
	ConstructKind  ConstructKind `json:"construct_kind"`
	Aggregation    Aggregation   `json:"aggregation"`
	Samples        []Sample      `json:"samples"`
}
