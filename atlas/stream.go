package atlas

import (
	"encoding/json"
	"strings"
)

// LineSource is the streamed-response collaborator consumed by the
// decoder: a finite, forward-only sequence of text lines ending in io.EOF.
// *transport.LineStream satisfies it.
type LineSource interface {
	Next() (string, error)
	Close() error
}

// RecordStream decodes an NDJSON response body into RawResultRecords,
// pulling one line per Next call. Each line is decoded independently;
// empty and malformed lines are skipped without aborting the stream, so
// one bad line cannot void a facility's series. The consumer may Close
// early to abandon the remaining lines cleanly.
type RecordStream struct {
	lines   LineSource
	kind    SourceKind
	skipped int
}

// DecodeReadings wraps the body of a historical-readings query.
func DecodeReadings(lines LineSource) *RecordStream {
	return &RecordStream{lines: lines, kind: SourceReading}
}

// DecodeSettings wraps the body of a historical-settings query.
func DecodeSettings(lines LineSource) *RecordStream {
	return &RecordStream{lines: lines, kind: SourceSetting}
}

// readingLine is the wire shape of a reading-source record.
type readingLine struct {
	Time     string          `json:"time"`
	SourceID string          `json:"sourceId"`
	Forced   *bool           `json:"forced"`
	Results  []readingResult `json:"results"`
}

type readingResult struct {
	Aggregation Aggregation    `json:"aggregation"`
	NumberValue *ReadingNumber `json:"numberValue"`
	BoolValue   *bool          `json:"boolValue"`
	EnumValue   *int           `json:"enumValue"`
}

// settingLine is the wire shape of a setting-source record. Setting
// numeric payloads are already scalar, and settings additionally carry
// sequence and schedule variants.
type settingLine struct {
	Time      string          `json:"time"`
	SettingID string          `json:"settingId"`
	Results   []settingResult `json:"results"`
}

type settingResult struct {
	Aggregation   Aggregation     `json:"aggregation"`
	NumberValue   *float64        `json:"numberValue"`
	BoolValue     *bool           `json:"boolValue"`
	EnumValue     *int            `json:"enumValue"`
	SequenceValue json.RawMessage `json:"sequenceValue"`
	ScheduleValue json.RawMessage `json:"scheduleValue"`
}

// Next returns the next decoded record, or io.EOF at the end of the body.
// Transport failures mid-stream pass through unchanged.
func (s *RecordStream) Next() (*RawResultRecord, error) {
	for {
		line, err := s.lines.Next()
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, ok := s.decode(line)
		if !ok {
			s.skipped++
			continue
		}
		return rec, nil
	}
}

func (s *RecordStream) decode(line string) (*RawResultRecord, bool) {
	if s.kind == SourceSetting {
		var sl settingLine
		if err := json.Unmarshal([]byte(line), &sl); err != nil {
			return nil, false
		}
		if sl.SettingID == "" || sl.Time == "" {
			return nil, false
		}
		rec := &RawResultRecord{
			Time:     sl.Time,
			SourceID: sl.SettingID,
			Kind:     SourceSetting,
		}
		for _, r := range sl.Results {
			rec.Results = append(rec.Results, ResultValue{
				Aggregation: r.Aggregation,
				Scalar:      r.NumberValue,
				Bool:        r.BoolValue,
				Enum:        r.EnumValue,
				Sequence:    r.SequenceValue,
				Schedule:    r.ScheduleValue,
			})
		}
		return rec, true
	}

	var rl readingLine
	if err := json.Unmarshal([]byte(line), &rl); err != nil {
		return nil, false
	}
	if rl.SourceID == "" || rl.Time == "" {
		return nil, false
	}
	rec := &RawResultRecord{
		Time:     rl.Time,
		SourceID: rl.SourceID,
		Kind:     SourceReading,
		Forced:   rl.Forced,
	}
	for _, r := range rl.Results {
		rec.Results = append(rec.Results, ResultValue{
			Aggregation: r.Aggregation,
			Number:      r.NumberValue,
			Bool:        r.BoolValue,
			Enum:        r.EnumValue,
		})
	}
	return rec, true
}

// Skipped reports how many malformed lines were dropped so far.
func (s *RecordStream) Skipped() int { return s.skipped }

// Close abandons any remaining lines and releases the body.
func (s *RecordStream) Close() error { return s.lines.Close() }
