// Package export decodes a FIT file down to CanonicalSample rows, the one
// slice of the retained FIT-ingestion tooling that fitimport.ToSamples
// bridges into the fuel-rate telemetry domain (see cmd/fleet-jobctl's
// import-fit subcommand).
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/kosssst/fleetms/fitimport/llmexport"
)

// recordGlobalNum is the FIT global message number for "record", the only
// message kind buildCanonicalSamples reads.
const recordGlobalNum = 20

// SamplesFromFit decodes fitPath down to its CanonicalSample rows, using
// scratchDir as scratch space for the intermediate lossless export bundle.
func SamplesFromFit(fitPath, scratchDir string) ([]CanonicalSample, error) {
	baseExport, err := llmexport.ExportFile(fitPath, scratchDir, llmexport.ExportOptions{
		Overwrite:      true,
		CopySourceFile: false,
	})
	if err != nil {
		return nil, err
	}

	records, err := loadRecords(baseExport.RecordsPath)
	if err != nil {
		return nil, fmt.Errorf("load records.jsonl: %w", err)
	}

	samples, err := buildCanonicalSamples(records)
	if err != nil {
		return nil, fmt.Errorf("build canonical samples: %w", err)
	}
	return samples, nil
}

func loadRecords(path string) ([]llmexport.RecordEnvelope, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	buf := make([]byte, 0, 1024*1024)
	sc.Buffer(buf, 16*1024*1024)

	records := make([]llmexport.RecordEnvelope, 0, 4096)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec llmexport.RecordEnvelope
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal jsonl line: %w", err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func buildCanonicalSamples(records []llmexport.RecordEnvelope) ([]CanonicalSample, error) {
	out := make([]CanonicalSample, 0, 4096)
	var firstTS time.Time
	for _, rec := range records {
		if rec.RecordKind != "data" || rec.GlobalMessageNum != recordGlobalNum || rec.Data == nil {
			continue
		}

		flat := recordFlatFromFields(rec.Data.Fields)
		if flat == nil || flat.TimestampUTC == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, flat.TimestampUTC)
		if err != nil {
			continue
		}
		if firstTS.IsZero() {
			firstTS = ts
		}

		out = append(out, CanonicalSample{
			TSUTCISO:     ts.UTC().Format(time.RFC3339),
			Timestamp:    ts,
			ElapsedS:     ts.Sub(firstTS).Seconds(),
			PowerW:       flat.PowerW,
			HRBPM:        flat.HRBPM,
			CadenceRPM:   flat.CadenceRPM,
			SpeedMPS:     flat.SpeedMPS,
			DistanceM:    flat.DistanceM,
			AltitudeM:    flat.AltitudeM,
			TemperatureC: flat.TemperatureC,
			GradePct:     flat.GradePct,
			ValidPower:   flat.ValidPower,
			ValidHR:      flat.ValidHR,
			ValidCadence: flat.ValidCadence,
			FileOffset:   rec.FileOffset,
			RecordIndex:  rec.RecordIndex,
		})
	}
	return out, nil
}

// recordFlat is the flattened, unit-scaled view of one record message's
// fields, keyed by the field semantics declared in llmexport's scaling
// table rather than the message's raw wire layout.
type recordFlat struct {
	TimestampUTC string
	PowerW       *float64
	HRBPM        *float64
	CadenceRPM   *float64
	SpeedMPS     *float64
	DistanceM    *float64
	AltitudeM    *float64
	TemperatureC *float64
	GradePct     *float64
	ValidPower   bool
	ValidHR      bool
	ValidCadence bool
}

func recordFlatFromFields(fields []llmexport.FieldValue) *recordFlat {
	m := make(map[uint8]llmexport.FieldValue, len(fields))
	for _, f := range fields {
		m[f.FieldNumber] = f
	}

	tsField, ok := m[253]
	if !ok {
		return nil
	}
	utc, ok := llmexport.ScaleRecordTimestamp(tsField.Decoded)
	if !ok {
		return nil
	}

	flat := &recordFlat{TimestampUTC: utc}
	if v, ok := llmexport.ScaleRecordField(7, m[7].Decoded); ok && !m[7].Invalid {
		flat.PowerW = &v
		flat.ValidPower = true
	}
	if v, ok := llmexport.ScaleRecordField(3, m[3].Decoded); ok && !m[3].Invalid {
		flat.HRBPM = &v
		flat.ValidHR = true
	}
	if v, ok := llmexport.ScaleRecordField(4, m[4].Decoded); ok && !m[4].Invalid {
		flat.CadenceRPM = &v
		flat.ValidCadence = true
	}
	if v, ok := llmexport.ScaleRecordField(6, m[6].Decoded); ok {
		flat.SpeedMPS = &v
	}
	if v, ok := llmexport.ScaleRecordField(5, m[5].Decoded); ok {
		flat.DistanceM = &v
	}
	if v, ok := llmexport.ScaleRecordField(2, m[2].Decoded); ok {
		flat.AltitudeM = &v
	}
	if v, ok := llmexport.ScaleRecordField(13, m[13].Decoded); ok {
		flat.TemperatureC = &v
	}
	if v, ok := llmexport.ScaleRecordField(9, m[9].Decoded); ok {
		flat.GradePct = &v
	}
	return flat
}
