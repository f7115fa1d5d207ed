package pipeline

import (
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// featureRow is the columnar parquet row shape for a Feature Frame dump,
// one column per FeatureColumns entry plus identity/target columns.
type featureRow struct {
	TripID        string  `parquet:"name=trip_id, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TimestampUnix int64   `parquet:"name=timestamp_unix, type=INT64"`
	SpeedKmh      float64 `parquet:"name=speed_kmh, type=DOUBLE"`
	AccelMs2      float64 `parquet:"name=accel_ms2, type=DOUBLE"`
	ObdRPM        float64 `parquet:"name=obd_rpm, type=DOUBLE"`
	ObdThrottle   float64 `parquet:"name=obd_throttle, type=DOUBLE"`
	CoolantC      float64 `parquet:"name=coolant_c, type=DOUBLE"`
	IntakeC       float64 `parquet:"name=intake_c, type=DOUBLE"`
	SpeedMean5    float64 `parquet:"name=speed_mean5, type=DOUBLE"`
	SpeedStd5     float64 `parquet:"name=speed_std5, type=DOUBLE"`
	AccelMean5    float64 `parquet:"name=accel_mean5, type=DOUBLE"`
	AccelStd5     float64 `parquet:"name=accel_std5, type=DOUBLE"`
	RPMMean5      float64 `parquet:"name=rpm_mean5, type=DOUBLE"`
	RPMStd5       float64 `parquet:"name=rpm_std5, type=DOUBLE"`
	ThrottleMean5 float64 `parquet:"name=throttle_mean5, type=DOUBLE"`
	ThrottleStd5  float64 `parquet:"name=throttle_std5, type=DOUBLE"`
	Grade         float64 `parquet:"name=grade, type=DOUBLE"`
	Y             float64 `parquet:"name=y, type=DOUBLE"`
}

// DumpParquet snapshots a Feature Frame to a parquet file for offline
// diagnostics (the feature column order is fixed, so the flat struct
// mirrors FeatureColumns one-for-one).
func DumpParquet(path string, frame Frame) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(featureRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i := 0; i < frame.NumRows(); i++ {
		feats := frame.Row(i)
		r := featureRow{
			TripID:        frame.TripID[i],
			TimestampUnix: frame.Timestamp[i].Unix(),
			SpeedKmh:      feats[0],
			AccelMs2:      feats[1],
			ObdRPM:        feats[2],
			ObdThrottle:   feats[3],
			CoolantC:      feats[4],
			IntakeC:       feats[5],
			SpeedMean5:    feats[6],
			SpeedStd5:     feats[7],
			AccelMean5:    feats[8],
			AccelStd5:     feats[9],
			RPMMean5:      feats[10],
			RPMStd5:       feats[11],
			ThrottleMean5: feats[12],
			ThrottleStd5:  feats[13],
			Grade:         feats[14],
			Y:             frame.Y[i],
		}
		if err := pw.Write(r); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return err
	}
	return fw.Close()
}
