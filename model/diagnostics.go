package model

import (
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// diagnosticRow is one held-out prediction, written to plots/diagnostics.parquet
// for offline analysis. Parity (actual vs predicted), residuals-vs-prediction,
// and residual-histogram plots read actual/predicted/residual; the
// speed-histogram plot reads speedKmh. The plots themselves are generated by
// whatever downstream tool reads this columnar dump, not by this package.
type diagnosticRow struct {
	Actual    float64 `parquet:"name=actual, type=DOUBLE"`
	Predicted float64 `parquet:"name=predicted, type=DOUBLE"`
	Residual  float64 `parquet:"name=residual, type=DOUBLE"`
	SpeedKmh  float64 `parquet:"name=speed_kmh, type=DOUBLE"`
}

// WriteDiagnostics dumps the held-out actual/predicted pairs, and the
// fused speed each row was evaluated at, to path as parquet. speedKmh must
// be the same length and row order as actual/predicted (FeatureColumns[0]
// of the held-out frame).
func WriteDiagnostics(path string, actual, predicted, speedKmh []float64) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(diagnosticRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for i := range actual {
		row := diagnosticRow{
			Actual:    actual[i],
			Predicted: predicted[i],
			Residual:  predicted[i] - actual[i],
			SpeedKmh:  speedKmh[i],
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return err
	}
	return fw.Close()
}
