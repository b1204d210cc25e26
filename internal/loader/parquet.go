package loader

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/cockroachdb/errors"

	"github.com/KaramelBytes/tabprof/internal/dataset"
)

type parquetLoader struct{}

func (parquetLoader) Format() Format { return FormatParquet }

// Load reads the whole file through Arrow. Column kinds come from the Parquet
// schema, so declared Types are not consulted.
func (parquetLoader) Load(path string, opt Options) (*dataset.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open parquet file")
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	pf, err := file.NewParquetReader(f, file.WithReadProps(parquet.NewReaderProperties(mem)))
	if err != nil {
		return nil, errors.Wrap(err, "create parquet reader")
	}
	defer pf.Close()

	arrowReader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, errors.Wrap(err, "create arrow reader")
	}
	tbl, err := arrowReader.ReadTable(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "read parquet data")
	}
	defer tbl.Release()

	log := opt.logger()
	if len(opt.Types) > 0 {
		log.Debug().Msg("declared column types ignored for parquet input")
	}
	rows := int(tbl.NumRows())
	if opt.MaxRows > 0 && rows > opt.MaxRows {
		log.Warn().Int("loaded", opt.MaxRows).Int("skipped", rows-opt.MaxRows).Msg("row limit reached")
		rows = opt.MaxRows
	}
	cols := make([]*dataset.Column, 0, tbl.NumCols())
	for i := 0; i < int(tbl.NumCols()); i++ {
		col := tbl.Column(i)
		c, err := arrowColumn(col.Name(), col.DataType(), col.Data().Chunks(), rows)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return dataset.New(filepath.Base(path), cols...)
}

// arrowColumn flattens chunks into a typed column of at most limit rows.
func arrowColumn(name string, dt arrow.DataType, chunks []arrow.Array, limit int) (*dataset.Column, error) {
	kind := arrowKind(dt)
	nums := make([]float64, 0, limit)
	texts := make([]string, 0, limit)
	times := make([]time.Time, 0, limit)
	flags := make([]bool, 0, limit)
	var missing []bool

	n := 0
	for _, chunk := range chunks {
		for i := 0; i < chunk.Len() && n < limit; i, n = i+1, n+1 {
			null := chunk.IsNull(i)
			switch kind {
			case dataset.Numeric:
				v := math.NaN()
				if !null {
					v = numericValue(chunk, i)
				}
				nums = append(nums, v)
			case dataset.Datetime:
				var ts time.Time
				if !null {
					ts = timeValue(chunk, dt, i)
				}
				times = append(times, ts)
			case dataset.Boolean:
				missing = append(missing, null)
				flags = append(flags, !null && chunk.(*array.Boolean).Value(i))
			default:
				s := ""
				if !null {
					s = chunk.ValueStr(i)
				}
				texts = append(texts, s)
			}
		}
	}
	switch kind {
	case dataset.Numeric:
		return dataset.NewNumeric(name, nums), nil
	case dataset.Datetime:
		return dataset.NewDatetime(name, times), nil
	case dataset.Boolean:
		return dataset.NewBoolean(name, flags, missing), nil
	default:
		return dataset.NewCategorical(name, texts), nil
	}
}

func arrowKind(dt arrow.DataType) dataset.Kind {
	switch dt.ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		return dataset.Numeric
	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		return dataset.Datetime
	case arrow.BOOL:
		return dataset.Boolean
	default:
		return dataset.Categorical
	}
}

func numericValue(a arrow.Array, i int) float64 {
	switch arr := a.(type) {
	case *array.Float64:
		return arr.Value(i)
	case *array.Float32:
		return float64(arr.Value(i))
	case *array.Int64:
		return float64(arr.Value(i))
	case *array.Int32:
		return float64(arr.Value(i))
	case *array.Int16:
		return float64(arr.Value(i))
	case *array.Int8:
		return float64(arr.Value(i))
	case *array.Uint64:
		return float64(arr.Value(i))
	case *array.Uint32:
		return float64(arr.Value(i))
	case *array.Uint16:
		return float64(arr.Value(i))
	case *array.Uint8:
		return float64(arr.Value(i))
	}
	return math.NaN()
}

func timeValue(a arrow.Array, dt arrow.DataType, i int) time.Time {
	switch arr := a.(type) {
	case *array.Timestamp:
		unit := arrow.Nanosecond
		if ts, ok := dt.(*arrow.TimestampType); ok {
			unit = ts.Unit
		}
		return arr.Value(i).ToTime(unit).UTC()
	case *array.Date32:
		return arr.Value(i).ToTime().UTC()
	case *array.Date64:
		return arr.Value(i).ToTime().UTC()
	}
	return time.Time{}
}
