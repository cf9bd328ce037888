package export

import (
	"bytes"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/mx"
)

func cells(vs ...mx.Array) *mx.CellArray {
	c := mx.NewCellArray(len(vs), 1)
	for i, v := range vs {
		c.Set(i, v)
	}
	return c
}

func logical(vs ...bool) *mx.LogicalArray {
	l := mx.NewLogicalArray(len(vs), 1)
	copy(l.Data, vs)
	return l
}

// trades is the converted form of
// ([] sym:`AAPL`MSFT; price:189.5 0n; live:10b; m:2024.01 2023.12m)
func trades(t *testing.T) *mx.StructArray {
	t.Helper()
	s, err := mx.NewStruct("sym", "price", "live", "m")
	require.NoError(t, err)
	s.SetFieldAt(0, cells(mx.NewString("AAPL"), mx.NewString("MSFT")))
	s.SetFieldAt(1, mx.NewRow(189.5, math.NaN()))
	s.SetFieldAt(2, logical(true, false))
	s.SetFieldAt(3, cells(mx.NewRow(2024, 1), mx.NewRow(2023, 12)))
	return s
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, trades(t)))
	assert.Equal(t,
		`{"sym":["AAPL","MSFT"],"price":[189.5,null],"live":[true,false],"m":[[2024,1],[2023,12]]}`+"\n",
		buf.String())
}

func TestMarshalJSONScalars(t *testing.T) {
	assert.Equal(t, "null", string(MarshalJSON(nil)))
	assert.Equal(t, "42", string(MarshalJSON(mx.NewDoubleScalar(42))))
	assert.Equal(t, `"Inf"`, string(MarshalJSON(mx.NewDoubleScalar(math.Inf(1)))))
	assert.Equal(t, `"-Inf"`, string(MarshalJSON(mx.NewDoubleScalar(math.Inf(-1)))))
	assert.Equal(t, "null", string(MarshalJSON(mx.NewDoubleScalar(math.NaN()))))
	assert.Equal(t, "true", string(MarshalJSON(mx.NewLogicalScalar(true))))
	assert.Equal(t, `"abc"`, string(MarshalJSON(mx.NewString("abc"))))
	assert.Equal(t, `"a<b&c"`, string(MarshalJSON(mx.NewString("a<b&c"))))
	assert.Equal(t, "[]", string(MarshalJSON(mx.NewDoubleMatrix(0, 0))))
	assert.Equal(t, `[1,"a",null]`,
		string(MarshalJSON(cells(mx.NewDoubleScalar(1), mx.NewString("a"), nil))))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, trades(t)))
	assert.Equal(t, "sym,price,live,m\nAAPL,189.5,true,2024 1\nMSFT,,false,2023 12\n", buf.String())
}

func TestWriteCSVQuotesAndChars(t *testing.T) {
	s, err := mx.NewStruct("note", "c")
	require.NoError(t, err)
	s.SetFieldAt(0, cells(mx.NewString(`say "hi", bob`)))
	c := mx.NewCharArray(1, 1)
	c.Data[0] = 'x'
	s.SetFieldAt(1, c)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, s))
	assert.Equal(t, "note,c\n\"say \"\"hi\"\", bob\",x\n", buf.String())
}

func TestTableErrors(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCSV(&buf, mx.NewRow(1, 2))
	assert.True(t, kdbmlerrors.IsType(err, kdbmlerrors.ErrorTypeData))

	ragged, err := mx.NewStruct("a", "b")
	require.NoError(t, err)
	ragged.SetFieldAt(0, mx.NewRow(1, 2))
	ragged.SetFieldAt(1, mx.NewRow(1))
	err = WriteArrow(&buf, ragged)
	assert.True(t, kdbmlerrors.IsType(err, kdbmlerrors.ErrorTypeData))

	unset, err := mx.NewStruct("a")
	require.NoError(t, err)
	err = WriteCSV(&buf, unset)
	assert.True(t, kdbmlerrors.IsType(err, kdbmlerrors.ErrorTypeData))
}

func TestWriteArrow(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteArrow(&buf, trades(t)))

	rdr, err := ipc.NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer rdr.Release()

	schema := rdr.Schema()
	require.Equal(t, 4, schema.NumFields())
	assert.Equal(t, arrow.BinaryTypes.String, schema.Field(0).Type)
	assert.Equal(t, arrow.PrimitiveTypes.Float64, schema.Field(1).Type)
	assert.Equal(t, arrow.FixedWidthTypes.Boolean, schema.Field(2).Type)
	assert.True(t, arrow.TypeEqual(arrow.ListOf(arrow.PrimitiveTypes.Float64), schema.Field(3).Type))

	require.True(t, rdr.Next())
	rec := rdr.Record()
	assert.Equal(t, int64(2), rec.NumRows())

	sym := rec.Column(0).(*array.String)
	assert.Equal(t, "AAPL", sym.Value(0))
	assert.Equal(t, "MSFT", sym.Value(1))

	price := rec.Column(1).(*array.Float64)
	assert.Equal(t, 189.5, price.Value(0))
	assert.True(t, price.IsNull(1))

	live := rec.Column(2).(*array.Boolean)
	assert.True(t, live.Value(0))
	assert.False(t, live.Value(1))

	m := rec.Column(3).(*array.List)
	values := m.ListValues().(*array.Float64)
	assert.Equal(t, []float64{2024, 1, 2023, 12}, values.Float64Values())

	assert.False(t, rdr.Next())
}

func TestCellKind(t *testing.T) {
	assert.Equal(t, kindString, cellKind(cells()))
	assert.Equal(t, kindFloat, cellKind(cells(mx.NewDoubleScalar(1), nil)))
	assert.Equal(t, kindText, cellKind(cells(mx.NewDoubleScalar(1), mx.NewString("a"))))
	assert.Equal(t, kindBool, cellKind(cells(mx.NewLogicalScalar(true))))
}

func TestForFormat(t *testing.T) {
	for _, f := range []string{JSON, CSV, Arrow} {
		fn, err := ForFormat(f)
		require.NoError(t, err)
		assert.NotNil(t, fn)
	}
	_, err := ForFormat("parquet")
	assert.True(t, kdbmlerrors.IsType(err, kdbmlerrors.ErrorTypeConfig))
}
