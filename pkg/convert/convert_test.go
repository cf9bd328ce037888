package convert

import (
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dmarienko/kdbml/pkg/kdbmlerrors"
	"github.com/dmarienko/kdbml/pkg/kx"
	"github.com/dmarienko/kdbml/pkg/metrics"
	"github.com/dmarienko/kdbml/pkg/mx"
)

func newObserved(t *testing.T) (*Converter, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	return New(zap.New(core)), logs
}

func message(err error) string {
	var e *kdbmlerrors.Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Message
}

func warnings(logs *observer.ObservedLogs) int {
	return logs.FilterLevelExact(zapcore.WarnLevel).Len()
}

func TestRuleTableIsComplete(t *testing.T) {
	for typ := kx.Boolean; typ <= kx.Time; typ++ {
		if _, ok := kx.ElemWidth(typ); !ok {
			continue
		}
		rl, ok := rules[typ]
		if typ == kx.GUID {
			assert.False(t, ok, "guid has no host form")
			continue
		}
		require.True(t, ok, "missing rule for %s", typ)
		assert.NotNil(t, rl.atom, "missing atom rule for %s", typ)
		assert.NotNil(t, rl.vector, "missing vector rule for %s", typ)
	}
}

func TestAtoms(t *testing.T) {
	conv, logs := newObserved(t)
	tests := []struct {
		name string
		in   *kx.K
		want mx.Array
	}{
		{"boolean", kx.NewBool(true), mx.NewLogicalScalar(true)},
		{"byte", kx.NewByte(0xff), mx.NewDoubleScalar(255)},
		{"short", kx.NewShort(-3), mx.NewDoubleScalar(-3)},
		{"short null", kx.NewShort(kx.NullShort), mx.NewDoubleScalar(math.NaN())},
		{"int inf", kx.NewInt(kx.InfInt), mx.NewDoubleScalar(math.Inf(1))},
		{"long -inf", kx.NewLong(-kx.InfLong), mx.NewDoubleScalar(math.Inf(-1))},
		{"real", kx.NewReal(2.5), mx.NewDoubleScalar(2.5)},
		{"float", kx.NewFloat(100.25), mx.NewDoubleScalar(100.25)},
		{"char", kx.NewChar('z'), mx.NewString("z")},
		{"symbol", kx.NewSymbol("AAPL"), mx.NewString("AAPL")},
		{"timestamp", kx.NewTimestamp(0), mx.NewDoubleScalar(epochDay)},
		{"month", kx.NewMonth(-1), mx.NewRow(1999, 12)},
		{"date", kx.NewDate(0), mx.NewDoubleScalar(epochDay)},
		{"datetime", kx.NewDatetime(1.5), mx.NewDoubleScalar(epochDay + 1.5)},
		{"timespan", kx.NewTimespan(86_400_000_000_000), mx.NewDoubleScalar(1)},
		{"minute", kx.NewMinute(720), mx.NewDoubleScalar(0.5)},
		{"second", kx.NewSecond(43200), mx.NewDoubleScalar(0.5)},
		{"time", kx.NewTime(43_200_000), mx.NewDoubleScalar(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := conv.Atom(tt.in)
			assert.True(t, mx.Equal(tt.want, got), "got %s", mx.Describe(got))
		})
	}
	assert.Equal(t, 0, warnings(logs))
}

func TestVectors(t *testing.T) {
	conv, logs := newObserved(t)

	t.Run("boolean", func(t *testing.T) {
		got := conv.Vector(kx.NewBools(true, false, true)).(*mx.LogicalArray)
		rows, cols := got.Dims()
		assert.Equal(t, []int{3, 1}, []int{rows, cols})
		assert.Equal(t, []bool{true, false, true}, got.Data)
	})

	t.Run("long with sentinels", func(t *testing.T) {
		got := conv.Vector(kx.NewLongs(1, kx.NullLong, kx.InfLong, -kx.InfLong))
		want := mx.NewRow(1, math.NaN(), math.Inf(1), math.Inf(-1))
		assert.True(t, mx.Equal(want, got))
	})

	t.Run("byte bypasses sentinels", func(t *testing.T) {
		got := conv.Vector(kx.NewBytes(0, 0x80, 0xff))
		assert.True(t, mx.Equal(mx.NewRow(0, 128, 255), got))
	})

	t.Run("char", func(t *testing.T) {
		got := conv.Vector(kx.NewString("abc")).(*mx.CharArray)
		assert.Equal(t, "abc", got.String())
		rows, _ := got.Dims()
		assert.Equal(t, 3, rows)
	})

	t.Run("symbol", func(t *testing.T) {
		got := conv.Vector(kx.NewSymbols("a", "bc")).(*mx.CellArray)
		require.Equal(t, 2, got.Len())
		assert.Equal(t, "bc", got.Get(1).(*mx.CharArray).String())
	})

	t.Run("month", func(t *testing.T) {
		got := conv.Vector(kx.NewVector(kx.Month, []int32{0, 11, 12, -1})).(*mx.CellArray)
		require.Equal(t, 4, got.Len())
		assert.True(t, mx.Equal(mx.NewRow(2000, 1), got.Get(0)))
		assert.True(t, mx.Equal(mx.NewRow(2000, 12), got.Get(1)))
		assert.True(t, mx.Equal(mx.NewRow(2001, 1), got.Get(2)))
		assert.True(t, mx.Equal(mx.NewRow(1999, 12), got.Get(3)))
	})

	t.Run("temporal", func(t *testing.T) {
		got := conv.Vector(kx.NewVector(kx.Date, []int32{0, 1, kx.NullInt}))
		assert.True(t, mx.Equal(mx.NewRow(epochDay, epochDay+1, math.NaN()), got))

		got = conv.Vector(kx.NewVector(kx.Timespan, []int64{86_400_000_000_000, 0}))
		assert.True(t, mx.Equal(mx.NewRow(1, 0), got))
	})

	assert.Equal(t, 0, warnings(logs))
}

func TestEmptyVectors(t *testing.T) {
	conv, logs := newObserved(t)
	empties := []*kx.K{
		kx.NewList(),
		kx.NewBools(),
		kx.NewBytes(),
		kx.NewShorts(),
		kx.NewInts(),
		kx.NewLongs(),
		kx.NewReals(),
		kx.NewFloats(),
		kx.NewString(""),
		kx.NewSymbols(),
		kx.NewVector(kx.Timestamp, []int64{}),
		kx.NewVector(kx.Month, []int32{}),
		kx.NewVector(kx.Date, []int32{}),
		kx.NewVector(kx.Datetime, []float64{}),
		kx.NewVector(kx.Timespan, []int64{}),
		kx.NewVector(kx.Minute, []int32{}),
		kx.NewVector(kx.Second, []int32{}),
		kx.NewVector(kx.Time, []int32{}),
	}
	for _, v := range empties {
		t.Run(v.Type.String(), func(t *testing.T) {
			got := conv.Vector(v)
			require.NotNil(t, got)
			assert.Equal(t, 0, got.Len())
			again := conv.Vector(v)
			assert.True(t, mx.Equal(got, again))
		})
	}
	assert.Equal(t, 0, warnings(logs))
}

func TestMixedListNesting(t *testing.T) {
	conv, logs := newObserved(t)
	x := kx.NewList(
		kx.NewInt(7),
		kx.NewList(kx.NewShorts(1, 2), kx.NewSymbol("s")),
	)

	got := conv.Vector(x).(*mx.CellArray)
	require.Equal(t, 2, got.Len())
	assert.True(t, mx.Equal(mx.NewDoubleScalar(7), got.Get(0)))

	inner, ok := got.Get(1).(*mx.CellArray)
	require.True(t, ok)
	require.Equal(t, 2, inner.Len())
	assert.True(t, mx.Equal(mx.NewRow(1, 2), inner.Get(0)))
	assert.True(t, mx.Equal(mx.NewString("s"), inner.Get(1)))
	assert.Equal(t, 0, warnings(logs))
}

func TestUnsupportedTypeDegrades(t *testing.T) {
	t.Run("atom", func(t *testing.T) {
		conv, logs := newObserved(t)
		var got mx.Array
		assert.NotPanics(t, func() { got = conv.Atom(kx.NewGUID([16]byte{1})) })
		assert.Nil(t, got)
		assert.Equal(t, 1, warnings(logs))
	})

	t.Run("vector", func(t *testing.T) {
		conv, logs := newObserved(t)
		got := conv.Vector(kx.NewVector(kx.GUID, [][16]byte{{1}, {2}}))
		assert.Nil(t, got)
		assert.Equal(t, 1, warnings(logs))
	})

	t.Run("inside a list", func(t *testing.T) {
		conv, logs := newObserved(t)
		res := conv.Dispatch(kx.NewList(kx.NewLong(1), kx.NewGUID([16]byte{})))
		assert.Equal(t, StateDone, res.State)
		require.NoError(t, res.Err)
		cells := res.Value.(*mx.CellArray)
		assert.NotNil(t, cells.Get(0))
		assert.Nil(t, cells.Get(1), "slot left empty")
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, metrics.ReasonUnsupportedType, res.Diagnostics[0].Reason)
		assert.Equal(t, -kx.GUID, res.Diagnostics[0].Type)
		assert.True(t, res.Degraded())
		assert.Equal(t, 1, warnings(logs))
	})
}

func TestDictSimple(t *testing.T) {
	conv, logs := newObserved(t)
	x := kx.NewDict(kx.NewSymbols("a", "b", "c"), kx.NewInts(1, 2, 3))

	res := conv.Dispatch(x)
	require.NoError(t, res.Err)
	assert.Equal(t, metrics.KindDict, res.Kind)

	s := res.Value.(*mx.StructArray)
	assert.Equal(t, []string{"a", "b", "c"}, s.Names())
	for i, want := range []float64{1, 2, 3} {
		assert.True(t, mx.Equal(mx.NewDoubleScalar(want), s.FieldAt(i)))
	}
	assert.Equal(t, 0, warnings(logs))
}

func TestDictElementTypes(t *testing.T) {
	conv, _ := newObserved(t)
	tests := []struct {
		name  string
		value *kx.K
		want  []mx.Array
	}{
		{"char", kx.NewString("xy"), []mx.Array{mx.NewString("x"), mx.NewString("y")}},
		{"month", kx.NewVector(kx.Month, []int32{0, 13}), []mx.Array{mx.NewRow(2000, 1), mx.NewRow(2001, 2)}},
		{"date", kx.NewVector(kx.Date, []int32{0, 1}), []mx.Array{mx.NewDoubleScalar(epochDay), mx.NewDoubleScalar(epochDay + 1)}},
		{"minute", kx.NewVector(kx.Minute, []int32{720, 0}), []mx.Array{mx.NewDoubleScalar(0.5), mx.NewDoubleScalar(0)}},
		{"symbol", kx.NewSymbols("p", "q"), []mx.Array{mx.NewString("p"), mx.NewString("q")}},
		{"boolean", kx.NewBools(true, false), []mx.Array{mx.NewLogicalScalar(true), mx.NewLogicalScalar(false)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := conv.Dict(kx.NewDict(kx.NewSymbols("k1", "k2"), tt.value)).(*mx.StructArray)
			for i, want := range tt.want {
				assert.True(t, mx.Equal(want, s.FieldAt(i)), "field %d is %s", i, mx.Describe(s.FieldAt(i)))
			}
		})
	}
}

func TestDictMixedValues(t *testing.T) {
	conv, logs := newObserved(t)
	x := kx.NewDict(
		kx.NewSymbols("vec", "one", "none", "atom", "list"),
		kx.NewList(
			kx.NewFloats(1, 2),
			kx.NewLongs(5),
			kx.NewLongs(),
			kx.NewSymbol("s"),
			kx.NewList(kx.NewLong(1), kx.NewString("ab")),
		),
	)

	s := conv.Dict(x).(*mx.StructArray)
	assert.True(t, mx.Equal(mx.NewRow(1, 2), s.FieldAt(0)))
	assert.True(t, mx.Equal(mx.NewDoubleScalar(5), s.FieldAt(1)), "one-element vector is a scalar")
	assert.True(t, mx.Equal(mx.NewDoubleMatrix(1, 0), s.FieldAt(2)))
	assert.True(t, mx.Equal(mx.NewString("s"), s.FieldAt(3)))
	list, ok := s.FieldAt(4).(*mx.CellArray)
	require.True(t, ok)
	assert.Equal(t, 2, list.Len())
	assert.Equal(t, 0, warnings(logs))
}

func TestDictInvalidKeys(t *testing.T) {
	conv, logs := newObserved(t)

	assert.Nil(t, conv.Dict(kx.NewDict(kx.NewLongs(1, 2), kx.NewLongs(3, 4))))
	assert.Nil(t, conv.Dict(kx.NewDict(kx.NewSymbols("a", "a"), kx.NewLongs(3, 4))))
	assert.Nil(t, conv.Dict(kx.NewDict(kx.NewSymbols("a", "b"), kx.NewLongs(3))))
	assert.Equal(t, 3, warnings(logs))
}

func tradeTable(t *testing.T) *kx.K {
	t.Helper()
	tbl, err := kx.NewTable([]string{"sym", "px"},
		kx.NewSymbols("AAPL", "MSFT"),
		kx.NewFloats(100.0, 200.5))
	require.NoError(t, err)
	return tbl
}

func TestTable(t *testing.T) {
	conv, logs := newObserved(t)
	tbl := tradeTable(t)
	defer tbl.Release()
	_, cols := tbl.Columns()

	res := conv.Dispatch(tbl)
	require.NoError(t, res.Err)
	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, metrics.KindTable, res.Kind)

	s := res.Value.(*mx.StructArray)
	assert.Equal(t, []string{"sym", "px"}, s.Names())

	sym := s.FieldAt(0).(*mx.CellArray)
	require.Equal(t, 2, sym.Len())
	assert.Equal(t, "AAPL", sym.Get(0).(*mx.CharArray).String())
	assert.Equal(t, "MSFT", sym.Get(1).(*mx.CharArray).String())
	assert.True(t, mx.Equal(mx.NewRow(100.0, 200.5), s.FieldAt(1)))

	assert.Equal(t, int64(1), tbl.Refs(), "view released")
	assert.Equal(t, int64(1), cols[0].Refs(), "columns untouched")
	assert.Equal(t, 0, warnings(logs))
}

func TestKeyedTableEquivalence(t *testing.T) {
	conv, _ := newObserved(t)

	symCol := kx.NewSymbols("AAPL", "MSFT")
	pxCol := kx.NewFloats(100.0, 200.5)
	key, err := kx.NewTable([]string{"sym"}, symCol.Retain())
	require.NoError(t, err)
	val, err := kx.NewTable([]string{"px"}, pxCol.Retain())
	require.NoError(t, err)
	keyed, err := kx.NewKeyedTable(key, val)
	require.NoError(t, err)
	defer keyed.Release()

	plain, err := kx.NewTable([]string{"sym", "px"}, symCol, pxCol)
	require.NoError(t, err)
	defer plain.Release()

	fromKeyed := conv.Dispatch(keyed)
	fromPlain := conv.Dispatch(plain)
	require.NoError(t, fromKeyed.Err)
	assert.True(t, mx.Equal(fromPlain.Value, fromKeyed.Value))
	assert.Equal(t, metrics.KindDict, fromKeyed.Kind)

	assert.Equal(t, int64(2), symCol.Refs(), "shared column keeps both owners")
	assert.Equal(t, int64(1), keyed.Refs())

	t.Run("dict with table value", func(t *testing.T) {
		valOnly, err := kx.NewTable([]string{"px"}, pxCol.Retain())
		require.NoError(t, err)
		d := kx.NewDict(kx.NewSymbols("r1", "r2"), valOnly)
		defer d.Release()

		want, err := kx.NewTable([]string{"px"}, pxCol.Retain())
		require.NoError(t, err)
		defer want.Release()

		assert.True(t, mx.Equal(conv.Table(want), conv.Dict(d)))
	})
}

func TestTableWithListColumn(t *testing.T) {
	conv, logs := newObserved(t)
	tbl, err := kx.NewTable([]string{"name", "n"},
		kx.NewList(kx.NewString("ab"), kx.NewString("c")),
		kx.NewLongs(1, 2))
	require.NoError(t, err)

	s := conv.Table(tbl).(*mx.StructArray)
	names := s.FieldAt(0).(*mx.CellArray)
	assert.Equal(t, "ab", names.Get(0).(*mx.CharArray).String())
	assert.Equal(t, 0, warnings(logs))
}

func TestTableDuplicateColumns(t *testing.T) {
	conv, logs := newObserved(t)
	a, b := kx.NewLongs(1, 2), kx.NewLongs(3, 4)
	tbl, err := kx.NewTable([]string{"a", "a"}, a.Retain(), b.Retain())
	require.NoError(t, err)

	res := conv.Dispatch(tbl)
	require.NoError(t, res.Err)
	assert.Nil(t, res.Value)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, metrics.ReasonInvalidFields, res.Diagnostics[0].Reason)
	assert.Equal(t, 1, warnings(logs))

	assert.Equal(t, int64(1), tbl.Refs())
	tbl.Release()
	assert.Equal(t, int64(1), a.Refs())
	assert.Equal(t, int64(1), b.Refs())
	a.Release()
	b.Release()
}

func TestKeyedTableDuplicateColumns(t *testing.T) {
	conv, _ := newObserved(t)
	symCol, pxCol := kx.NewSymbols("AAPL"), kx.NewFloats(1.5)
	key, err := kx.NewTable([]string{"sym"}, symCol.Retain())
	require.NoError(t, err)
	val, err := kx.NewTable([]string{"sym"}, pxCol.Retain())
	require.NoError(t, err)
	keyed, err := kx.NewKeyedTable(key, val)
	require.NoError(t, err)

	res := conv.Dispatch(keyed)
	assert.Nil(t, res.Value)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, metrics.ReasonInvalidFields, res.Diagnostics[0].Reason)

	assert.Equal(t, int64(1), keyed.Refs())
	assert.Equal(t, int64(2), symCol.Refs(), "view released its column references")
	assert.Equal(t, int64(2), pxCol.Refs(), "view released its column references")
	keyed.Release()
	assert.Equal(t, int64(1), symCol.Refs())
	assert.Equal(t, int64(1), pxCol.Refs())
}

func TestTableColumnWithoutRule(t *testing.T) {
	conv, logs := newObserved(t)
	ids := kx.NewVector(kx.GUID, [][16]byte{{1}, {2}})
	tbl, err := kx.NewTable([]string{"id", "n"}, ids.Retain(), kx.NewLongs(7, 8))
	require.NoError(t, err)
	defer tbl.Release()

	res := conv.Dispatch(tbl)
	require.NoError(t, res.Err)
	assert.Equal(t, StateDone, res.State)
	s := res.Value.(*mx.StructArray)
	assert.Equal(t, []string{"id", "n"}, s.Names())
	assert.Nil(t, s.FieldAt(0))
	assert.True(t, mx.Equal(mx.NewRow(7, 8), s.FieldAt(1)))

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, metrics.ReasonUnsupportedType, res.Diagnostics[0].Reason)
	assert.Equal(t, kx.GUID, res.Diagnostics[0].Type)
	assert.Equal(t, 1, warnings(logs))

	assert.Equal(t, int64(1), tbl.Refs())
	assert.Equal(t, int64(2), ids.Refs())
	ids.Release()
}

func TestDispatch(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		conv, logs := newObserved(t)
		res := conv.Dispatch(nil)
		assert.Equal(t, StateErrored, res.State)
		assert.Nil(t, res.Value)
		assert.Equal(t, "cannot retrieve result", message(res.Err))
		assert.False(t, kdbmlerrors.IsFatal(res.Err))
		assert.Equal(t, 1, warnings(logs))
	})

	t.Run("kdb error", func(t *testing.T) {
		conv, logs := newObserved(t)
		res := conv.Dispatch(kx.NewError("type"))
		assert.Equal(t, StateErrored, res.State)
		assert.Equal(t, metrics.KindError, res.Kind)
		assert.Nil(t, res.Value)
		assert.Equal(t, "type", message(res.Err), "surfaced verbatim")
		assert.True(t, kdbmlerrors.IsType(res.Err, kdbmlerrors.ErrorTypeQuery))
		assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	})

	t.Run("void", func(t *testing.T) {
		conv, _ := newObserved(t)
		res := conv.Dispatch(kx.Identity())
		assert.Equal(t, StateDone, res.State)
		assert.True(t, mx.Equal(mx.NewLogicalScalar(true), res.Value))
	})

	t.Run("atom", func(t *testing.T) {
		conv, logs := newObserved(t)
		res := conv.Dispatch(kx.NewLong(3))
		assert.Equal(t, metrics.KindAtom, res.Kind)
		assert.True(t, mx.Equal(mx.NewDoubleScalar(3), res.Value))
		assert.Equal(t, 1, logs.FilterMessage("received value").Len())
	})

	t.Run("unsupported top-level type", func(t *testing.T) {
		conv, logs := newObserved(t)
		d := kx.NewDict(kx.NewSymbols("a"), kx.NewLongs(1))
		d.Type = kx.SortedDict
		res := conv.Dispatch(d)
		assert.Equal(t, StateErrored, res.State)
		assert.Equal(t, "type 127 is not supported", message(res.Err))
		assert.True(t, kdbmlerrors.IsType(res.Err, kdbmlerrors.ErrorTypeCapability))
		assert.Equal(t, 1, warnings(logs))
	})

	t.Run("malformed payload is contained", func(t *testing.T) {
		conv, _ := newObserved(t)
		bad := &kx.K{Type: kx.Long, Data: []string{"x"}}
		res := conv.Dispatch(bad)
		assert.Equal(t, StateErrored, res.State)
		assert.True(t, kdbmlerrors.IsType(res.Err, kdbmlerrors.ErrorTypeInternal))
	})
}

func TestDispatchRecordsMetrics(t *testing.T) {
	conv := New(zap.NewNop(), WithCollector(metrics.NewCollector("test")))
	ok := metrics.Conversions.WithLabelValues(metrics.KindVector, metrics.StatusOK)
	degraded := metrics.Conversions.WithLabelValues(metrics.KindVector, metrics.StatusDegraded)
	diags := metrics.Diagnostics.WithLabelValues("test", metrics.ReasonUnsupportedType)
	beforeOK, beforeDegraded := testutil.ToFloat64(ok), testutil.ToFloat64(degraded)
	beforeDiags := testutil.ToFloat64(diags)

	conv.Dispatch(kx.NewLongs(1))
	conv.Dispatch(kx.NewList(kx.NewGUID([16]byte{})))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
	assert.Equal(t, beforeDegraded+1, testutil.ToFloat64(degraded))
	assert.Equal(t, beforeDiags+1, testutil.ToFloat64(diags))
}

func TestConvert(t *testing.T) {
	conv := New(nil)
	v, err := conv.Convert(kx.NewSymbol("x"))
	require.NoError(t, err)
	assert.True(t, mx.Equal(mx.NewString("x"), v))

	_, err = conv.Convert(nil)
	assert.Error(t, err)
}
