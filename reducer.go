package viewkit

import (
	"math"

	"github.com/autom8ter/viewkit/collate"
	"github.com/autom8ter/viewkit/errors"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

var builtinReducers = map[string]ReduceFunc{
	"_count": CountReducer,
	"_sum":   SumReducer,
	"_stats": StatsReducer,
}

// CountReducer counts the rows of a group
func CountReducer(keys, values []collate.Value, rereduce bool) (collate.Value, error) {
	if !rereduce {
		return collate.Number(float64(len(values))), nil
	}
	return SumReducer(nil, values, false)
}

// SumReducer sums numeric values. Arrays of numbers are summed element-wise.
func SumReducer(keys, values []collate.Value, rereduce bool) (collate.Value, error) {
	var (
		total  float64
		totals []float64
		arrays bool
	)
	for _, v := range values {
		switch v.Kind() {
		case collate.KindNumber:
			total += v.Number()
		case collate.KindArray:
			arrays = true
			for i, e := range v.Elements() {
				n, err := number(e)
				if err != nil {
					return collate.Null(), err
				}
				if i >= len(totals) {
					totals = append(totals, 0)
				}
				totals[i] += n
			}
		default:
			return collate.Null(), errors.New(errors.Validation, "_sum expects numbers, got %s", v.Kind())
		}
	}
	if !arrays {
		return collate.Number(total), nil
	}
	if total != 0 {
		if len(totals) == 0 {
			totals = append(totals, 0)
		}
		totals[0] += total
	}
	return collate.Array(lo.Map(totals, func(n float64, _ int) collate.Value { return collate.Number(n) })...), nil
}

type stats struct {
	Sum    float64
	Count  float64
	Min    float64
	Max    float64
	Sumsqr float64
}

func (s stats) merge(o stats) stats {
	return stats{
		Sum:    s.Sum + o.Sum,
		Count:  s.Count + o.Count,
		Min:    math.Min(s.Min, o.Min),
		Max:    math.Max(s.Max, o.Max),
		Sumsqr: s.Sumsqr + o.Sumsqr,
	}
}

func (s stats) value() collate.Value {
	return collate.Object(
		collate.Field{Key: "sum", Value: collate.Number(s.Sum)},
		collate.Field{Key: "count", Value: collate.Number(s.Count)},
		collate.Field{Key: "min", Value: collate.Number(s.Min)},
		collate.Field{Key: "max", Value: collate.Number(s.Max)},
		collate.Field{Key: "sumsqr", Value: collate.Number(s.Sumsqr)},
	)
}

// StatsReducer computes the sum, count, min, max and sum of squares of numeric values
func StatsReducer(keys, values []collate.Value, rereduce bool) (collate.Value, error) {
	if len(values) == 0 {
		return collate.Null(), nil
	}
	partials := make([]stats, 0, len(values))
	for _, v := range values {
		if rereduce {
			s, err := statsFrom(v)
			if err != nil {
				return collate.Null(), err
			}
			partials = append(partials, s)
			continue
		}
		n, err := number(v)
		if err != nil {
			return collate.Null(), err
		}
		partials = append(partials, stats{Sum: n, Count: 1, Min: n, Max: n, Sumsqr: n * n})
	}
	return lo.Reduce(partials[1:], func(acc stats, s stats, _ int) stats {
		return acc.merge(s)
	}, partials[0]).value(), nil
}

func statsFrom(v collate.Value) (stats, error) {
	if v.Kind() != collate.KindObject {
		return stats{}, errors.New(errors.Validation, "_stats rereduce expects objects, got %s", v.Kind())
	}
	field := func(name string) float64 {
		f, _ := v.Get(name)
		return cast.ToFloat64(f.Interface())
	}
	return stats{
		Sum:    field("sum"),
		Count:  field("count"),
		Min:    field("min"),
		Max:    field("max"),
		Sumsqr: field("sumsqr"),
	}, nil
}

func number(v collate.Value) (float64, error) {
	if v.Kind() != collate.KindNumber {
		return 0, errors.New(errors.Validation, "expected a number, got %s", v.Kind())
	}
	return v.Number(), nil
}
