package kinds

import (
	"context"
	"fmt"

	"kodiak/lib/column"
	"kodiak/lib/ftypes"
	"kodiak/lib/metric"
	"kodiak/lib/value"
)

/*
	Maintains an average as a (sum, count) pair so that partial averages can
	be merged exactly.
*/
type average struct {
	meta *column.Metadata
	of   ftypes.ColumnName
	sum  float64
	num  int64
}

var _ metric.Metric = (*average)(nil)

func Average(name, of ftypes.ColumnName) metric.Metric {
	return &average{meta: column.New(name, of), of: of}
}

func (a *average) ColumnMetadata() *column.Metadata {
	return a.meta
}

func (a *average) Zero() metric.Metric {
	return &average{meta: a.meta, of: a.of}
}

func (a *average) Compute(ctx context.Context, scope metric.Scope) error {
	v, err := metric.Clear(scope, a.meta.Name(), a.of)
	if err != nil {
		return err
	}
	if v.Equal(value.Nil) {
		return nil
	}
	f, ok := value.ToFloat(v)
	if !ok {
		return metric.NewDependencyUnavailable(a.meta.Name(), a.of, fmt.Errorf("value [%s] is not a number", v))
	}
	a.sum += f
	a.num++
	return nil
}

func (a *average) Aggregate(other metric.Metric) metric.Metric {
	o := metric.MustMatch[*average](a, other)
	return &average{meta: a.meta, of: a.of, sum: a.sum + o.sum, num: a.num + o.num}
}

func (a *average) ratio() value.Double {
	if a.num == 0 {
		return value.Double(0)
	}
	return value.Double(a.sum / float64(a.num))
}

func (a *average) JSONValue() (string, error) {
	data, err := value.ToJson(a.ratio())
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (a *average) Data() any {
	return a.ratio()
}
