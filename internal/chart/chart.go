// Package chart turns dataset values into label/value payloads for client-side charts.
package chart

import (
	"encoding/json"
	"html/template"

	"github.com/tinytelemetry/druguse/internal/model"
)

// Series is an ordered set of labelled numeric points.
type Series struct {
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

// FromPoints builds a series labelled by age, one point per stored record.
func FromPoints(points []model.SeriesPoint) Series {
	s := Series{
		Labels: make([]string, 0, len(points)),
		Data:   make([]float64, 0, len(points)),
	}
	for _, p := range points {
		s.Labels = append(s.Labels, p.Age)
		s.Data = append(s.Data, p.Value.ChartValue())
	}
	return s
}

// FromRecordUse builds a series of one record's use values, labelled by drug.
func FromRecordUse(rec model.Record) Series {
	s := Series{
		Labels: make([]string, 0, len(rec.Drugs)),
		Data:   make([]float64, 0, len(rec.Drugs)),
	}
	for _, dv := range rec.Drugs {
		s.Labels = append(s.Labels, dv.Drug)
		s.Data = append(s.Data, dv.Use.ChartValue())
	}
	return s
}

// LabelsJSON returns the labels as a JSON array safe to embed in a script block.
func (s Series) LabelsJSON() template.JS {
	return toJS(s.Labels)
}

// DataJSON returns the values as a JSON array safe to embed in a script block.
func (s Series) DataJSON() template.JS {
	return toJS(s.Data)
}

// toJS relies on encoding/json escaping <, > and & so the literal cannot
// close the surrounding script element.
func toJS(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return template.JS(b)
}
