package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSampleType(t *testing.T) {
	tests := []struct {
		in   string
		want SampleType
	}{
		{"SPL", SampleTypeSPL},
		{"sample", SampleTypeSPL},
		{"BQC", SampleTypeBQC},
		{"Pooled QC", SampleTypeBQC},
		{"tqc", SampleTypeTQC},
		{"PBLK", SampleTypePBLK},
		{"blank", SampleTypePBLK},
		{"SBLK", SampleTypeSBLK},
		{"RQC", SampleTypeRQC},
		{" spl ", SampleTypeSPL},
		{"mystery", SampleTypeUnknown},
		{"", SampleTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSampleType(tt.in))
		})
	}
}

func TestSampleTypeIsQC(t *testing.T) {
	assert.True(t, SampleTypeBQC.IsQC())
	assert.True(t, SampleTypeRQC.IsQC())
	assert.False(t, SampleTypeSPL.IsQC())
	assert.False(t, SampleTypeUnknown.IsQC())
}

func TestObservationHasArea(t *testing.T) {
	o := Observation{Area: 10}
	assert.True(t, o.HasArea())
	o.Area = math.NaN()
	assert.False(t, o.HasArea())
}

func TestResultTableLookup(t *testing.T) {
	table := ResultTable{
		Samples: []string{"S1", "S2"},
		Lipids:  []string{"PC 34:1"},
		Values:  [][]float64{{1.5}, {2.5}},
	}

	v, ok := table.Lookup("S2", "PC 34:1")
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok = table.Lookup("S3", "PC 34:1")
	assert.False(t, ok)
	_, ok = table.Lookup("S1", "TG 52:3")
	assert.False(t, ok)
}

func TestQCRecordCurveIndices(t *testing.T) {
	r := QCRecord{CurveR2: map[int]float64{2: 0.9, 1: 0.8, 3: 0.7}}
	assert.Equal(t, []int{1, 2, 3}, r.CurveIndices())
	assert.Empty(t, QCRecord{}.CurveIndices())
}
