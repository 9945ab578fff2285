package catchment

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/catchment-service/internal/platform/apierr"
)

func TestValidReachcode(t *testing.T) {
	for _, ok := range []string{"0", "7", "01010002000001", "99999999999999999999999"} {
		assert.True(t, ValidReachcode(ok), ok)
	}
	for _, bad := range []string{"", "12a", "1.5", "-12", "+12", " 12", "12 ", "12\n", "１２", "0x1F"} {
		assert.False(t, ValidReachcode(bad), "%q", bad)
	}
}

func TestParseMeasure(t *testing.T) {
	good := map[string]float64{
		"50":     50,
		"12.5":   12.5,
		"-3.25":  -3.25,
		"1e2":    100,
		" 42.0 ": 42,
		"0":      0,
		"150.75": 150.75,
		"+7":     7,
		".5":     0.5,
		"3.":     3,
		"2.5E-1": 0.25,
	}
	for in, want := range good {
		got, err := ParseMeasure(in)
		require.NoError(t, err, in)
		assert.InDelta(t, want, got, 1e-9, in)
	}
	for _, bad := range []string{"", "abc", "12,5", "1.2.3", "NaN", "inf", "-Inf", "5%", "0x1p4", "0X1.8P1", "0x10", "1_000", "1e", ".", "1e400"} {
		_, err := ParseMeasure(bad)
		assert.Error(t, err, "%q", bad)
	}
}

func TestParseParams(t *testing.T) {
	cases := []struct {
		name    string
		query   string
		code    string
		param   string
		message string
	}{
		{"missing reachcode", "measure=50", apierr.CodeMissingParameter, ParamReachcode, "You must specify a 'reachcode' parameter."},
		{"missing both", "", apierr.CodeMissingParameter, ParamReachcode, "You must specify a 'reachcode' parameter."},
		{"illegal reachcode", "reachcode=12a&measure=50", apierr.CodeInvalidParameter, ParamReachcode, "Illegal reachcode '12a'"},
		{"empty reachcode", "reachcode=&measure=50", apierr.CodeInvalidParameter, ParamReachcode, "Illegal reachcode ''"},
		{"illegal reachcode beats missing measure", "reachcode=x", apierr.CodeInvalidParameter, ParamReachcode, "Illegal reachcode 'x'"},
		{"missing measure", "reachcode=0101", apierr.CodeMissingParameter, ParamMeasure, "You must specify a 'measure' parameter."},
		{"illegal measure", "reachcode=0101&measure=abc", apierr.CodeInvalidParameter, ParamMeasure, "Illegal measure 'abc'"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := url.ParseQuery(tc.query)
			require.NoError(t, err)

			_, perr := ParseParams(values)
			require.Error(t, perr)
			ae, ok := perr.(*apierr.Error)
			require.True(t, ok)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.param, ae.Param)
			assert.Equal(t, tc.message, ae.Error())
		})
	}
}

func TestParseParamsSuccess(t *testing.T) {
	values := url.Values{"reachcode": {"01010002000001"}, "measure": {"37.5"}}
	p, err := ParseParams(values)
	require.NoError(t, err)
	assert.Equal(t, Params{Reachcode: "01010002000001", Measure: 37.5}, p)

	// No range check at this layer.
	p, err = ParseParams(url.Values{"reachcode": {"1"}, "measure": {"250"}})
	require.NoError(t, err)
	assert.Equal(t, 250.0, p.Measure)
}

func TestValidateAllReportsEveryFailure(t *testing.T) {
	_, errs := ValidateAll(url.Values{"reachcode": {"abc"}})
	require.Len(t, errs, 2)
	assert.Equal(t, "Illegal reachcode 'abc'", errs[0].Error())
	assert.Equal(t, "You must specify a 'measure' parameter.", errs[1].Error())
}
