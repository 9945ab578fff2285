// Package catchment holds the request pipeline in front of the delineation
// engine: input validation, per-request scratch workspaces, the resolver
// boundary, and safe access to the artifact the resolver produces.
package catchment

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/catchment-service/internal/platform/apierr"
)

const (
	ParamReachcode = "reachcode"
	ParamMeasure   = "measure"
)

var (
	reachcodePattern = regexp.MustCompile(`^[0-9]+$`)
	measurePattern   = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
)

// Params is a validated request. Measure is a percentage along the reach by
// convention; no range check is applied here.
type Params struct {
	Reachcode string
	Measure   float64
}

// ParseParams validates reachcode and measure and reports the first failure
// in the order: reachcode missing, reachcode illegal, measure missing,
// measure illegal.
func ParseParams(values url.Values) (Params, error) {
	p, errs := ValidateAll(values)
	if len(errs) > 0 {
		return Params{}, errs[0]
	}
	return p, nil
}

// ValidateAll checks both parameters without short-circuiting and returns
// every failure in reporting order.
func ValidateAll(values url.Values) (Params, []*apierr.Error) {
	var (
		p    Params
		errs []*apierr.Error
	)

	reachcode, ok := lookup(values, ParamReachcode)
	switch {
	case !ok:
		errs = append(errs, apierr.MissingParameter(ParamReachcode))
	case !ValidReachcode(reachcode):
		errs = append(errs, apierr.InvalidParameter(ParamReachcode, reachcode))
	default:
		p.Reachcode = reachcode
	}

	raw, ok := lookup(values, ParamMeasure)
	switch {
	case !ok:
		errs = append(errs, apierr.MissingParameter(ParamMeasure))
	default:
		m, err := ParseMeasure(raw)
		if err != nil {
			errs = append(errs, apierr.InvalidParameter(ParamMeasure, raw))
		} else {
			p.Measure = m
		}
	}

	return p, errs
}

func ValidReachcode(s string) bool {
	return reachcodePattern.MatchString(s)
}

// ParseMeasure accepts any finite decimal number, tolerating surrounding
// whitespace. NaN, infinities, hex floats and digit separators are not
// measures.
func ParseMeasure(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !measurePattern.MatchString(s) {
		return 0, strconv.ErrSyntax
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, strconv.ErrSyntax
	}
	return f, nil
}

// lookup reports a parameter as present when the key was sent at all; an
// empty value is present and fails validation as illegal.
func lookup(values url.Values, name string) (string, bool) {
	vs, ok := values[name]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}
