package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"

	"github.com/spigell/carbon-match/internal/scoring"
)

// Messages returned with 400 when a required field is absent.
const (
	MissingTrialData    = "Missing trial_data field"
	MissingDescriptions = "Missing description data"
	MissingLocations    = "Missing location data"
	MissingCapability   = "Missing capability/needs data"
)

// ValidationError is a client error reported with status 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Body is a decoded JSON request object.
type Body map[string]any

// DecodeBody reads a single JSON object from r. An empty body decodes to an
// empty Body. Anything but whitespace after the object is rejected.
func DecodeBody(r io.Reader) (Body, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body Body
	if err := dec.Decode(&body); err != nil {
		if err == io.EOF {
			return Body{}, nil
		}
		return nil, decodeError(err)
	}

	var extra json.RawMessage
	switch err := dec.Decode(&extra); err {
	case io.EOF:
	case nil:
		return nil, invalid("invalid JSON body: unexpected data after the top-level object")
	default:
		return nil, decodeError(err)
	}

	if body == nil {
		body = Body{}
	}

	return body, nil
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return invalid("invalid JSON body: %v", err)
}

// require fails with message unless every key is present and non-null.
func (b Body) require(message string, keys ...string) error {
	for _, key := range keys {
		if v, ok := b[key]; !ok || v == nil {
			return &ValidationError{Message: message}
		}
	}
	return nil
}

// decode copies the body into a request struct tagged with `mapstructure`.
func (b Body) decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     out,
		DecodeHook: numberHook,
	})
	if err != nil {
		return err
	}

	if err := dec.Decode(map[string]any(b)); err != nil {
		return invalid("%s", strings.TrimPrefix(err.Error(), "1 error(s) decoding:\n\n* "))
	}
	return nil
}

// numberHook turns json.Number into float64 before it reaches a float field,
// and into a plain value when the target is loosely typed.
func numberHook(_, to reflect.Type, data any) (any, error) {
	n, ok := data.(json.Number)
	if !ok {
		return data, nil
	}
	if to.Kind() == reflect.String {
		return data, nil
	}
	return n.Float64()
}

type riskRequest struct {
	TrialData map[string]any `mapstructure:"trial_data"`
}

type fundingRequest struct {
	TotalCredits    any `mapstructure:"total_credits"`
	ExpectedCredits any `mapstructure:"expected_credits"`
	AmountInvested  any `mapstructure:"amount_invested"`
}

type alignmentRequest struct {
	FunderDescription string `mapstructure:"funder_description"`
	FundeeDescription string `mapstructure:"fundee_description"`
}

type locationRequest struct {
	FunderLocation any `mapstructure:"funder_location"`
	FundeeLocation any `mapstructure:"fundee_location"`
}

type capabilityRequest struct {
	FunderCapability float64 `mapstructure:"funder_capability"`
	FundeeNeeds      float64 `mapstructure:"fundee_needs"`
}

func (b Body) trial() (scoring.TrialRecord, error) {
	if err := b.require(MissingTrialData, "trial_data"); err != nil {
		return nil, err
	}

	var req riskRequest
	if err := b.decode(&req); err != nil {
		return nil, err
	}

	return scoring.TrialRecord(plain(req.TrialData).(map[string]any)), nil
}

// funding reads the optional credit and investment figures. Values that are
// not numbers are treated as absent and get the documented defaults.
func (b Body) funding() scoring.FundingProfile {
	var req fundingRequest
	// fields are untyped, decoding cannot fail
	_ = b.decode(&req)

	return scoring.FundingProfile{
		TotalCredits:    optionalNumber(req.TotalCredits),
		ExpectedCredits: optionalNumber(req.ExpectedCredits),
		AmountInvested:  optionalNumber(req.AmountInvested),
	}
}

func (b Body) descriptions() (scoring.DescriptionPair, error) {
	if err := b.require(MissingDescriptions, "funder_description", "fundee_description"); err != nil {
		return scoring.DescriptionPair{}, err
	}

	var req alignmentRequest
	if err := b.decode(&req); err != nil {
		return scoring.DescriptionPair{}, err
	}

	return scoring.DescriptionPair{Funder: req.FunderDescription, Fundee: req.FundeeDescription}, nil
}

func (b Body) locations() (any, any, error) {
	if err := b.require(MissingLocations, "funder_location", "fundee_location"); err != nil {
		return nil, nil, err
	}

	var req locationRequest
	_ = b.decode(&req)

	return plain(req.FunderLocation), plain(req.FundeeLocation), nil
}

func (b Body) capability() (float64, float64, error) {
	if err := b.require(MissingCapability, "funder_capability", "fundee_needs"); err != nil {
		return 0, 0, err
	}

	var req capabilityRequest
	if err := b.decode(&req); err != nil {
		return 0, 0, err
	}

	return req.FunderCapability, req.FundeeNeeds, nil
}

// optionalNumber returns nil for absent or non-numeric values. Numeric
// strings are accepted.
func optionalNumber(v any) *float64 {
	switch v.(type) {
	case nil, bool:
		return nil
	}

	f, err := cast.ToFloat64E(plain(v))
	if err != nil {
		return nil
	}
	return &f
}

// plain replaces json.Number values with float64 so scorers see the same
// types whether the body came from HTTP or from a file.
func plain(v any) any {
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = plain(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}
