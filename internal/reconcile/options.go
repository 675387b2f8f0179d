package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultLowStockThreshold = 10
	DefaultTopN              = 10
)

// Options are the call-time knobs of a run.
type Options struct {
	LowStockThreshold int64       `validate:"gte=0"`
	TopN              int         `validate:"gte=1,lte=500"`
	Granularity       Granularity `validate:"oneof=month week"`
}

// DefaultOptions returns a threshold of 10, top 10, and monthly trends.
func DefaultOptions() Options {
	return Options{
		LowStockThreshold: DefaultLowStockThreshold,
		TopN:              DefaultTopN,
		Granularity:       GranularityMonth,
	}
}

var validate = validator.New()

// Validate reports the first invalid field wrapped in ErrInvalidArgument.
func (o Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return invalidArgument("option %s fails %s", strings.ToLower(fe.Field()), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
}

// ParseGranularity accepts "month" or "week"; empty means month.
func ParseGranularity(value string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(GranularityMonth):
		return GranularityMonth, nil
	case string(GranularityWeek):
		return GranularityWeek, nil
	default:
		return "", invalidArgument("granularity %q", value)
	}
}
