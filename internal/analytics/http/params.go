package analytichttp

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/retail-insights/internal/reconcile"
)

const dateLayout = "2006-01-02"

var validate = validator.New()

// query is the raw form of every supported query parameter. Fields are
// checked with validator before any conversion.
type query struct {
	Threshold   string `validate:"omitempty,numeric"`
	Top         string `validate:"omitempty,numeric"`
	Granularity string `validate:"omitempty,oneof=month week"`
	Metric      string `validate:"omitempty,max=64"`
	From        string `validate:"omitempty,datetime=2006-01-02"`
	To          string `validate:"omitempty,datetime=2006-01-02"`
	AsOf        string `validate:"omitempty,datetime=2006-01-02"`

	Categories      []string `validate:"dive,max=128"`
	Variations      []string `validate:"dive,max=128"`
	ProductIDs      []string `validate:"dive,max=64"`
	Vendors         []string `validate:"dive,max=128"`
	Statuses        []string `validate:"dive,max=32"`
	ShippedStatuses []string `validate:"dive,max=32"`
}

var queryFields = map[string]string{
	"Threshold":       "threshold",
	"Top":             "n",
	"Granularity":     "granularity",
	"Metric":          "metric",
	"From":            "from",
	"To":              "to",
	"AsOf":            "as_of",
	"Categories":      "category",
	"Variations":      "variation",
	"ProductIDs":      "product_id",
	"Vendors":         "vendor",
	"Statuses":        "payment_status",
	"ShippedStatuses": "shipped_status",
}

func parseQuery(r *http.Request) (query, error) {
	values := r.URL.Query()
	q := query{
		Threshold:       strings.TrimSpace(values.Get("threshold")),
		Top:             strings.TrimSpace(values.Get("n")),
		Granularity:     strings.ToLower(strings.TrimSpace(values.Get("granularity"))),
		Metric:          strings.TrimSpace(values.Get("metric")),
		From:            strings.TrimSpace(values.Get("from")),
		To:              strings.TrimSpace(values.Get("to")),
		AsOf:            strings.TrimSpace(values.Get("as_of")),
		Categories:      multi(values, "category"),
		Variations:      multi(values, "variation"),
		ProductIDs:      multi(values, "product_id"),
		Vendors:         multi(values, "vendor"),
		Statuses:        multi(values, "payment_status"),
		ShippedStatuses: multi(values, "shipped_status"),
	}
	if err := validate.Struct(q); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return query{}, validationError{field: queryFields[fieldErrs[0].StructField()]}
		}
		return query{}, err
	}
	if q.From != "" && q.To != "" && q.To < q.From {
		return query{}, validationError{field: "to"}
	}
	return q, nil
}

// multi accepts both repeated keys and comma separated values.
func multi(values url.Values, key string) []string {
	var out []string
	for _, raw := range values[key] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// options overlays request overrides on the service defaults.
func (q query) options(defaults reconcile.Options) (reconcile.Options, error) {
	opts := defaults
	if q.Threshold != "" {
		v, err := strconv.ParseInt(q.Threshold, 10, 64)
		if err != nil {
			return reconcile.Options{}, validationError{field: "threshold"}
		}
		opts.LowStockThreshold = v
	}
	if q.Top != "" {
		v, err := strconv.Atoi(q.Top)
		if err != nil {
			return reconcile.Options{}, validationError{field: "n"}
		}
		opts.TopN = v
	}
	if q.Granularity != "" {
		opts.Granularity = reconcile.Granularity(q.Granularity)
	}
	return opts, opts.Validate()
}

// metric resolves the metric parameter, defaulting to revenue.
func (q query) metric() (reconcile.Metric, error) {
	if q.Metric == "" {
		return reconcile.MetricRevenue, nil
	}
	return reconcile.ParseMetric(q.Metric)
}

func (q query) rowFilter() reconcile.RowFilter {
	return reconcile.RowFilter{Categories: q.Categories, Variations: q.Variations}
}

func (q query) purchaseFilter() reconcile.PurchaseFilter {
	return reconcile.PurchaseFilter{
		ProductIDs: q.ProductIDs,
		Vendors:    q.Vendors,
		Statuses:   statuses(q.Statuses),
		From:       date(q.From),
		To:         date(q.To),
	}
}

func (q query) saleFilter() reconcile.SaleFilter {
	return reconcile.SaleFilter{
		ProductIDs:      q.ProductIDs,
		ShippedStatuses: q.ShippedStatuses,
		PaymentStatuses: statuses(q.Statuses),
		From:            date(q.From),
		To:              date(q.To),
	}
}

// asOf is the as_of parameter or now.
func (q query) asOf(now time.Time) time.Time {
	if t := date(q.AsOf); !t.IsZero() {
		return t
	}
	return now
}

func statuses(values []string) []reconcile.PaymentStatus {
	out := make([]reconcile.PaymentStatus, 0, len(values))
	for _, v := range values {
		out = append(out, reconcile.ParsePaymentStatus(v))
	}
	return out
}

// date parses a validated date parameter; empty yields the zero time.
func date(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, value)
	return t
}
