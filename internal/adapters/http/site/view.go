package site

import (
	"net/http"
	"strconv"

	"github.com/malcong/controle/internal/app"
	"github.com/malcong/controle/internal/domain/chartdata"
)

type chartCard struct {
	Kind    chartdata.Kind
	Title   string
	Src     string
	Empty   bool
	Message string
}

type metricRow struct {
	Label   string
	Display string
}

type page struct {
	AppName        string
	AnalyticsToken string
	HashRoute      bool

	View      app.View
	Notice    string
	Loading   bool
	ShareURL  string
	Charts    []chartCard
	Metrics   []metricRow
	HasResult bool

	DefaultTimePoints int
	DefaultTimeEnd    string
}

var chartTitles = map[chartdata.Kind]string{
	chartdata.KindImpulse:    "Impulse Response",
	chartdata.KindStep:       "Step Response",
	chartdata.KindRamp:       "Ramp Response",
	chartdata.KindComparison: "Step vs Impulse",
}

var emptyMessages = map[chartdata.Kind]string{
	chartdata.KindImpulse:    "Configure the transfer function to see the impulse response",
	chartdata.KindStep:       "Configure the transfer function to see the step response",
	chartdata.KindRamp:       "Configure the transfer function to see the ramp response",
	chartdata.KindComparison: "Configure the transfer function to compare the responses",
}

const rampUnavailable = "The analysis server did not return a ramp response for this system"

func (h *Handler) page(r *http.Request, v app.View) page {
	p := page{
		AppName:           h.appName,
		AnalyticsToken:    h.analyticsToken,
		HashRoute:         h.hashRoute,
		View:              v,
		Loading:           v.State == app.StateLoading,
		HasResult:         v.HasCharts(),
		DefaultTimePoints: h.timePoints,
		DefaultTimeEnd:    strconv.FormatFloat(h.timeEnd, 'f', -1, 64),
	}
	if v.Input.Numerator != "" && v.Input.Denominator != "" {
		p.ShareURL = h.shareURL(r, v.Input)
	}

	for _, k := range chartdata.Kinds {
		data := v.Charts.Get(k)
		card := chartCard{Kind: k, Title: chartTitles[k], Empty: data.Empty(), Message: emptyMessages[k]}
		if card.Empty && k == chartdata.KindRamp && v.HasCharts() {
			card.Message = rampUnavailable
		}
		if !card.Empty {
			card.Src = "/charts/" + string(k) + ".svg?v=" + v.Nonce + "-" + strconv.FormatUint(v.Seq, 10)
		}
		p.Charts = append(p.Charts, card)
	}

	for _, m := range v.Metrics {
		p.Metrics = append(p.Metrics, metricRow{Label: m.Label, Display: m.Display()})
	}
	return p
}

// shareURL builds an absolute link that reproduces input when opened.
func (h *Handler) shareURL(r *http.Request, in app.Input) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	base := scheme + "://" + r.Host + "/"
	if h.hashRoute {
		return base + "#/?" + in.Query().Encode()
	}
	return base + "?" + in.Query().Encode()
}
