// Package templates holds the embedded HTML pages
package templates

import (
	"embed"
	"html/template"
	"time"

	"sweetbite/models"
	"sweetbite/statemachine"

	"github.com/shopspring/decimal"
)

//go:embed html/*.html
var files embed.FS

// Funcs are the helpers available to every page
var Funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string {
		return "$" + d.StringFixed(2)
	},
	"label": func(s models.OrderStatus) string {
		return s.Label()
	},
	"statuses": func() []models.OrderStatus {
		return models.Statuses
	},
	"nextStatuses": func(s models.OrderStatus, actor string) []models.OrderStatus {
		return statemachine.ValidTransitionsFrom(s, statemachine.Actor(actor))
	},
	"date": func(t time.Time) string {
		return t.Local().Format("Jan 2, 2006 15:04")
	},
	"upload": func(path string) string {
		if path == "" {
			return ""
		}
		return "/uploads/" + path
	},
	"coord": func(f *float64) string {
		if f == nil {
			return ""
		}
		return decimal.NewFromFloat(*f).StringFixed(6)
	},
}

// Load parses every page with the shared partials
func Load() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(files, "html/*.html")
}

// MustLoad is Load for program start-up
func MustLoad() *template.Template {
	return template.Must(Load())
}
