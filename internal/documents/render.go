package documents

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"caterly/internal/meals"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"money":   money,
	"date":    formatDate,
	"session": func(g meals.SessionGroup) string { return meals.Label(g.MenuType, g.Key, "") },
	"members": members,
	"pct":     percent,
	"join":    strings.Join,
	"qty":     func(v float64) string { return decimal.NewFromFloat(v).String() },
	"inc":     func(i int) int { return i + 1 },
}

// templates holds one parsed set per kind; every set shares layout.html.
var templates = func() map[string]*template.Template {
	out := map[string]*template.Template{}
	for _, kind := range []string{KindBill, KindOrder, KindExpense, KindWorkforce, KindStatement, KindInventory} {
		out[kind] = template.Must(
			template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+kind+".html"),
		)
	}
	return out
}()

// Render produces the HTML of one document. The output depends only on d.
func Render(d Data) (string, error) {
	t, ok := templates[d.Kind()]
	if !ok {
		return "", ErrUnknownKind
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", d); err != nil {
		return "", fmt.Errorf("render %s: %w", d.Kind(), err)
	}
	return buf.String(), nil
}

// money formats a rupee amount with Indian digit grouping: ₹1,23,456.50.
func money(v any) string {
	var d decimal.Decimal
	switch x := v.(type) {
	case decimal.Decimal:
		d = x
	case float64:
		d = decimal.NewFromFloat(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	default:
		return fmt.Sprint(v)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	s := d.StringFixed(2)
	whole, frac := s[:len(s)-3], s[len(s)-2:]

	if len(whole) > 3 {
		head, tail := whole[:len(whole)-3], whole[len(whole)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		if head != "" {
			parts = append([]string{head}, parts...)
		}
		whole = strings.Join(append(parts, tail), ",")
	}
	return sign + "₹" + whole + "." + frac
}

func formatDate(v any) string {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.UTC().Format("02 Jan 2006")
	case string:
		if t, ok := meals.ParseDate(x); ok {
			return t.Format("02 Jan 2006")
		}
		return x
	}
	return fmt.Sprint(v)
}

func members(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprint(*n)
}

func percent(p *float64) string {
	if p == nil {
		return ""
	}
	return decimal.NewFromFloat(*p).StringFixed(2) + "%"
}
