package order

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"text/template"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var messageTemplate = template.Must(template.New("whatsapp").Parse(`*New order {{.Number}}*
{{- if .StoreName}}
{{.StoreName}}{{end}}

*Customer*
Name: {{.Customer.Name}}
Phone: {{.Customer.Phone}}
{{- if .Customer.Email}}
Email: {{.Customer.Email}}{{end}}
{{- if .Customer.Address}}
Address: {{.Customer.Address}}{{end}}

*Items*
{{- range .Lines}}
{{.Index}}. {{.Name}}{{if .Variant}} ({{.Variant}}){{end}}{{if .SKU}} [{{.SKU}}]{{end}}
   {{.Quantity}} x {{.UnitPrice}} = {{.LineTotal}}
{{- end}}

*Total: {{.Total}}*
{{- if .Customer.Notes}}

Notes: {{.Customer.Notes}}{{end}}
{{- if .Footer}}

{{.Footer}}{{end}}`))

type messageLine struct {
	Index     int
	Name      string
	SKU       string
	Variant   string
	Quantity  int
	UnitPrice string
	LineTotal string
}

type messageData struct {
	Number    string
	StoreName string
	Customer  Customer
	Lines     []messageLine
	Total     string
	Footer    string
}

type moneyFormatter struct {
	symbol  string
	printer *message.Printer
}

func newMoneyFormatter(symbol string) moneyFormatter {
	return moneyFormatter{symbol: symbol, printer: message.NewPrinter(language.English)}
}

// format renders d with two decimals and grouped thousands, e.g. ₹12,499.00.
func (f moneyFormatter) format(d decimal.Decimal) string {
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return f.symbol + d.StringFixed(2)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + f.symbol + f.printer.Sprintf("%d", n) + "." + frac
}

// renderMessage builds the human-readable order summary sent over WhatsApp.
func renderMessage(o *Order, storeName, currency, footer string) (string, error) {
	money := newMoneyFormatter(currency)

	data := messageData{
		Number:    o.OrderNumber,
		StoreName: storeName,
		Customer: Customer{
			Name:    o.CustomerName,
			Phone:   o.CustomerPhone,
			Email:   o.CustomerEmail,
			Address: o.ShippingAddress,
			Notes:   o.Notes,
		},
		Total:  money.format(o.TotalAmount),
		Footer: footer,
	}
	for i, l := range o.Lines {
		data.Lines = append(data.Lines, messageLine{
			Index:     i + 1,
			Name:      l.ProductName,
			SKU:       l.SKU,
			Variant:   variant(l.Size, l.Color),
			Quantity:  l.Quantity,
			UnitPrice: money.format(l.UnitPrice),
			LineTotal: money.format(l.LineTotal),
		})
	}

	var buf bytes.Buffer
	if err := messageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render order message: %w", err)
	}
	return buf.String(), nil
}

func variant(size, color string) string {
	switch {
	case size != "" && color != "":
		return "Size: " + size + ", Color: " + color
	case size != "":
		return "Size: " + size
	case color != "":
		return "Color: " + color
	}
	return ""
}

// whatsAppURL returns a wa.me link that opens a chat with text prefilled.
func whatsAppURL(number, text string) string {
	return "https://wa.me/" + number + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
