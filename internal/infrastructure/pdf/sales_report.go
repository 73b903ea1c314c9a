// Package pdf genera el reporte de ventas en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Farmacia + título    │  Período + fecha de emisión  │
//	│  RESUMEN: transacciones / unidades / ingresos                │
//	│  ─────────────────────────────────────────────────────────  │
//	│  POR TRANSACCIÓN: hora + total                               │
//	│    Cant | Producto | P.Unit | Subtotal                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAL DEL PERÍODO                                           │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/farmacia-api/internal/domain/inventory"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 110, Blue: 90}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// CurrencySymbol símbolo de moneda (córdobas).
const CurrencySymbol = "C$"

// SalesReport datos de entrada del PDF.
type SalesReport struct {
	PharmacyName string
	PeriodLabel  string
	GeneratedAt  time.Time
	Transactions []inventory.SaleTransaction
	Summary      inventory.SalesSummary
}

// SalesReportGenerator arma el PDF con Maroto v2.
type SalesReportGenerator struct{}

func NewSalesReportGenerator() *SalesReportGenerator { return &SalesReportGenerator{} }

// Generate genera el PDF y devuelve sus bytes.
func (g *SalesReportGenerator) Generate(_ context.Context, r SalesReport) ([]byte, error) {
	name := nonEmpty(r.PharmacyName, "Farmacia")
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Reporte de ventas", true).
		WithAuthor(name, true).
		Build()

	m := maroto.New(cfg)
	m.AddRows(headerRow(name, r))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(r.Summary))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	if len(r.Transactions) == 0 {
		m.AddRows(row.New(10).Add(col.New(12).Add(
			text.New("No hay ventas en el período seleccionado.", props.Text{
				Size: 9, Align: align.Center, Color: colorGray, Top: 3,
			}),
		)))
	}
	for _, tx := range r.Transactions {
		m.AddRows(transactionRows(tx)...)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(r.Summary.Revenue))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(name string, r SalesReport) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(name, props.Text{Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1}),
			text.New("Reporte de ventas", props.Text{Size: 9, Top: 9, Color: colorGray}),
		),
		col.New(5).Add(
			text.New("Período: "+nonEmpty(r.PeriodLabel, "todos"), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 2,
			}),
			text.New("Emitido: "+r.GeneratedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func summaryRow(s inventory.SalesSummary) core.Row {
	cell := func(label, value string) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Size: 7, Align: align.Center, Color: colorGray, Top: 1}),
			text.New(value, props.Text{Style: fontstyle.Bold, Size: 11, Align: align.Center, Top: 5}),
		)
	}
	return row.New(14).Add(
		cell("Transacciones", fmt.Sprint(s.Transactions)),
		cell("Unidades vendidas", fmt.Sprint(s.Units)),
		cell("Ingresos", Money(s.Revenue)),
	)
}

// transactionRows: encabezado de la transacción y una fila por producto.
func transactionRows(tx inventory.SaleTransaction) []core.Row {
	rows := []core.Row{
		row.New(7).Add(
			col.New(8).Add(text.New(
				fmt.Sprintf("%s  ·  %d productos, %d unidades", tx.Date.Format("02/01/2006 15:04"), tx.UniqueProducts, tx.TotalUnits),
				props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2},
			)),
			col.New(4).Add(text.New(Money(tx.Total), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Top: 2, Right: 1,
			})),
		),
	}
	for _, it := range tx.Items {
		rows = append(rows, row.New(5).Add(
			col.New(1).Add(text.New(fmt.Sprint(it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(6).Add(text.New(it.ProductName, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New(Money(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1})),
			col.New(3).Add(text.New(Money(it.Subtotal), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return rows
}

func totalRow(total decimal.Decimal) core.Row {
	return row.New(10).Add(
		col.New(6),
		col.New(3).Add(text.New("TOTAL DEL PERÍODO:", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 2, Right: 2,
		})),
		col.New(3).Add(text.New(Money(total), props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 2, Right: 1,
		})),
	)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// Money formatea con separador de miles y dos decimales: 1234.5 -> "C$1,234.50".
func Money(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString(CurrencySymbol)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteByte(c)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
