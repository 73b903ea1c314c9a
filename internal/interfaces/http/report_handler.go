package http

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/application/reports"
	"github.com/jhoicas/farmacia-api/internal/infrastructure/pdf"
)

// salesPDFGenerator lo implementa *pdf.SalesReportGenerator.
type salesPDFGenerator interface {
	Generate(ctx context.Context, r pdf.SalesReport) ([]byte, error)
}

// ReportHandler vistas de ventas, entradas y vencidos.
type ReportHandler struct {
	svc          *reports.Service
	pdf          salesPDFGenerator
	pharmacyName string
}

func NewReportHandler(svc *reports.Service, gen salesPDFGenerator, pharmacyName string) *ReportHandler {
	return &ReportHandler{svc: svc, pdf: gen, pharmacyName: pharmacyName}
}

func parseReportQuery(c *fiber.Ctx) (dto.ReportQuery, bool, error) {
	var q dto.ReportQuery
	if err := c.QueryParser(&q); err != nil {
		return q, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_QUERY", Message: "parámetros inválidos"})
	}
	if err := validate.Struct(q); err != nil {
		return q, false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: validationMessage(err)})
	}
	return q, true, nil
}

// Sales godoc
// @Summary      Reporte de ventas agrupadas por transacción
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        filter  query  string  false  "hoy | 7dias | 30dias | todos"
// @Param        date    query  string  false  "Fecha específica YYYY-MM-DD"
// @Success      200     {object}  dto.SalesReportResponse
// @Router       /api/reports/sales [get]
func (h *ReportHandler) Sales(c *fiber.Ctx) error {
	q, ok, err := parseReportQuery(c)
	if !ok {
		return err
	}
	out, err := h.svc.Sales(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Entries godoc
// @Summary      Reporte de entradas de stock
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Param        filter  query  string  false  "hoy | 7dias | 30dias | todos"
// @Param        date    query  string  false  "Fecha específica YYYY-MM-DD"
// @Success      200     {object}  dto.EntriesReportResponse
// @Router       /api/reports/entries [get]
func (h *ReportHandler) Entries(c *fiber.Ctx) error {
	q, ok, err := parseReportQuery(c)
	if !ok {
		return err
	}
	out, err := h.svc.Entries(c.UserContext(), q)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Expired godoc
// @Summary      Vencidos, por vencer y stock bajo
// @Tags         reports
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ExpiredReportResponse
// @Router       /api/reports/expired [get]
func (h *ReportHandler) Expired(c *fiber.Ctx) error {
	out, err := h.svc.Expired(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// SalesPDF godoc
// @Summary      Reporte de ventas en PDF
// @Tags         reports
// @Security     Bearer
// @Produce      application/pdf
// @Param        filter  query  string  false  "hoy | 7dias | 30dias | todos"
// @Param        date    query  string  false  "Fecha específica YYYY-MM-DD"
// @Success      200
// @Router       /api/reports/sales.pdf [get]
func (h *ReportHandler) SalesPDF(c *fiber.Ctx) error {
	q, ok, err := parseReportQuery(c)
	if !ok {
		return err
	}
	period, err := reports.ParsePeriod(q)
	if err != nil {
		return writeError(c, err)
	}
	groups, summary, err := h.svc.SalesTransactions(c.UserContext(), period)
	if err != nil {
		return writeError(c, err)
	}
	label := string(period.Filter)
	if s := dto.FormatDate(period.Date); s != nil {
		label = *s
	}
	now := time.Now()
	doc, err := h.pdf.Generate(c.UserContext(), pdf.SalesReport{
		PharmacyName: h.pharmacyName,
		PeriodLabel:  label,
		GeneratedAt:  now,
		Transactions: groups,
		Summary:      summary,
	})
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="ventas-%s.pdf"`, now.Format("20060102")))
	return c.Send(doc)
}
