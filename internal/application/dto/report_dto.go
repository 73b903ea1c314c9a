package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReportQuery parámetros de los reportes de movimientos.
type ReportQuery struct {
	Filter string `query:"filter" validate:"omitempty,oneof=hoy 7dias 30dias todos"`
	Date   string `query:"date" validate:"omitempty,datetime=2006-01-02"`
}

// SaleItemResponse una línea de venta dentro de una transacción.
type SaleItemResponse struct {
	MovementID     string          `json:"movement_id"`
	MedicationID   string          `json:"medication_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	MovementDate   time.Time       `json:"movement_date"`
	ExpirationDate *string         `json:"expiration_date"`
}

// SaleTransactionResponse ventas agrupadas por minuto.
type SaleTransactionResponse struct {
	ID             string             `json:"id"`
	Date           time.Time          `json:"date"`
	Items          []SaleItemResponse `json:"items"`
	TotalUnits     int                `json:"total_units"`
	UniqueProducts int                `json:"unique_products"`
	Total          decimal.Decimal    `json:"total"`
}

// SalesSummaryResponse totales del periodo.
type SalesSummaryResponse struct {
	Transactions int             `json:"transactions"`
	Items        int             `json:"items"`
	Units        int             `json:"units"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// SalesReportResponse reporte de ventas.
type SalesReportResponse struct {
	Filter       string                    `json:"filter"`
	Date         *string                   `json:"date,omitempty"`
	Summary      SalesSummaryResponse      `json:"summary"`
	Transactions []SaleTransactionResponse `json:"transactions"`
}

// EntryResponse una entrada de stock clasificada.
type EntryResponse struct {
	MovementID     string    `json:"movement_id"`
	MedicationID   string    `json:"medication_id"`
	ProductName    string    `json:"product_name"`
	Kind           string    `json:"kind"` // nuevo | entrada | reposicion
	Quantity       int       `json:"quantity"`
	MovementDate   time.Time `json:"movement_date"`
	ExpirationDate *string   `json:"expiration_date"`
}

// EntriesSummaryResponse totales de entradas por tipo.
type EntriesSummaryResponse struct {
	Entries int `json:"entries"`
	Units   int `json:"units"`
	New     int `json:"new"`
	Stock   int `json:"stock"`
	Restock int `json:"restock"`
}

// EntriesReportResponse reporte de entradas.
type EntriesReportResponse struct {
	Filter  string                 `json:"filter"`
	Date    *string                `json:"date,omitempty"`
	Summary EntriesSummaryResponse `json:"summary"`
	Entries []EntryResponse        `json:"entries"`
}

// ExpiredItemResponse medicamento vencido con los días transcurridos.
type ExpiredItemResponse struct {
	Medication  MedicationResponse `json:"medication"`
	DaysExpired int                `json:"days_expired"`
}

// ExpiredReportResponse reporte de vencidos y por vencer.
type ExpiredReportResponse struct {
	Today        string                `json:"today"`
	Expired      []ExpiredItemResponse `json:"expired"`
	ExpiringSoon []MedicationResponse  `json:"expiring_soon"`
	LowStock     []MedicationResponse  `json:"low_stock"`
}
