// Package reports construye las vistas de ventas, entradas y vencidos a partir del
// historial de movimientos y la lista de medicamentos.
package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/farmacia-api/internal/application/dto"
	"github.com/jhoicas/farmacia-api/internal/domain"
	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/internal/domain/inventory"
	"github.com/jhoicas/farmacia-api/internal/domain/repository"
)

// Source origen de datos de los reportes: repositorios del servidor o el gateway del cliente.
type Source interface {
	ListMedications(ctx context.Context) ([]*entity.Medication, error)
	ListMovements(ctx context.Context) ([]*entity.Movement, error)
}

// RepositorySource adapta los repositorios de persistencia a Source.
type RepositorySource struct {
	Medications repository.MedicationRepository
	Movements   repository.MovementRepository
}

func (s RepositorySource) ListMedications(ctx context.Context) ([]*entity.Medication, error) {
	return s.Medications.List(ctx)
}

func (s RepositorySource) ListMovements(ctx context.Context) ([]*entity.Movement, error) {
	return s.Movements.List(ctx, "")
}

// Service arma los reportes. Las fechas se evalúan en la zona civil de los movimientos.
type Service struct {
	src Source
	loc *time.Location
	now func() time.Time
}

// NewService construye el servicio de reportes.
func NewService(src Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{src: src, loc: loc, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// ParsePeriod valida filtro y fecha del query.
func ParsePeriod(q dto.ReportQuery) (inventory.Period, error) {
	f, err := inventory.ParseTimeFilter(q.Filter)
	if err != nil {
		return inventory.Period{}, domain.NewValidationError("filter", "filtro inválido (hoy, 7dias, 30dias, todos)")
	}
	d, err := dto.ParseDate(q.Date)
	if err != nil {
		return inventory.Period{}, domain.NewValidationError("date", "fecha inválida, use YYYY-MM-DD")
	}
	return inventory.Period{Filter: f, Date: d}, nil
}

// fetch trae medicamentos y movimientos en paralelo.
func (s *Service) fetch(ctx context.Context) ([]*entity.Medication, []*entity.Movement, error) {
	var (
		meds []*entity.Medication
		movs []*entity.Movement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meds, err = s.src.ListMedications(gctx)
		if err != nil {
			return fmt.Errorf("reports: medicamentos: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		movs, err = s.src.ListMovements(gctx)
		if err != nil {
			return fmt.Errorf("reports: movimientos: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return meds, movs, nil
}

// SalesTransactions agrupa las ventas del periodo en transacciones por minuto.
func (s *Service) SalesTransactions(ctx context.Context, p inventory.Period) ([]inventory.SaleTransaction, inventory.SalesSummary, error) {
	meds, movs, err := s.fetch(ctx)
	if err != nil {
		return nil, inventory.SalesSummary{}, err
	}
	groups := inventory.GroupSales(p.Apply(movs, s.today()), meds)
	return groups, inventory.SummarizeSales(groups), nil
}

// Sales reporte de ventas.
func (s *Service) Sales(ctx context.Context, q dto.ReportQuery) (*dto.SalesReportResponse, error) {
	p, err := ParsePeriod(q)
	if err != nil {
		return nil, err
	}
	groups, sum, err := s.SalesTransactions(ctx, p)
	if err != nil {
		return nil, err
	}
	out := &dto.SalesReportResponse{
		Filter: string(p.Filter),
		Date:   dto.FormatDate(p.Date),
		Summary: dto.SalesSummaryResponse{
			Transactions: sum.Transactions,
			Items:        sum.Items,
			Units:        sum.Units,
			Revenue:      sum.Revenue,
		},
		Transactions: make([]dto.SaleTransactionResponse, 0, len(groups)),
	}
	for _, g := range groups {
		tx := dto.SaleTransactionResponse{
			ID:             g.ID,
			Date:           g.Date,
			TotalUnits:     g.TotalUnits,
			UniqueProducts: g.UniqueProducts,
			Total:          g.Total,
			Items:          make([]dto.SaleItemResponse, 0, len(g.Items)),
		}
		for _, it := range g.Items {
			tx.Items = append(tx.Items, dto.SaleItemResponse{
				MovementID:     it.MovementID,
				MedicationID:   it.MedicationID,
				ProductName:    it.ProductName,
				Quantity:       it.Quantity,
				UnitPrice:      it.UnitPrice,
				Subtotal:       it.Subtotal,
				MovementDate:   it.MovementDate,
				ExpirationDate: dto.FormatDate(it.ExpirationDate),
			})
		}
		out.Transactions = append(out.Transactions, tx)
	}
	return out, nil
}

// Entries reporte de entradas de stock.
func (s *Service) Entries(ctx context.Context, q dto.ReportQuery) (*dto.EntriesReportResponse, error) {
	p, err := ParsePeriod(q)
	if err != nil {
		return nil, err
	}
	meds, movs, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	entries := inventory.Entries(p.Apply(movs, s.today()), meds)
	sum := inventory.SummarizeEntries(entries)
	out := &dto.EntriesReportResponse{
		Filter: string(p.Filter),
		Date:   dto.FormatDate(p.Date),
		Summary: dto.EntriesSummaryResponse{
			Entries: sum.Entries,
			Units:   sum.Units,
			New:     sum.New,
			Stock:   sum.Stock,
			Restock: sum.Restock,
		},
		Entries: make([]dto.EntryResponse, 0, len(entries)),
	}
	for _, e := range entries {
		out.Entries = append(out.Entries, dto.EntryResponse{
			MovementID:     e.Movement.ID,
			MedicationID:   e.Movement.MedicationID,
			ProductName:    e.ProductName,
			Kind:           e.Kind,
			Quantity:       e.Movement.Quantity,
			MovementDate:   e.Movement.MovementDate,
			ExpirationDate: dto.FormatDate(e.Movement.ExpirationDate),
		})
	}
	return out, nil
}

// Expired reporte de vencidos, por vencer y stock bajo. No usa el historial de movimientos.
func (s *Service) Expired(ctx context.Context) (*dto.ExpiredReportResponse, error) {
	meds, err := s.src.ListMedications(ctx)
	if err != nil {
		return nil, fmt.Errorf("reports: medicamentos: %w", err)
	}
	today := s.today()
	out := &dto.ExpiredReportResponse{
		Today:        today.Format(dto.DateLayout),
		Expired:      []dto.ExpiredItemResponse{},
		ExpiringSoon: []dto.MedicationResponse{},
		LowStock:     []dto.MedicationResponse{},
	}
	for _, e := range inventory.ExpiredMedications(meds, today) {
		out.Expired = append(out.Expired, dto.ExpiredItemResponse{
			Medication:  *dto.ToMedicationResponse(e.Medication),
			DaysExpired: e.DaysExpired,
		})
	}
	for _, m := range inventory.ExpiringSoon(meds, today) {
		out.ExpiringSoon = append(out.ExpiringSoon, *dto.ToMedicationResponse(m))
	}
	for _, m := range meds {
		if m.IsLowStock() {
			out.LowStock = append(out.LowStock, *dto.ToMedicationResponse(m))
		}
	}
	return out, nil
}
