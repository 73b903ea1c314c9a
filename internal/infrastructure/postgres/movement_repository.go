package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo persistencia append-only de movimientos.
type MovementRepo struct {
	db Querier
}

func NewMovementRepository(db Querier) *MovementRepo {
	return &MovementRepo{db: db}
}

// Create inserta el movimiento. Los movimientos nunca se actualizan ni se borran.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movements (id, medication_id, type, quantity, movement_date, expiration_date)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query,
		m.ID, m.MedicationID, m.Type, m.Quantity, m.MovementDate, m.ExpirationDate,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// List devuelve los movimientos más recientes primero, con el nombre actual del medicamento.
// medication_id es una referencia débil: si el medicamento ya no existe el nombre queda vacío.
func (r *MovementRepo) List(ctx context.Context, movementType string) ([]*entity.Movement, error) {
	query := `
		SELECT mv.id, mv.medication_id, COALESCE(md.name, ''), mv.type, mv.quantity,
		       mv.movement_date, mv.expiration_date
		FROM movements mv
		LEFT JOIN medications md ON md.id = mv.medication_id
		WHERE ($1 = '' OR mv.type = $1)
		ORDER BY mv.movement_date DESC, mv.id`
	rows, err := r.db.Query(ctx, query, movementType)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Movement, 0)
	for rows.Next() {
		var m entity.Movement
		if err := rows.Scan(&m.ID, &m.MedicationID, &m.MedicationName, &m.Type, &m.Quantity,
			&m.MovementDate, &m.ExpirationDate); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
