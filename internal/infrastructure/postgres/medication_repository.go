package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/farmacia-api/internal/domain/entity"
	"github.com/jhoicas/farmacia-api/internal/domain/repository"
)

var _ repository.MedicationRepository = (*MedicationRepo)(nil)

const medicationColumns = `id, name, quantity, price, expiration_date, created_at, updated_at`

// MedicationRepo implementación del puerto MedicationRepository sobre PostgreSQL.
type MedicationRepo struct {
	db Querier
}

// NewMedicationRepository construye el adaptador; db puede ser el pool o una transacción.
func NewMedicationRepository(db Querier) *MedicationRepo {
	return &MedicationRepo{db: db}
}

// Create persiste un nuevo medicamento.
func (r *MedicationRepo) Create(ctx context.Context, med *entity.Medication) error {
	query := `
		INSERT INTO medications (` + medicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		med.ID, med.Name, med.Quantity, med.Price, med.ExpirationDate, med.CreatedAt, med.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert medication: %w", err)
	}
	return nil
}

// GetByID obtiene un medicamento por ID. Devuelve nil, nil si no existe.
func (r *MedicationRepo) GetByID(ctx context.Context, id string) (*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = $1`
	med, err := scanMedication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return med, nil
}

// Update reemplaza los campos editables del medicamento.
func (r *MedicationRepo) Update(ctx context.Context, med *entity.Medication) error {
	query := `
		UPDATE medications
		SET name = $2, quantity = $3, price = $4, expiration_date = $5, updated_at = $6
		WHERE id = $1`
	_, err := r.db.Exec(ctx, query,
		med.ID, med.Name, med.Quantity, med.Price, med.ExpirationDate, med.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update medication: %w", err)
	}
	return nil
}

// List devuelve todos los medicamentos ordenados por nombre.
func (r *MedicationRepo) List(ctx context.Context) ([]*entity.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications ORDER BY name, id`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	defer rows.Close()

	list := make([]*entity.Medication, 0)
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medication: %w", err)
		}
		list = append(list, med)
	}
	return list, rows.Err()
}

// Delete borra el medicamento. Devuelve false si no existía.
func (r *MedicationRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete medication: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanMedication(row pgx.Row) (*entity.Medication, error) {
	var m entity.Medication
	if err := row.Scan(&m.ID, &m.Name, &m.Quantity, &m.Price, &m.ExpirationDate, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
