package issuance

import (
	"fmt"
	"time"

	"toolroom/internal/repository"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type IssuanceRepository interface {
	GetIssuance(id int) (*models.Issuance, error)
	GetIssuancesBy(queryBuilder repository.QueryBuilder) (*[]models.Issuance, error)
	PersistIssuance(issuance models.Issuance) (*models.Issuance, error)
	SetApproval(id int, status metadata.Status, approvedBy string, approvedAt time.Time, remark string) error
	UpdateStatus(id int, status metadata.Status) error

	// GetOverdueCandidates returns issued records whose planned return
	// date is set and already in the past.
	GetOverdueCandidates(now time.Time) (*[]models.Issuance, error)
	// MarkOverdue flips one issued record to overdue. Returns false when
	// the record was not in issued status anymore, which makes repeated
	// sweeps no-ops.
	MarkOverdue(id int, now time.Time) (bool, error)
}

type issuanceRepositoryImpl struct {
	repository *repository.Repository
}

func NewIssuanceRepository(r *repository.Repository) IssuanceRepository {
	return &issuanceRepositoryImpl{repository: r}
}

func (r *issuanceRepositoryImpl) issuanceColumns() []interface{} {
	return []interface{}{
		"id", "trainer_id", "trainer_name", "training_name", "issuance_date",
		"return_date", "status", "location", "comment", "remarks",
		"approved_by", "approved_at", "approval_remark",
	}
}

func (r *issuanceRepositoryImpl) GetIssuance(id int) (*models.Issuance, error) {
	var flat models.FlatIssuanceRecord
	query := r.repository.GoquDBWrapper.Select(r.issuanceColumns()...).
		From("issuances").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStruct(&flat)
	if err != nil {
		return nil, fmt.Errorf("failed to get issuance: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("issuance", id)
	}

	issuance := flat.TransformToIssuance()
	if err := r.attachLines(&issuance); err != nil {
		return nil, err
	}

	return &issuance, nil
}

func (r *issuanceRepositoryImpl) GetIssuancesBy(queryBuilder repository.QueryBuilder) (*[]models.Issuance, error) {
	conditions := queryBuilder.BuildConditions(map[string]string{
		"status":     "status",
		"location":   "location",
		"trainer_id": "trainer_id",
	})

	query := r.repository.GoquDBWrapper.Select(r.issuanceColumns()...).
		From("issuances").
		Order(goqu.I("issuance_date").Desc())
	if len(conditions) > 0 {
		query = query.Where(conditions)
	}

	var flats []models.FlatIssuanceRecord
	if err := query.Executor().ScanStructs(&flats); err != nil {
		return nil, fmt.Errorf("unable to select issuances from database: %s", err.Error())
	}

	issuances := make([]models.Issuance, 0, len(flats))
	for i := range flats {
		issuance := flats[i].TransformToIssuance()
		if err := r.attachLines(&issuance); err != nil {
			return nil, err
		}
		issuances = append(issuances, issuance)
	}

	return &issuances, nil
}

func (r *issuanceRepositoryImpl) attachLines(issuance *models.Issuance) error {
	toolIDs, err := r.lineIDs("issuance_tools", "tool_id", issuance.ID)
	if err != nil {
		return err
	}
	kitIDs, err := r.lineIDs("issuance_kits", "kit_id", issuance.ID)
	if err != nil {
		return err
	}

	issuance.ToolIDs = toolIDs
	issuance.KitIDs = kitIDs
	return nil
}

func (r *issuanceRepositoryImpl) lineIDs(table string, column string, issuanceID int) ([]int, error) {
	var ids []int
	query := r.repository.GoquDBWrapper.Select(column).
		From(table).
		Where(goqu.Ex{"issuance_id": issuanceID}).
		Order(goqu.I(column).Asc())

	if err := query.Executor().ScanVals(&ids); err != nil {
		return nil, fmt.Errorf("failed to get issuance lines from %s: %w", table, err)
	}

	return ids, nil
}

func (r *issuanceRepositoryImpl) PersistIssuance(issuance models.Issuance) (*models.Issuance, error) {
	err := repository.WithTransaction(r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		query := tx.Insert("issuances").
			Rows(goqu.Record{
				"trainer_id":    issuance.TrainerID,
				"trainer_name":  issuance.TrainerName,
				"training_name": issuance.TrainingName,
				"issuance_date": issuance.IssuanceDate,
				"return_date":   issuance.ReturnDate,
				"status":        string(issuance.Status),
				"location":      issuance.Location.String(),
				"comment":       issuance.Comment,
				"remarks":       issuance.Remarks,
			}).
			Returning("id")

		if _, err := query.Executor().ScanVal(&issuance.ID); err != nil {
			return fmt.Errorf("failed to insert issuance record: %w", err)
		}

		for _, toolID := range issuance.ToolIDs {
			if _, err := tx.Insert("issuance_tools").
				Rows(goqu.Record{"issuance_id": issuance.ID, "tool_id": toolID}).
				Executor().
				Exec(); err != nil {
				if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
					return custom_error.NewNotFoundError("tool", toolID)
				}
				return fmt.Errorf("failed to attach tool %d to issuance: %w", toolID, err)
			}
		}

		for _, kitID := range issuance.KitIDs {
			if _, err := tx.Insert("issuance_kits").
				Rows(goqu.Record{"issuance_id": issuance.ID, "kit_id": kitID}).
				Executor().
				Exec(); err != nil {
				if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
					return custom_error.NewNotFoundError("kit", kitID)
				}
				return fmt.Errorf("failed to attach kit %d to issuance: %w", kitID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &issuance, nil
}

func (r *issuanceRepositoryImpl) SetApproval(id int, status metadata.Status, approvedBy string, approvedAt time.Time, remark string) error {
	result, err := r.repository.GoquDBWrapper.Update("issuances").
		Set(goqu.Record{
			"status":          string(status),
			"approved_by":     approvedBy,
			"approved_at":     approvedAt,
			"approval_remark": remark,
		}).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to record approval for issuance %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("issuance", id)
	}

	return nil
}

func (r *issuanceRepositoryImpl) UpdateStatus(id int, status metadata.Status) error {
	result, err := r.repository.GoquDBWrapper.Update("issuances").
		Set(goqu.Record{"status": string(status)}).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update issuance %d status: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("issuance", id)
	}

	return nil
}

func (r *issuanceRepositoryImpl) GetOverdueCandidates(now time.Time) (*[]models.Issuance, error) {
	query := r.repository.GoquDBWrapper.Select(r.issuanceColumns()...).
		From("issuances").
		Where(goqu.Ex{"status": string(metadata.StatusIssued)}).
		Where(goqu.C("return_date").IsNotNull()).
		Where(goqu.C("return_date").Lt(now)).
		Order(goqu.I("return_date").Asc())

	var flats []models.FlatIssuanceRecord
	if err := query.Executor().ScanStructs(&flats); err != nil {
		return nil, fmt.Errorf("failed to select overdue candidates: %w", err)
	}

	issuances := make([]models.Issuance, 0, len(flats))
	for i := range flats {
		issuance := flats[i].TransformToIssuance()
		if err := r.attachLines(&issuance); err != nil {
			return nil, err
		}
		issuances = append(issuances, issuance)
	}

	return &issuances, nil
}

func (r *issuanceRepositoryImpl) MarkOverdue(id int, now time.Time) (bool, error) {
	result, err := r.repository.GoquDBWrapper.Update("issuances").
		Set(goqu.Record{"status": string(metadata.StatusOverdue)}).
		Where(goqu.Ex{"id": id, "status": string(metadata.StatusIssued)}).
		Where(goqu.C("return_date").IsNotNull()).
		Where(goqu.C("return_date").Lt(now)).
		Executor().
		Exec()
	if err != nil {
		return false, fmt.Errorf("failed to mark issuance %d overdue: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
