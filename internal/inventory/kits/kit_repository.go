package kits

import (
	"errors"
	"fmt"

	"toolroom/internal/repository"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type KitRepository interface {
	GetKit(id int) (*models.Kit, error)
	GetKitList() (*[]models.Kit, error)
	GetKitsByLocation(location metadata.Location) (*[]models.Kit, error)
	PersistKit(req KitRequest, createdBy string) (*models.Kit, error)
	UpdateKit(id int, req UpdateKitRequest) error
	RemoveKit(id int) error

	// TryReserveKit atomically takes one unit of the kit and of every
	// member tool, all inside one transaction; on any shortage nothing is
	// decremented and false is returned.
	TryReserveKit(id int, borrowerName string) (bool, error)
	// ReleaseKit gives qty units back to the kit and every member tool.
	// Condition and remark apply to the kit row only; member tools keep
	// their own condition history.
	ReleaseKit(id int, qty int, condition *metadata.Condition, remark *string) error
}

// errUnavailable aborts the reservation transaction without being
// reported to the caller as a failure.
var errUnavailable = errors.New("kit unavailable")

type kitRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) KitRepository {
	return &kitRepositoryImpl{repository: r}
}

func (r *kitRepositoryImpl) kitColumns() []interface{} {
	return []interface{}{
		"id", "kit_code", "name", "location", "quantity", "availability",
		"item_condition", "last_borrowed_by", "remark", "created_by", "created_at",
	}
}

func (r *kitRepositoryImpl) GetKit(id int) (*models.Kit, error) {
	var kit models.Kit
	query := r.repository.GoquDBWrapper.Select(r.kitColumns()...).
		From("kits").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStruct(&kit)
	if err != nil {
		return nil, fmt.Errorf("failed to get kit: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("kit", id)
	}

	toolIDs, err := r.getKitToolIDs(id)
	if err != nil {
		return nil, err
	}
	kit.ToolIDs = toolIDs

	return &kit, nil
}

func (r *kitRepositoryImpl) getKitToolIDs(kitID int) ([]int, error) {
	var toolIDs []int
	query := r.repository.GoquDBWrapper.Select("tool_id").
		From("kit_tools").
		Where(goqu.Ex{"kit_id": kitID}).
		Order(goqu.I("tool_id").Asc())

	if err := query.Executor().ScanVals(&toolIDs); err != nil {
		return nil, fmt.Errorf("failed to get kit members: %w", err)
	}

	return toolIDs, nil
}

func (r *kitRepositoryImpl) GetKitList() (*[]models.Kit, error) {
	return r.getKitsWhere(nil)
}

func (r *kitRepositoryImpl) GetKitsByLocation(location metadata.Location) (*[]models.Kit, error) {
	return r.getKitsWhere(goqu.Ex{"location": location.String()})
}

func (r *kitRepositoryImpl) getKitsWhere(conditions goqu.Ex) (*[]models.Kit, error) {
	query := r.repository.GoquDBWrapper.Select(r.kitColumns()...).
		From("kits").
		Order(goqu.I("id").Asc())
	if conditions != nil {
		query = query.Where(conditions)
	}

	var kits []models.Kit
	if err := query.Executor().ScanStructs(&kits); err != nil {
		return nil, fmt.Errorf("unable to select kits from database: %s", err.Error())
	}

	for i := range kits {
		toolIDs, err := r.getKitToolIDs(kits[i].ID)
		if err != nil {
			return nil, err
		}
		kits[i].ToolIDs = toolIDs
	}

	return &kits, nil
}

func (r *kitRepositoryImpl) PersistKit(req KitRequest, createdBy string) (*models.Kit, error) {
	location, err := metadata.NewLocation(req.Location)
	if err != nil {
		return nil, custom_error.NewValidationError("invalid location: %s", req.Location)
	}

	kit := models.Kit{
		Name:         req.Name,
		Location:     location,
		Quantity:     req.Quantity,
		Availability: req.Quantity,
		Condition:    metadata.ConditionGood,
		Remark:       req.Remark,
		ToolIDs:      req.ToolIDs,
		CreatedBy:    createdBy,
	}

	err = repository.WithTransaction(r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		query := tx.Insert("kits").
			Rows(goqu.Record{
				"name":           req.Name,
				"location":       location.String(),
				"quantity":       req.Quantity,
				"availability":   req.Quantity,
				"item_condition": string(metadata.ConditionGood),
				"remark":         req.Remark,
				"created_by":     createdBy,
			}).
			Returning("id")

		if _, err := query.Executor().ScanVal(&kit.ID); err != nil {
			return fmt.Errorf("failed to insert kit record: %w", err)
		}

		kit.KitCode = fmt.Sprintf("KIT-%03d", kit.ID)
		if _, err := tx.Update("kits").
			Set(goqu.Record{"kit_code": kit.KitCode}).
			Where(goqu.Ex{"id": kit.ID}).
			Executor().
			Exec(); err != nil {
			return fmt.Errorf("failed to stamp kit code: %w", err)
		}

		for _, toolID := range req.ToolIDs {
			if _, err := tx.Insert("kit_tools").
				Rows(goqu.Record{"kit_id": kit.ID, "tool_id": toolID}).
				Executor().
				Exec(); err != nil {
				if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
					return custom_error.NewNotFoundError("tool", toolID)
				}
				return fmt.Errorf("failed to attach tool %d to kit: %w", toolID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &kit, nil
}

func (r *kitRepositoryImpl) UpdateKit(id int, req UpdateKitRequest) error {
	record := goqu.Record{}
	if req.Name != nil {
		record["name"] = *req.Name
	}
	if req.Location != nil {
		location, err := metadata.NewLocation(*req.Location)
		if err != nil {
			return custom_error.NewValidationError("invalid location: %s", *req.Location)
		}
		record["location"] = location.String()
	}
	if req.Condition != nil {
		condition, err := metadata.NewCondition(*req.Condition)
		if err != nil {
			return custom_error.NewValidationError("invalid condition: %s", *req.Condition)
		}
		record["item_condition"] = string(condition)
	}
	if req.Remark != nil {
		record["remark"] = *req.Remark
	}
	if len(record) == 0 {
		return custom_error.NewValidationError("nothing to update")
	}

	result, err := r.repository.GoquDBWrapper.Update("kits").
		Set(record).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update kit: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("kit", id)
	}

	return nil
}

func (r *kitRepositoryImpl) RemoveKit(id int) error {
	return repository.WithTransaction(r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		if _, err := tx.Delete("kit_tools").
			Where(goqu.Ex{"kit_id": id}).
			Executor().
			Exec(); err != nil {
			return fmt.Errorf("failed to detach kit members: %w", err)
		}

		result, err := tx.Delete("kits").
			Where(goqu.Ex{"id": id}).
			Executor().
			Exec()
		if err != nil {
			return fmt.Errorf("failed to remove kit: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return custom_error.NewNotFoundError("kit", id)
		}

		return nil
	})
}

func (r *kitRepositoryImpl) TryReserveKit(id int, borrowerName string) (bool, error) {
	err := repository.WithTransaction(r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		result, err := tx.Update("kits").
			Set(goqu.Record{
				"availability":     goqu.L("availability - 1"),
				"last_borrowed_by": borrowerName,
			}).
			Where(goqu.Ex{"id": id}).
			Where(goqu.C("availability").Gt(0)).
			Executor().
			Exec()
		if err != nil {
			return fmt.Errorf("failed to reserve kit %d: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected for kit %d: %w", id, err)
		}
		if rowsAffected == 0 {
			return errUnavailable
		}

		toolIDs, err := r.kitToolIDsTx(tx, id)
		if err != nil {
			return err
		}

		// Every member must follow the kit; one short member rolls the
		// whole reservation back.
		for _, toolID := range toolIDs {
			result, err := tx.Update("tools").
				Set(goqu.Record{
					"availability":     goqu.L("availability - 1"),
					"last_borrowed_by": borrowerName,
					"updated_at":       goqu.L("now()"),
				}).
				Where(goqu.Ex{"id": toolID}).
				Where(goqu.C("availability").Gt(0)).
				Executor().
				Exec()
			if err != nil {
				return fmt.Errorf("failed to reserve kit member %d: %w", toolID, err)
			}

			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to check rows affected for kit member %d: %w", toolID, err)
			}
			if rowsAffected == 0 {
				return errUnavailable
			}
		}

		return nil
	})
	if errors.Is(err, errUnavailable) {
		// Distinguish "no capacity" from "no such kit".
		if _, getErr := r.GetKit(id); getErr != nil {
			return false, getErr
		}
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *kitRepositoryImpl) ReleaseKit(id int, qty int, condition *metadata.Condition, remark *string) error {
	return repository.WithTransaction(r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		record := goqu.Record{
			"availability": goqu.L("LEAST(availability + ?, quantity)", qty),
		}
		if condition != nil {
			record["item_condition"] = string(*condition)
		}
		if remark != nil {
			record["remark"] = *remark
		}

		result, err := tx.Update("kits").
			Set(record).
			Where(goqu.Ex{"id": id}).
			Executor().
			Exec()
		if err != nil {
			return fmt.Errorf("failed to release kit %d: %w", id, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected for kit %d: %w", id, err)
		}
		if rowsAffected == 0 {
			return custom_error.NewNotFoundError("kit", id)
		}

		toolIDs, err := r.kitToolIDsTx(tx, id)
		if err != nil {
			return err
		}

		// Availability cascades to members; condition and remark do not.
		for _, toolID := range toolIDs {
			if _, err := tx.Update("tools").
				Set(goqu.Record{
					"availability": goqu.L("LEAST(availability + ?, quantity)", qty),
					"updated_at":   goqu.L("now()"),
				}).
				Where(goqu.Ex{"id": toolID}).
				Executor().
				Exec(); err != nil {
				return fmt.Errorf("failed to release kit member %d: %w", toolID, err)
			}
		}

		return nil
	})
}

func (r *kitRepositoryImpl) kitToolIDsTx(tx *goqu.TxDatabase, kitID int) ([]int, error) {
	var toolIDs []int
	if err := tx.Select("tool_id").
		From("kit_tools").
		Where(goqu.Ex{"kit_id": kitID}).
		Executor().
		ScanVals(&toolIDs); err != nil {
		return nil, fmt.Errorf("failed to get kit members: %w", err)
	}

	return toolIDs, nil
}
