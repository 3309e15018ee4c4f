package tools

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"toolroom/internal/repository"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type ToolRepository interface {
	GetTool(id int) (*models.Tool, error)
	GetToolsBy(conditions repository.QueryBuilder) (*[]models.Tool, error)
	GetToolList() (*[]models.Tool, error)
	PersistTool(req ToolRequest) (*models.Tool, error)
	UpdateTool(id int, req UpdateToolRequest) error
	UpdateToolCode(id int, toolCode string) error
	CanRemoveTool(id int) (bool, error)
	RemoveTool(id int) error

	// GetCalibrationDue lists tools that require calibration and whose
	// calibration date falls on or before the given instant.
	GetCalibrationDue(until time.Time) (*[]models.Tool, error)

	// TryReserve atomically takes one unit of availability. A false result
	// is the normal "no capacity left" signal, not an error.
	TryReserve(id int, borrowerName string) (bool, error)
	// Release gives qty units back, capped at the tool's total quantity.
	// A non-nil condition or remark overwrites the tool's current value.
	Release(id int, qty int, condition *metadata.Condition, remark *string) error
}

type toolRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) ToolRepository {
	return &toolRepositoryImpl{repository: r}
}

func (r *toolRepositoryImpl) toolColumns() []interface{} {
	return []interface{}{
		"id", "tool_no", "tool_code", "description", "location", "quantity",
		"availability", "item_condition", "last_borrowed_by",
		"calibration_required", "calibration_date", "remarks",
		"created_at", "updated_at",
	}
}

func (r *toolRepositoryImpl) GetTool(id int) (*models.Tool, error) {
	var tool models.Tool
	query := r.repository.GoquDBWrapper.Select(r.toolColumns()...).
		From("tools").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStruct(&tool)
	if err != nil {
		return nil, fmt.Errorf("failed to get tool: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("tool", id)
	}

	return &tool, nil
}

func (r *toolRepositoryImpl) GetToolList() (*[]models.Tool, error) {
	var tools []models.Tool
	query := r.repository.GoquDBWrapper.Select(r.toolColumns()...).
		From("tools").
		Order(goqu.I("id").Asc())

	if err := query.Executor().ScanStructs(&tools); err != nil {
		return nil, fmt.Errorf("unable to select tools from database: %s", err.Error())
	}

	return &tools, nil
}

func (r *toolRepositoryImpl) GetToolsBy(conditions repository.QueryBuilder) (*[]models.Tool, error) {
	aliases := map[string]string{
		"location":  "location",
		"condition": "item_condition",
	}

	var tools []models.Tool
	query := r.repository.GoquDBWrapper.Select(r.toolColumns()...).
		From("tools").
		Where(conditions.BuildConditions(aliases)).
		Order(goqu.I("id").Asc())

	if err := query.Executor().ScanStructs(&tools); err != nil {
		return nil, fmt.Errorf("unable to select tools from database: %s", err.Error())
	}

	return &tools, nil
}

func (r *toolRepositoryImpl) PersistTool(req ToolRequest) (*models.Tool, error) {
	location, err := metadata.NewLocation(req.Location)
	if err != nil {
		return nil, custom_error.NewValidationError("invalid location: %s", req.Location)
	}

	query := r.repository.GoquDBWrapper.Insert("tools").
		Rows(goqu.Record{
			"tool_no":              req.ToolNo,
			"description":          req.Description,
			"location":             location.String(),
			"quantity":             req.Quantity,
			"availability":         req.Quantity,
			"item_condition":       string(metadata.ConditionGood),
			"calibration_required": req.CalibrationRequired,
			"calibration_date":     req.CalibrationDate,
			"remarks":              req.Remarks,
		}).
		Returning("id")

	tool := models.Tool{
		ToolNo:              req.ToolNo,
		Description:         req.Description,
		Location:            location,
		Quantity:            req.Quantity,
		Availability:        req.Quantity,
		Condition:           metadata.ConditionGood,
		CalibrationRequired: req.CalibrationRequired,
		Remarks:             req.Remarks,
	}

	if _, err := query.Executor().ScanVal(&tool.ID); err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return nil, custom_error.WrapDBError("Duplicate tool number", string(pqErr.Code))
			}
		}
		return nil, fmt.Errorf("failed to insert tool record: %w", err)
	}

	return &tool, nil
}

func (r *toolRepositoryImpl) UpdateTool(id int, req UpdateToolRequest) error {
	record := goqu.Record{"updated_at": goqu.L("now()")}
	if req.Description != nil {
		record["description"] = *req.Description
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
	if req.CalibrationRequired != nil {
		record["calibration_required"] = *req.CalibrationRequired
	}
	if req.CalibrationDate != nil {
		record["calibration_date"] = *req.CalibrationDate
	}
	if req.Remarks != nil {
		record["remarks"] = *req.Remarks
	}

	result, err := r.repository.GoquDBWrapper.Update("tools").
		Set(record).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update tool: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("tool", id)
	}

	return nil
}

func (r *toolRepositoryImpl) UpdateToolCode(id int, toolCode string) error {
	_, err := r.repository.GoquDBWrapper.Update("tools").
		Set(goqu.Record{"tool_code": toolCode}).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update tool code: %w", err)
	}

	return nil
}

func (r *toolRepositoryImpl) GetCalibrationDue(until time.Time) (*[]models.Tool, error) {
	var tools []models.Tool
	query := r.repository.GoquDBWrapper.Select(r.toolColumns()...).
		From("tools").
		Where(goqu.Ex{"calibration_required": true}).
		Where(goqu.C("calibration_date").IsNotNull()).
		Where(goqu.C("calibration_date").Lte(until)).
		Order(goqu.I("calibration_date").Asc())

	if err := query.Executor().ScanStructs(&tools); err != nil {
		return nil, fmt.Errorf("unable to select calibration candidates: %s", err.Error())
	}

	return &tools, nil
}

// CanRemoveTool reports whether the tool appears on any live issuance.
func (r *toolRepositoryImpl) CanRemoveTool(id int) (bool, error) {
	query := r.repository.GoquDBWrapper.Select(goqu.COUNT("it.issuance_id")).
		From(goqu.T("issuance_tools").As("it")).
		Join(
			goqu.T("issuances").As("i"),
			goqu.On(goqu.Ex{"i.id": goqu.I("it.issuance_id")}),
		).
		Where(goqu.Ex{
			"it.tool_id": id,
			"i.status":   []string{string(metadata.StatusPending), string(metadata.StatusIssued), string(metadata.StatusOverdue)},
		})

	var count int
	if _, err := query.Executor().ScanVal(&count); err != nil {
		return false, fmt.Errorf("failed to check tool issuances: %w", err)
	}

	return count == 0, nil
}

func (r *toolRepositoryImpl) RemoveTool(id int) error {
	result, err := r.repository.GoquDBWrapper.Delete("tools").
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return custom_error.WrapDBError("Tool is referenced by other resources", string(pqErr.Code))
		}
		return fmt.Errorf("failed to remove tool: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("tool", id)
	}

	return nil
}

func (r *toolRepositoryImpl) TryReserve(id int, borrowerName string) (bool, error) {
	// Single guarded decrement; the WHERE clause is the serialization point,
	// so concurrent callers race for the last unit without ever driving
	// availability negative.
	result, err := r.repository.GoquDBWrapper.Update("tools").
		Set(goqu.Record{
			"availability":     goqu.L("availability - 1"),
			"last_borrowed_by": borrowerName,
			"updated_at":       goqu.L("now()"),
		}).
		Where(goqu.Ex{"id": id}).
		Where(goqu.C("availability").Gt(0)).
		Executor().
		Exec()
	if err != nil {
		return false, fmt.Errorf("failed to reserve tool %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected for tool %d: %w", id, err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	// No row was touched: either the tool is out of capacity or the id
	// does not exist. Only the latter is an error.
	if _, err := r.GetTool(id); err != nil {
		var notFound *custom_error.NotFoundError
		if errors.As(err, &notFound) {
			return false, err
		}
		if errors.Is(err, sql.ErrNoRows) {
			return false, custom_error.NewNotFoundError("tool", id)
		}
		return false, err
	}

	return false, nil
}

func (r *toolRepositoryImpl) Release(id int, qty int, condition *metadata.Condition, remark *string) error {
	record := goqu.Record{
		// Capped at total quantity so repeated credits cannot create
		// phantom availability.
		"availability": goqu.L("LEAST(availability + ?, quantity)", qty),
		"updated_at":   goqu.L("now()"),
	}
	if condition != nil {
		record["item_condition"] = string(*condition)
	}
	if remark != nil {
		record["remarks"] = *remark
	}

	result, err := r.repository.GoquDBWrapper.Update("tools").
		Set(record).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to release tool %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected for tool %d: %w", id, err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("tool", id)
	}

	return nil
}
