package issuance

import (
	"fmt"

	"toolroom/internal/repository"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type ReturnRepository interface {
	PersistReturn(record models.ReturnRecord) (*models.ReturnRecord, error)
	GetReturnsForIssuance(issuanceID int) (*[]models.ReturnRecord, error)
}

type returnRepositoryImpl struct {
	repository *repository.Repository
}

func NewReturnRepository(r *repository.Repository) ReturnRepository {
	return &returnRepositoryImpl{repository: r}
}

func (r *returnRepositoryImpl) PersistReturn(record models.ReturnRecord) (*models.ReturnRecord, error) {
	err := repository.WithTransaction(r.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		query := tx.Insert("return_records").
			Rows(goqu.Record{
				"issuance_id":        record.IssuanceID,
				"actual_return_date": record.ActualReturnDate,
				"processed_by":       record.ProcessedBy,
				"remarks":            record.Remarks,
			}).
			Returning("id")

		if _, err := query.Executor().ScanVal(&record.ID); err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
				return custom_error.NewNotFoundError("issuance", record.IssuanceID)
			}
			return fmt.Errorf("failed to insert return record: %w", err)
		}

		for i := range record.Items {
			item := &record.Items[i]
			item.ReturnRecordID = record.ID

			row := goqu.Record{
				"return_record_id":  record.ID,
				"tool_id":           item.ToolID,
				"kit_id":            item.KitID,
				"quantity_returned": item.QuantityReturned,
				"remark":            item.Remark,
			}
			if item.Condition != nil {
				row["item_condition"] = string(*item.Condition)
			}

			if _, err := tx.Insert("return_items").
				Rows(row).
				Returning("id").
				Executor().
				ScanVal(&item.ID); err != nil {
				return fmt.Errorf("failed to insert return item: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *returnRepositoryImpl) GetReturnsForIssuance(issuanceID int) (*[]models.ReturnRecord, error) {
	query := r.repository.GoquDBWrapper.Select(
		"id", "issuance_id", "actual_return_date", "processed_by", "remarks",
	).
		From("return_records").
		Where(goqu.Ex{"issuance_id": issuanceID}).
		Order(goqu.I("actual_return_date").Asc())

	var records []models.ReturnRecord
	if err := query.Executor().ScanStructs(&records); err != nil {
		return nil, fmt.Errorf("failed to select return records: %w", err)
	}

	for i := range records {
		var items []models.ReturnItem
		itemQuery := r.repository.GoquDBWrapper.Select(
			"id", "return_record_id", "tool_id", "kit_id",
			"quantity_returned", "item_condition", "remark",
		).
			From("return_items").
			Where(goqu.Ex{"return_record_id": records[i].ID}).
			Order(goqu.I("id").Asc())

		if err := itemQuery.Executor().ScanStructs(&items); err != nil {
			return nil, fmt.Errorf("failed to select return items: %w", err)
		}
		records[i].Items = items
	}

	return &records, nil
}
