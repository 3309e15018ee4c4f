package users

import (
	"fmt"
	"toolroom/internal/repository"
	custom_error "toolroom/pkg/errors"
	"toolroom/pkg/metadata"
	"toolroom/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type UserRepository interface {
	PersistUser(req models.CreateUserRequest, hashedPassword []byte) error
	GetUser(id int) (*models.User, error)
	GetUsers() ([]models.User, error)
	UpdateUser(id int, changes *models.UserChanges) error
	DeleteUser(id int) error

	// ApproverEmailsByLocation lists moderator and admin addresses for a
	// location, the recipients of issuance notifications.
	ApproverEmailsByLocation(location metadata.Location) ([]string, error)
	// RecordIssued and RecordReturned keep the per-trainer running
	// counters. Callers treat failures as non-fatal bookkeeping loss.
	RecordIssued(trainerID int, lineCount int) error
	RecordReturned(trainerID int, lineCount int, overdue bool) error
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}

func (r *userRepositoryImpl) userColumns() []interface{} {
	return []interface{}{
		"id", "username", "fullname", "email", "role", "location",
		"tools_issued", "tools_returned", "active_issuance", "overdue_issuance",
	}
}

func (r *userRepositoryImpl) PersistUser(req models.CreateUserRequest, hashedPassword []byte) error {
	query := r.repository.GoquDBWrapper.Insert("users").
		Rows(goqu.Record{
			"password_hash": string(hashedPassword),
			"username":      req.Username,
			"fullname":      req.Fullname,
			"email":         req.Email,
			"role":          req.Role,
			"location":      req.Location,
		})

	_, err := query.Executor().Exec()
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return custom_error.WrapDBError("Username is already taken", string(pqErr.Code))
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *userRepositoryImpl) GetUsers() ([]models.User, error) {
	var users []models.User
	query := r.repository.GoquDBWrapper.Select(r.userColumns()...).
		From("users").
		Order(goqu.I("id").Asc())

	err := query.Executor().ScanStructs(&users)

	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return users, nil
}

func (r *userRepositoryImpl) GetUser(id int) (*models.User, error) {
	var user models.User
	query := r.repository.GoquDBWrapper.Select(append(r.userColumns(), "password_hash")...).
		From("users").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStruct(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("user", id)
	}

	return &user, nil
}

func (r *userRepositoryImpl) UpdateUser(id int, changes *models.UserChanges) error {
	record := goqu.Record{}
	if changes.PasswordHash != nil {
		record["password_hash"] = *changes.PasswordHash
	}
	if changes.Fullname != nil {
		record["fullname"] = *changes.Fullname
	}
	if changes.Email != nil {
		record["email"] = *changes.Email
	}
	if changes.Role != nil {
		record["role"] = *changes.Role
	}
	if changes.Location != nil {
		record["location"] = *changes.Location
	}
	if len(record) == 0 {
		return nil
	}

	result, err := r.repository.GoquDBWrapper.Update("users").
		Set(record).
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("user", id)
	}

	return nil
}

func (r *userRepositoryImpl) DeleteUser(id int) error {
	result, err := r.repository.GoquDBWrapper.Delete("users").
		Where(goqu.Ex{"id": id}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("user", id)
	}

	return nil
}

func (r *userRepositoryImpl) ApproverEmailsByLocation(location metadata.Location) ([]string, error) {
	var emails []string
	query := r.repository.GoquDBWrapper.Select("email").
		From("users").
		Where(goqu.Ex{"location": location.String()}).
		Where(goqu.C("role").In("moderator", "admin")).
		Where(goqu.C("email").Neq(""))

	if err := query.Executor().ScanVals(&emails); err != nil {
		return nil, fmt.Errorf("failed to select approvers: %w", err)
	}

	return emails, nil
}

func (r *userRepositoryImpl) RecordIssued(trainerID int, lineCount int) error {
	result, err := r.repository.GoquDBWrapper.Update("users").
		Set(goqu.Record{
			"tools_issued":    goqu.L("tools_issued + ?", lineCount),
			"active_issuance": goqu.L("active_issuance + 1"),
		}).
		Where(goqu.Ex{"id": trainerID}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update issued counters: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("user", trainerID)
	}

	return nil
}

func (r *userRepositoryImpl) RecordReturned(trainerID int, lineCount int, overdue bool) error {
	record := goqu.Record{
		"tools_returned":  goqu.L("tools_returned + ?", lineCount),
		"active_issuance": goqu.L("GREATEST(active_issuance - 1, 0)"),
	}
	if overdue {
		record["overdue_issuance"] = goqu.L("overdue_issuance + 1")
	}

	result, err := r.repository.GoquDBWrapper.Update("users").
		Set(record).
		Where(goqu.Ex{"id": trainerID}).
		Executor().
		Exec()
	if err != nil {
		return fmt.Errorf("failed to update returned counters: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return custom_error.NewNotFoundError("user", trainerID)
	}

	return nil
}
