package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/timearch/engine/worktime"
)

// =============================================================================
// USERS
// =============================================================================

// CreateUser inserts a user and returns it with its generated ID.
func (s *Store) CreateUser(ctx context.Context, username string, role worktime.Role) (worktime.User, error) {
	u := worktime.User{Username: username, Role: role}
	if username == "" {
		return u, &worktime.EntryValidationError{Field: "username", Message: "is required"}
	}
	if !role.Valid() {
		return u, &worktime.EntryValidationError{Field: "role", Message: fmt.Sprintf("%q is not admin or user", role)}
	}

	err := s.queryRow(ctx, `
		INSERT INTO users (username, role, created_at)
		VALUES (?, ?, ?)
		RETURNING id`,
		username, string(role), now(),
	).Scan(&u.ID)
	if err != nil {
		return u, s.translate("user "+username, err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id worktime.UserID) (*worktime.User, error) {
	var u worktime.User
	err := s.queryRow(ctx,
		"SELECT id, username, role FROM users WHERE id = ?",
		int64(id),
	).Scan(&u.ID, &u.Username, &u.Role)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, worktime.ErrUserNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]worktime.User, error) {
	rows, err := s.query(ctx, "SELECT id, username, role FROM users ORDER BY username")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []worktime.User
	for rows.Next() {
		var u worktime.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser removes a user together with their settings, assignments
// and time entries.
func (s *Store) DeleteUser(ctx context.Context, id worktime.UserID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"time_entries", "user_projects", "user_settings"} {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM "+table+" WHERE user_id = ?"), int64(id)); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM users WHERE id = ?"), int64(id))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, worktime.ErrUserNotFound)
	}
	return tx.Commit()
}

// =============================================================================
// PROJECTS
// =============================================================================

// SaveProject upserts a project on its number.
func (s *Store) SaveProject(ctx context.Context, p worktime.Project) error {
	if p.Number == "" {
		return &worktime.EntryValidationError{Field: "project_number", Message: "is required"}
	}
	if p.Name == "" {
		return &worktime.EntryValidationError{Field: "project_name", Message: "is required"}
	}
	_, err := s.exec(ctx, `
		INSERT INTO projects (project_number, project_name, description)
		VALUES (?, ?, ?)
		ON CONFLICT (project_number) DO UPDATE SET
			project_name = excluded.project_name,
			description = excluded.description`,
		string(p.Number), p.Name, nullString(p.Description),
	)
	if err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	return nil
}

func (s *Store) GetProject(ctx context.Context, number worktime.ProjectNumber) (*worktime.Project, error) {
	var (
		p    worktime.Project
		desc sql.NullString
	)
	err := s.queryRow(ctx,
		"SELECT project_number, project_name, description FROM projects WHERE project_number = ?",
		string(number),
	).Scan(&p.Number, &p.Name, &desc)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", number, worktime.ErrProjectNotFound)
	}
	if err != nil {
		return nil, err
	}
	p.Description = desc.String
	return &p, nil
}

func (s *Store) ListProjects(ctx context.Context) ([]worktime.Project, error) {
	return s.queryProjects(ctx, `
		SELECT project_number, project_name, description
		FROM projects
		ORDER BY project_number`)
}

// =============================================================================
// ASSIGNMENTS
// =============================================================================

// AssignUser adds a user to a project. Assigning twice is a no-op.
func (s *Store) AssignUser(ctx context.Context, userID worktime.UserID, project worktime.ProjectNumber) error {
	_, err := s.exec(ctx, `
		INSERT INTO user_projects (user_id, project_number)
		VALUES (?, ?)
		ON CONFLICT (user_id, project_number) DO NOTHING`,
		int64(userID), string(project),
	)
	if err != nil {
		return s.translate(fmt.Sprintf("assignment %d/%s", userID, project), err)
	}
	return nil
}

func (s *Store) UnassignUser(ctx context.Context, userID worktime.UserID, project worktime.ProjectNumber) error {
	_, err := s.exec(ctx,
		"DELETE FROM user_projects WHERE user_id = ? AND project_number = ?",
		int64(userID), string(project),
	)
	return err
}

// UserProjects lists the projects a user may book on. The internal
// project is always included.
func (s *Store) UserProjects(ctx context.Context, userID worktime.UserID) ([]worktime.Project, error) {
	return s.queryProjects(ctx, `
		SELECT p.project_number, p.project_name, p.description
		FROM projects p
		WHERE p.project_number = ?
		   OR p.project_number IN (SELECT project_number FROM user_projects WHERE user_id = ?)
		ORDER BY p.project_number`,
		string(worktime.InternalProject), int64(userID),
	)
}

func (s *Store) ProjectUsers(ctx context.Context, project worktime.ProjectNumber) ([]worktime.User, error) {
	rows, err := s.query(ctx, `
		SELECT u.id, u.username, u.role
		FROM users u
		JOIN user_projects up ON up.user_id = u.id
		WHERE up.project_number = ?
		ORDER BY u.username`,
		string(project),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []worktime.User
	for rows.Next() {
		var u worktime.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) queryProjects(ctx context.Context, query string, args ...any) ([]worktime.Project, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []worktime.Project
	for rows.Next() {
		var (
			p    worktime.Project
			desc sql.NullString
		)
		if err := rows.Scan(&p.Number, &p.Name, &desc); err != nil {
			return nil, err
		}
		p.Description = desc.String
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data except the seeded catalog (for demo loading).
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []string{
		"DELETE FROM time_entries",
		"DELETE FROM project_sia_phases",
		"DELETE FROM user_projects",
		"DELETE FROM user_settings",
		"DELETE FROM users",
		"DELETE FROM projects WHERE project_number <> '" + string(worktime.InternalProject) + "'",
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return tx.Commit()
}
