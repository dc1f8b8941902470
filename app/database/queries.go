package database

import (
	"database/sql"
	"time"

	"shifa-quality/app/models"

	"golang.org/x/crypto/bcrypt"
)

// hashPassword hashes a password using bcrypt
func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func GetUserByEmail(db *sql.DB, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password, first_name, last_name, is_active, created_at, updated_at
			  FROM users WHERE email = $1 AND is_active = true`

	err := db.QueryRow(query, email).Scan(
		&user.ID, &user.Email, &user.Password, &user.FirstName,
		&user.LastName, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserByID(db *sql.DB, userID string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password, first_name, last_name, is_active, created_at, updated_at
			  FROM users WHERE id = $1 AND is_active = true`

	err := db.QueryRow(query, userID).Scan(
		&user.ID, &user.Email, &user.Password, &user.FirstName,
		&user.LastName, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}
	return user, nil
}

func GetUserRoles(db *sql.DB, userID string) ([]*models.Role, error) {
	query := `
		SELECT r.id, r.name
		FROM roles r
		JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = $1
	`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	return roles, nil
}

// GetUserDepartmentIDs returns the department scopes carried in the user's
// auth claims.
func GetUserDepartmentIDs(db *sql.DB, userID string) ([]string, error) {
	query := `SELECT department_id FROM user_departments WHERE user_id = $1`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CreateUser inserts a new user with a hashed password.
func CreateUser(db *sql.DB, user *models.User) error {
	hashed, err := hashPassword(user.Password)
	if err != nil {
		return err
	}

	query := `INSERT INTO users (email, password, first_name, last_name, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, true, NOW(), NOW())
			  RETURNING id, created_at, updated_at`
	return db.QueryRow(query, user.Email, hashed, user.FirstName, user.LastName).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func UpdateUserPassword(db *sql.DB, userID, hashedPassword string) error {
	query := `UPDATE users SET password = $2, updated_at = NOW() WHERE id = $1`
	_, err := db.Exec(query, userID, hashedPassword)
	return err
}

func CreateSession(db *sql.DB, sessionID interface{}, userID string, expiresAt time.Time) error {
	query := `INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`
	_, err := db.Exec(query, sessionID, userID, expiresAt, time.Now())
	return err
}

func GetSessionByID(db *sql.DB, sessionID string) (*models.Session, error) {
	session := &models.Session{}
	query := `SELECT id, user_id, expires_at, created_at FROM sessions WHERE id = $1 AND expires_at > NOW()`

	err := db.QueryRow(query, sessionID).Scan(
		&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func DeleteSession(db *sql.DB, sessionID string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

// DeleteExpiredSessions removes sessions past their expiry; called by the
// scheduler.
func DeleteExpiredSessions(db *sql.DB) (int64, error) {
	res, err := db.Exec(`DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetDepartments returns active departments ordered by name.
func GetDepartments(db *sql.DB) ([]models.Department, error) {
	query := `SELECT id, name, code, description, head_user_id, is_active, created_at, updated_at
			  FROM departments WHERE is_active = true ORDER BY name ASC`
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var departments []models.Department
	for rows.Next() {
		var d models.Department
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.Description, &d.HeadUserID,
			&d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, nil
}

func CreateDepartment(db *sql.DB, department *models.Department) error {
	query := `INSERT INTO departments (name, code, description, head_user_id, is_active, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, true, NOW(), NOW())
			  RETURNING id, created_at, updated_at`
	return db.QueryRow(query, department.Name, department.Code, department.Description, department.HeadUserID).
		Scan(&department.ID, &department.CreatedAt, &department.UpdatedAt)
}

func UpdateDepartment(db *sql.DB, department *models.Department) error {
	query := `UPDATE departments SET name = $2, code = $3, description = $4, head_user_id = $5, updated_at = NOW()
			  WHERE id = $1 AND is_active = true`
	_, err := db.Exec(query, department.ID, department.Name, department.Code,
		department.Description, department.HeadUserID)
	return err
}

func DeactivateDepartment(db *sql.DB, departmentID string) error {
	query := `UPDATE departments SET is_active = false, updated_at = NOW() WHERE id = $1`
	_, err := db.Exec(query, departmentID)
	return err
}
