package store

import (
	"database/sql"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pronovic/vplan/internal/model"
)

// ErrNotFound is returned when an account or plan does not exist. The
// reconciliation engine branches on it; it is control flow, not failure.
var ErrNotFound = errors.New("not found")

// ErrExists is returned when creating a plan whose name is taken.
var ErrExists = errors.New("already exists")

// Store persists accounts and plans. It is safe for concurrent readers
// alongside the single scheduler worker.
type Store struct {
	db *sql.DB
}

// New creates a Store using the provided database connection.
func New(db *DB) *Store {
	return &Store{db: db.DB}
}

// Account retrieves the provider account.
func (s *Store) Account() (model.Account, error) {
	var token string
	err := s.db.QueryRow(
		`SELECT pat_token FROM account WHERE account_name = ?`, model.OnlyAccount).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("retrieve account: %w", err)
	}
	return model.Account{PatToken: token}, nil
}

// PutAccount creates or replaces the provider account.
func (s *Store) PutAccount(account model.Account) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO account (account_name, pat_token) VALUES (?, ?)`,
		model.OnlyAccount, account.PatToken)
	if err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

// DeleteAccount removes the provider account if present.
func (s *Store) DeleteAccount() error {
	_, err := s.db.Exec(`DELETE FROM account WHERE account_name = ?`, model.OnlyAccount)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// PlanNames returns the names of all stored plans, sorted.
func (s *Store) PlanNames() ([]string, error) {
	rows, err := s.db.Query(`SELECT plan_name FROM plan ORDER BY plan_name`)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Plan retrieves a stored plan document.
func (s *Store) Plan(planName string) (model.PlanDocument, error) {
	var definition string
	err := s.db.QueryRow(
		`SELECT definition FROM plan WHERE plan_name = ?`, planName).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PlanDocument{}, ErrNotFound
	}
	if err != nil {
		return model.PlanDocument{}, fmt.Errorf("retrieve plan %s: %w", planName, err)
	}

	var doc model.PlanDocument
	if err := yaml.Unmarshal([]byte(definition), &doc); err != nil {
		return model.PlanDocument{}, fmt.Errorf("decode plan %s: %w", planName, err)
	}
	return doc, nil
}

// CreatePlan stores a new plan, disabled until explicitly enabled.
func (s *Store) CreatePlan(doc model.PlanDocument) error {
	definition, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", doc.Plan.Name, err)
	}
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO plan (plan_name, enabled, definition) VALUES (?, 0, ?)`,
		doc.Plan.Name, string(definition))
	if err != nil {
		return fmt.Errorf("create plan %s: %w", doc.Plan.Name, err)
	}
	if count, _ := result.RowsAffected(); count == 0 {
		return ErrExists
	}
	return nil
}

// UpdatePlan replaces the definition of an existing plan, keeping its
// enabled state.
func (s *Store) UpdatePlan(doc model.PlanDocument) error {
	definition, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", doc.Plan.Name, err)
	}
	result, err := s.db.Exec(
		`UPDATE plan SET definition = ? WHERE plan_name = ?`,
		string(definition), doc.Plan.Name)
	if err != nil {
		return fmt.Errorf("update plan %s: %w", doc.Plan.Name, err)
	}
	if count, _ := result.RowsAffected(); count == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePlan removes a stored plan.
func (s *Store) DeletePlan(planName string) error {
	result, err := s.db.Exec(`DELETE FROM plan WHERE plan_name = ?`, planName)
	if err != nil {
		return fmt.Errorf("delete plan %s: %w", planName, err)
	}
	if count, _ := result.RowsAffected(); count == 0 {
		return ErrNotFound
	}
	return nil
}

// PlanEnabled returns the enabled flag of a plan.
func (s *Store) PlanEnabled(planName string) (bool, error) {
	var enabled bool
	err := s.db.QueryRow(
		`SELECT enabled FROM plan WHERE plan_name = ?`, planName).Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("retrieve plan %s enabled: %w", planName, err)
	}
	return enabled, nil
}

// SetPlanEnabled sets the enabled flag of a plan.
func (s *Store) SetPlanEnabled(planName string, enabled bool) error {
	result, err := s.db.Exec(
		`UPDATE plan SET enabled = ? WHERE plan_name = ?`, enabled, planName)
	if err != nil {
		return fmt.Errorf("update plan %s enabled: %w", planName, err)
	}
	if count, _ := result.RowsAffected(); count == 0 {
		return ErrNotFound
	}
	return nil
}
