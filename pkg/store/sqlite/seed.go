package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFixture indicates a fixture record that cannot be stored.
var ErrInvalidFixture = errors.New("invalid fixture")

// Fixture is a development data set of projects and credits, in YAML or JSON.
type Fixture struct {
	Projects []FixtureProject `yaml:"projects" json:"projects"`
	Credits  []FixtureCredit  `yaml:"credits" json:"credits"`
}

// FixtureProject is one project row.
type FixtureProject struct {
	ProjectID   string `yaml:"project_id" json:"project_id"`
	Name        string `yaml:"name" json:"name"`
	Country     string `yaml:"country" json:"country"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description" json:"description"`
}

// FixtureCredit is one credit row. Vintage may be omitted.
type FixtureCredit struct {
	ProjectID string `yaml:"project_id" json:"project_id"`
	Quantity  int64  `yaml:"quantity" json:"quantity"`
	Vintage   *int   `yaml:"vintage" json:"vintage,omitempty"`
}

// SeedTables names the tables a fixture is written to.
type SeedTables struct {
	Projects string
	Credits  string
}

// SeedStats reports what Seed wrote.
type SeedStats struct {
	Projects int
	Credits  int
}

// ParseFixture decodes a YAML or JSON fixture.
func ParseFixture(data []byte) (Fixture, error) {
	var fx Fixture

	err := yaml.Unmarshal(data, &fx)
	if err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}

	for i, p := range fx.Projects {
		if strings.TrimSpace(p.ProjectID) == "" {
			return Fixture{}, fmt.Errorf("%w: project %d has no project_id", ErrInvalidFixture, i)
		}
	}

	return fx, nil
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}

	return ParseFixture(data)
}

// Seed writes fx in one transaction. Projects are upserted by project_id;
// credits are appended. With replace set, both tables are emptied first.
func (s *Store) Seed(ctx context.Context, tables SeedTables, fx Fixture, replace bool) (SeedStats, error) {
	for _, table := range []string{tables.Projects, tables.Credits} {
		_, err := s.tableColumns(ctx, table)
		if err != nil {
			return SeedStats{}, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SeedStats{}, fmt.Errorf("begin seed: %w", err)
	}

	stats, err := seed(ctx, tx, tables, fx, replace)
	if err != nil {
		return SeedStats{}, errors.Join(err, tx.Rollback())
	}

	err = tx.Commit()
	if err != nil {
		return SeedStats{}, fmt.Errorf("commit seed: %w", err)
	}

	return stats, nil
}

func seed(ctx context.Context, tx *sql.Tx, tables SeedTables, fx Fixture, replace bool) (SeedStats, error) {
	var stats SeedStats

	if replace {
		for _, table := range []string{tables.Credits, tables.Projects} {
			_, err := tx.ExecContext(ctx, `DELETE FROM `+quote(table))
			if err != nil {
				return stats, fmt.Errorf("clear %s: %w", table, err)
			}
		}
	}

	insertProject := `INSERT INTO ` + quote(tables.Projects) + ` (project_id, name, country, category, description)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project_id) DO UPDATE SET
			name = excluded.name,
			country = excluded.country,
			category = excluded.category,
			description = excluded.description`

	for _, p := range fx.Projects {
		_, err := tx.ExecContext(ctx, insertProject,
			p.ProjectID, p.Name, nullable(p.Country), nullable(p.Category), p.Description)
		if err != nil {
			return stats, fmt.Errorf("insert project %s: %w", p.ProjectID, err)
		}

		stats.Projects++
	}

	insertCredit := `INSERT INTO ` + quote(tables.Credits) + ` (project_id, quantity, vintage) VALUES (?, ?, ?)`

	for _, c := range fx.Credits {
		var vintage any
		if c.Vintage != nil {
			vintage = *c.Vintage
		}

		_, err := tx.ExecContext(ctx, insertCredit, c.ProjectID, c.Quantity, vintage)
		if err != nil {
			return stats, fmt.Errorf("insert credit for %s: %w", c.ProjectID, err)
		}

		stats.Credits++
	}

	return stats, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}
