package security

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/appforge/flowcore/pkg/runfail"
)

// AccessChecker confirms the requesting user may execute blocks against
// an app. The orchestrator calls it once per run before the first block.
type AccessChecker interface {
	ValidateAppAccess(ctx context.Context, appID, userID string) error
}

// PostgresAccessChecker resolves app ownership and membership from the
// apps and app_members tables.
type PostgresAccessChecker struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresAccessChecker(db *sql.DB, logger *slog.Logger) *PostgresAccessChecker {
	return &PostgresAccessChecker{db: db, logger: logger}
}

// ValidateAppAccess passes when the user owns the app or holds any
// membership role on it.
func (c *PostgresAccessChecker) ValidateAppAccess(ctx context.Context, appID, userID string) error {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM apps WHERE id = $1 AND owner_id = $2
			UNION
			SELECT 1 FROM app_members WHERE app_id = $1 AND user_id = $2
		)
	`

	var allowed bool

	err := c.db.QueryRowContext(ctx, query, appID, userID).Scan(&allowed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return runfail.New(runfail.CodeAccessDenied, fmt.Sprintf("user %s has no access to app %s", userID, appID))
		}

		return fmt.Errorf("failed to check app access: %w", err)
	}

	if !allowed {
		c.logger.WarnContext(ctx, "app access denied", "app_id", appID, "user_id", userID)

		return runfail.New(runfail.CodeAccessDenied, fmt.Sprintf("user %s has no access to app %s", userID, appID))
	}

	return nil
}

// StaticAccessChecker approves a fixed allow list. Test helper.
type StaticAccessChecker struct {
	Allowed map[string]string // appID -> userID
}

func (c *StaticAccessChecker) ValidateAppAccess(_ context.Context, appID, userID string) error {
	if c.Allowed[appID] == userID {
		return nil
	}

	return runfail.New(runfail.CodeAccessDenied, fmt.Sprintf("user %s has no access to app %s", userID, appID))
}
